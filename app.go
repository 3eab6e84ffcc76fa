package main

import (
	"context"
	"time"
)

// App はハンドラーから使う各コントローラーをまとめたものです。
// ローカルサーバーとLambdaの両方で同じものを使います。
type App struct {
	cfg           *Config
	store         Store
	sync          *EventSync
	calendar      *CalendarInteraction
	notifications *NotificationController
	sessions      *SessionManager
	identity      *Identity
	profiles      profileUpdater
	now           func() time.Time

	// awaitRefresh が true のとき、引っ張って更新は応答を返す前に完了を待つ(Lambda)
	awaitRefresh bool
}

func newApp(cfg *Config, store Store, verifier tokenVerifier, profiles profileUpdater) *App {
	mirror := NewEventSync(store, store)
	return &App{
		cfg:           cfg,
		store:         store,
		sync:          mirror,
		calendar:      NewCalendarInteraction(store, store, mirror),
		notifications: NewNotificationController(store, store, cfg.BatchConcurrency),
		sessions:      NewSessionManager(cfg.SessionSecret, cfg.SessionTTL, store),
		identity:      NewIdentity(verifier, store),
		profiles:      profiles,
		now:           time.Now,
	}
}

// ensureFresh はライブ購読が無いとき(Lambdaなど)にイベント一覧を1回だけ読み直します。
func (a *App) ensureFresh(ctx context.Context) error {
	if a.sync.Live() {
		return nil
	}
	return a.sync.RefreshOnce(ctx)
}

// newGestureTracker はセッション用の引っ張って更新するトラッカーを作ります。更新処理はイベント一覧の再取得です。
func (a *App) newGestureTracker(viewportHeight float64) *GestureTracker {
	return NewGestureTracker(a.cfg.Pull, viewportHeight, a.sync.RefreshOnce)
}

// unreadCounterFor はセッションの未読件数の購読を返します。
func (a *App) unreadCounterFor(sess *Session) (*UnreadCounter, error) {
	uid := sess.User().UID
	return sess.Unread(func() *UnreadCounter {
		return a.notifications.SubscribeUnreadCount(context.Background(), uid)
	})
}

// Close は全てのセッションと購読を破棄します。
func (a *App) Close() {
	a.sessions.Shutdown()
	a.sync.Close()
}
