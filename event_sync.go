package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// EventSync はイベント一覧とユーザーメタデータのミラーを保持します。
// 状態を書き換えるのは EventSync だけで、利用側はコピーを読むだけです。
type EventSync struct {
	events EventStore
	users  UserStore

	mu       sync.Mutex
	list     []CalendarEvent
	usersMap map[string]UserMeta
	loading  bool
	closed   bool
	// metaGen は古いメタデータ読み込み結果を捨てるための世代番号
	metaGen uint64
	subs    map[*Subscription]struct{}
}

// NewEventSync は空のミラーを作成します。最初の結果が届くまで Loading は true です。
func NewEventSync(events EventStore, users UserStore) *EventSync {
	return &EventSync{
		events:   events,
		users:    users,
		list:     []CalendarEvent{},
		usersMap: map[string]UserMeta{},
		loading:  true,
		subs:     map[*Subscription]struct{}{},
	}
}

// Subscription はライブ購読のハンドルです。破棄時に必ず Unsubscribe を呼んでください。
type Subscription struct {
	cancel context.CancelFunc
	stream *Stream[[]CalendarEvent]
	done   chan struct{}
	once   sync.Once
}

// Unsubscribe は購読を止め、受信ループが終わるまで待ちます。何度呼んでも安全です。
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		if s.stream != nil {
			s.stream.Cancel()
		}
		<-s.done
	})
}

// Subscribe はイベント一覧のライブ購読を開始します。
// スナップショットが届くたびにミラーを丸ごと置き換え、メタデータを読み直します。
func (es *EventSync) Subscribe(ctx context.Context) *Subscription {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	es.mu.Lock()
	if es.closed {
		es.mu.Unlock()
		cancel()
		close(sub.done)
		return sub
	}
	sub.stream = es.events.WatchEvents(subCtx)
	es.subs[sub] = struct{}{}
	es.mu.Unlock()

	go func() {
		defer close(sub.done)
		defer es.forget(sub)
		for snap := range sub.stream.C {
			if snap.Err != nil {
				logger.Errorw("event subscription failed", "error", snap.Err)
				es.apply(subCtx, []CalendarEvent{})
				continue
			}
			es.apply(subCtx, snap.Value)
		}
	}()
	return sub
}

// RefreshOnce は購読と同じクエリを1回だけ実行し、ミラーを置き換えます。
// 失敗した場合は現在の状態を保ったままエラーを返します。
func (es *EventSync) RefreshOnce(ctx context.Context) error {
	events, err := es.events.ListEvents(ctx)
	if err != nil {
		logger.Errorw("failed to refresh events", "error", err)
		return fmt.Errorf("イベントの再取得に失敗しました: %w", err)
	}
	es.apply(ctx, events)
	return nil
}

// LoadUserMetadata は userIDs のプロフィールを読み直してキャッシュを丸ごと置き換えます。
func (es *EventSync) LoadUserMetadata(ctx context.Context, userIDs []string) {
	es.mu.Lock()
	if es.closed {
		es.mu.Unlock()
		return
	}
	es.metaGen++
	gen := es.metaGen
	es.mu.Unlock()

	es.loadMetadata(ctx, gen, dedupe(userIDs))
}

// Close は全ての購読を止めます。以降に届いた結果は捨てられます。
func (es *EventSync) Close() {
	es.mu.Lock()
	es.closed = true
	subs := make([]*Subscription, 0, len(es.subs))
	for s := range es.subs {
		subs = append(subs, s)
	}
	es.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}

// Events は現在のイベント一覧のコピーを返します。
func (es *EventSync) Events() []CalendarEvent {
	es.mu.Lock()
	defer es.mu.Unlock()
	out := make([]CalendarEvent, len(es.list))
	copy(out, es.list)
	return out
}

// UsersMap は現在のメタデータキャッシュのコピーを返します。
func (es *EventSync) UsersMap() map[string]UserMeta {
	es.mu.Lock()
	defer es.mu.Unlock()
	out := make(map[string]UserMeta, len(es.usersMap))
	for k, v := range es.usersMap {
		out[k] = v
	}
	return out
}

func (es *EventSync) Loading() bool {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.loading
}

// Live は有効なライブ購読があるかどうかを返します。
func (es *EventSync) Live() bool {
	es.mu.Lock()
	defer es.mu.Unlock()
	return len(es.subs) > 0
}

// forget はリスナーが終了した購読を一覧から外します。
func (es *EventSync) forget(sub *Subscription) {
	es.mu.Lock()
	delete(es.subs, sub)
	es.mu.Unlock()
}

func (es *EventSync) apply(ctx context.Context, events []CalendarEvent) {
	es.mu.Lock()
	if es.closed {
		es.mu.Unlock()
		return
	}
	es.list = events
	es.loading = false
	es.metaGen++
	gen := es.metaGen
	es.mu.Unlock()

	ids := make([]string, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.UserID)
	}
	es.loadMetadata(ctx, gen, dedupe(ids))
}

func (es *EventSync) loadMetadata(ctx context.Context, gen uint64, ids []string) {
	meta := make(map[string]UserMeta, len(ids))
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		u, err := es.users.GetUser(ctx, id)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				logger.Warnw("failed to load user metadata", "uid", id, "error", err)
			}
			continue
		}
		meta[id] = UserMeta{DisplayName: u.displayNameOrFallback(), CustomLetter: u.CustomLetter}
	}

	es.mu.Lock()
	defer es.mu.Unlock()
	if es.closed || gen != es.metaGen {
		return
	}
	es.usersMap = meta
}

// dedupe は空文字を除き、最初に現れた順を保って重複を取り除きます。
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
