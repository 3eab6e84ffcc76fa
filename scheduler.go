package main

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// resyncTimeout は定期実行1回あたりの上限です。
const resyncTimeout = 30 * time.Second

// resync はイベント一覧を読み直し、期限切れのセッションを片付けます。
// ライブ購読が止まっていた場合の保険として定期的に呼ばれます。
func (a *App) resync(ctx context.Context) error {
	logger.Debug("scheduled resync started")

	swept := a.sessions.Sweep()
	if swept > 0 {
		logger.Infow("expired sessions removed", "count", swept)
	}

	if err := a.sync.RefreshOnce(ctx); err != nil {
		logger.Errorw("scheduled resync failed", "error", err)
		return err
	}

	logger.Debugw("scheduled resync completed", "events", len(a.sync.Events()))
	return nil
}

// startScheduler は spec のスケジュールで resync を回すcronを起動します。
func startScheduler(a *App, spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
		defer cancel()
		_ = a.resync(ctx)
	}); err != nil {
		return nil, err
	}
	c.Start()
	logger.Infow("resync scheduler started", "schedule", spec)
	return c, nil
}
