package main

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"
)

// processStatsRequest はイベントとユーザーの総数を返します
func (a *App) processStatsRequest(ctx context.Context, r *apiRequest) (map[string]interface{}, int) {
	var totalEvents, totalUsers int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := a.store.CountEvents(gctx)
		totalEvents = n
		return err
	})
	g.Go(func() error {
		n, err := a.store.CountUsers(gctx)
		totalUsers = n
		return err
	})
	if err := g.Wait(); err != nil {
		return errorResponse(err, "統計の取得に失敗しました")
	}

	return map[string]interface{}{
		"totalEvents": totalEvents,
		"totalUsers":  totalUsers,
	}, http.StatusOK
}
