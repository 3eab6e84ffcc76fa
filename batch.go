package main

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// BatchResult は1件ずつの書き込みをまとめて行った結果です。
// 途中で失敗しても残りは続行し、巻き戻しはしません。
type BatchResult struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`

	errs []error
}

// Err は失敗した項目のエラーをまとめて返します。全件成功なら nil です。
func (r BatchResult) Err() error {
	return errors.Join(r.errs...)
}

// runBatch は items の各要素に fn を適用します。同時に走るのは最大 limit 件で、0以下なら無制限です。
// 全ての呼び出しが終わるまで戻りません。
func runBatch[T any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) error) BatchResult {
	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	if limit > 0 {
		g.SetLimit(limit)
	}

	res := BatchResult{Total: len(items)}
	for _, item := range items {
		g.Go(func() error {
			err := fn(ctx, item)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed++
				res.errs = append(res.errs, err)
				return nil
			}
			res.Succeeded++
			return nil
		})
	}
	_ = g.Wait()
	return res
}
