package main

import (
	"context"
	"net/http"
)

// ToggleRequest は日付タップのリクエストです。
type ToggleRequest struct {
	Date string `json:"date"`
}

// AssignRequest は管理者モードでのユーザー指定のリクエストです。
type AssignRequest struct {
	Date   string `json:"date"`
	UserID string `json:"userId"`
}

// GestureRequest はタッチ入力1回分です。
type GestureRequest struct {
	Type           string  `json:"type"` // start, move, end, cancel
	Y              float64 `json:"y"`
	ScrollY        float64 `json:"scrollY"`
	ViewportHeight float64 `json:"viewportHeight"`
}

// processEventsGetRequest はイベント一覧、ユーザーのメタデータ、アバター、凡例を返します
func (a *App) processEventsGetRequest(ctx context.Context, r *apiRequest) (map[string]interface{}, int) {
	if err := a.ensureFresh(ctx); err != nil {
		// 取得に失敗しても手元の状態を返す
		logger.Warnw("serving cached events", "error", err)
	}

	viewer := r.session.User()
	evs := a.sync.Events()
	usersMap := a.sync.UsersMap()

	avatars := make(map[string]Avatar, len(evs))
	for _, ev := range evs {
		avatars[ev.ID] = ResolveAvatar(ev, &viewer, usersMap)
	}

	return map[string]interface{}{
		"events":   evs,
		"usersMap": usersMap,
		"avatars":  avatars,
		"legend":   BuildLegend(evs, &viewer, usersMap),
		"loading":  a.sync.Loading(),
	}, http.StatusOK
}

// processRefreshRequest は引っ張って更新と同じ1回だけの再取得です
func (a *App) processRefreshRequest(ctx context.Context, r *apiRequest) (map[string]interface{}, int) {
	if err := a.sync.RefreshOnce(ctx); err != nil {
		return errorResponse(err, "イベントの再取得に失敗しました")
	}
	return map[string]interface{}{
		"events":   a.sync.Events(),
		"usersMap": a.sync.UsersMap(),
	}, http.StatusOK
}

// processToggleRequest は日付のタップを処理します
func (a *App) processToggleRequest(ctx context.Context, r *apiRequest) (map[string]interface{}, int) {
	var req ToggleRequest
	if err := r.decode(&req); err != nil {
		return errorResponse(err, "リクエストの処理に失敗しました")
	}
	if err := a.ensureFresh(ctx); err != nil {
		return errorResponse(err, "イベントの取得に失敗しました")
	}

	actor, err := a.sessions.CurrentActor(ctx, r.session)
	if err != nil {
		return errorResponse(err, "権限の確認に失敗しました")
	}
	res, err := a.calendar.ActivateDate(ctx, actor, req.Date)
	if err != nil {
		return errorResponse(err, "予定の更新に失敗しました。もう一度お試しください")
	}
	return map[string]interface{}{"result": res}, http.StatusOK
}

// processAssignRequest は管理者モードで選んだユーザーの予定を切り替えます
func (a *App) processAssignRequest(ctx context.Context, r *apiRequest) (map[string]interface{}, int) {
	var req AssignRequest
	if err := r.decode(&req); err != nil {
		return errorResponse(err, "リクエストの処理に失敗しました")
	}
	if err := a.ensureFresh(ctx); err != nil {
		return errorResponse(err, "イベントの取得に失敗しました")
	}

	actor, err := a.sessions.CurrentActor(ctx, r.session)
	if err != nil {
		return errorResponse(err, "権限の確認に失敗しました")
	}
	res, err := a.calendar.AssignToUser(ctx, actor, req.Date, req.UserID)
	if err != nil {
		return errorResponse(err, "予定の更新に失敗しました。もう一度お試しください")
	}
	return map[string]interface{}{"result": res}, http.StatusOK
}

// processUsersGetRequest はユーザー選択用の一覧を返します
func (a *App) processUsersGetRequest(ctx context.Context, r *apiRequest) (map[string]interface{}, int) {
	users, err := a.calendar.ListSelectableUsers(ctx)
	if err != nil {
		return errorResponse(err, "ユーザー一覧の取得に失敗しました")
	}
	return map[string]interface{}{"users": users}, http.StatusOK
}

// processCalendarGetRequest は月表示のデータを返します
func (a *App) processCalendarGetRequest(ctx context.Context, r *apiRequest) (map[string]interface{}, int) {
	year, month, move, err := parseMonthQuery(r, a.now())
	if err != nil {
		return errorResponse(err, "リクエストの処理に失敗しました")
	}
	year, month = adjustDate(year, month, move)

	if err := a.ensureFresh(ctx); err != nil {
		logger.Warnw("serving cached events", "error", err)
	}
	viewer := r.session.User()
	view := buildMonthView(year, month, a.sync.Events(), &viewer, a.sync.UsersMap())
	return map[string]interface{}{
		"year":  view.Year,
		"month": view.Month,
		"days":  view.Days,
	}, http.StatusOK
}

// processGestureRequest はタッチ入力をセッションのジェスチャートラッカーに渡し、現在の状態を返します
func (a *App) processGestureRequest(ctx context.Context, r *apiRequest) (map[string]interface{}, int) {
	var req GestureRequest
	if err := r.decode(&req); err != nil {
		return errorResponse(err, "リクエストの処理に失敗しました")
	}

	if req.ViewportHeight <= 0 {
		return map[string]interface{}{"error": "viewportHeight は必須です"}, http.StatusBadRequest
	}

	tracker := r.session.Gesture(func() *GestureTracker {
		return a.newGestureTracker(req.ViewportHeight)
	})

	preventDefault := false
	switch req.Type {
	case "start":
		tracker.SetViewport(req.ViewportHeight)
		tracker.TouchStart(req.Y, req.ScrollY)
	case "move":
		preventDefault = tracker.TouchMove(req.Y, req.ScrollY)
	case "end":
		tracker.TouchEnd(ctx)
	case "cancel":
		tracker.TouchCancel(ctx)
	default:
		return map[string]interface{}{"error": "不明な入力です"}, http.StatusBadRequest
	}

	if a.awaitRefresh && (req.Type == "end" || req.Type == "cancel") {
		// 応答を返すと実行環境が止まるため、更新の完了を待ってから返す
		tracker.Wait()
	}

	return map[string]interface{}{
		"state":          tracker.State(),
		"preventDefault": preventDefault,
	}, http.StatusOK
}
