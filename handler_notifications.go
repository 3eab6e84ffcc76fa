package main

import (
	"context"
	"net/http"
)

// NotificationCreateRequest は通知1件の作成リクエストです。
type NotificationCreateRequest struct {
	Type    NotificationType `json:"type"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	UserID  string           `json:"userId"`
}

// AdminClearRequest は全通知削除のリクエストです。confirmations は利用者が確認した回数です。
type AdminClearRequest struct {
	Confirmations int `json:"confirmations"`
}

func (a *App) processNotificationsGetRequest(ctx context.Context, r *apiRequest) (map[string]interface{}, int) {
	list, err := a.notifications.List(ctx, r.session.User().UID)
	if err != nil {
		return errorResponse(err, "通知の取得に失敗しました")
	}
	return map[string]interface{}{"notifications": list}, http.StatusOK
}

func (a *App) processNotificationCreateRequest(ctx context.Context, r *apiRequest) (map[string]interface{}, int) {
	var req NotificationCreateRequest
	if err := r.decode(&req); err != nil {
		return errorResponse(err, "リクエストの処理に失敗しました")
	}
	actor, err := a.sessions.CurrentActor(ctx, r.session)
	if err != nil {
		return errorResponse(err, "権限の確認に失敗しました")
	}
	id, err := a.notifications.Create(ctx, actor, Notification{
		Type:    req.Type,
		Title:   req.Title,
		Message: req.Message,
		UserID:  req.UserID,
	})
	if err != nil {
		return errorResponse(err, "通知の作成に失敗しました")
	}
	return map[string]interface{}{"id": id}, http.StatusCreated
}

func (a *App) processNotificationsClearRequest(ctx context.Context, r *apiRequest) (map[string]interface{}, int) {
	res, err := a.notifications.ClearAll(ctx, r.session.User().UID)
	if err != nil {
		return errorResponse(err, "通知の削除に失敗しました")
	}
	return batchResponse(res)
}

// processUnreadCountRequest は未読件数を1回だけ数えて返します
func (a *App) processUnreadCountRequest(ctx context.Context, r *apiRequest) (map[string]interface{}, int) {
	list, err := a.notifications.List(ctx, r.session.User().UID)
	if err != nil {
		// 未読件数はエラー時0として扱う
		logger.Warnw("failed to count unread notifications", "error", err)
		return map[string]interface{}{"unread": 0}, http.StatusOK
	}
	unread := 0
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}
	return map[string]interface{}{"unread": unread}, http.StatusOK
}

func (a *App) processReadAllRequest(ctx context.Context, r *apiRequest) (map[string]interface{}, int) {
	res, err := a.notifications.MarkAllRead(ctx, r.session.User().UID)
	if err != nil {
		return errorResponse(err, "通知の更新に失敗しました")
	}
	return batchResponse(res)
}

func (a *App) processMarkReadRequest(ctx context.Context, r *apiRequest) (map[string]interface{}, int) {
	if err := a.notifications.MarkRead(ctx, r.session.User().UID, r.params["id"]); err != nil {
		return errorResponse(err, "通知の更新に失敗しました")
	}
	return map[string]interface{}{"message": "既読にしました"}, http.StatusOK
}

func (a *App) processNotificationDeleteRequest(ctx context.Context, r *apiRequest) (map[string]interface{}, int) {
	if err := a.notifications.Delete(ctx, r.session.User().UID, r.params["id"]); err != nil {
		return errorResponse(err, "通知の削除に失敗しました")
	}
	return map[string]interface{}{"message": "削除しました"}, http.StatusOK
}

func (a *App) processBroadcastRequest(ctx context.Context, r *apiRequest) (map[string]interface{}, int) {
	var req BroadcastRequest
	if err := r.decode(&req); err != nil {
		return errorResponse(err, "リクエストの処理に失敗しました")
	}
	actor, err := a.sessions.CurrentActor(ctx, r.session)
	if err != nil {
		return errorResponse(err, "権限の確認に失敗しました")
	}
	res, err := a.notifications.CreateBroadcast(ctx, actor, req)
	if err != nil {
		return errorResponse(err, "通知の送信に失敗しました")
	}
	return batchResponse(res)
}

func (a *App) processAdminClearRequest(ctx context.Context, r *apiRequest) (map[string]interface{}, int) {
	var req AdminClearRequest
	if err := r.decode(&req); err != nil {
		return errorResponse(err, "リクエストの処理に失敗しました")
	}
	actor, err := a.sessions.CurrentActor(ctx, r.session)
	if err != nil {
		return errorResponse(err, "権限の確認に失敗しました")
	}
	res, err := a.notifications.AdminBroadcastClear(ctx, actor, req.Confirmations)
	if err != nil {
		return errorResponse(err, "通知の削除に失敗しました")
	}
	return batchResponse(res)
}

// batchResponse は一部失敗も含めた件数を返します。1件でも失敗していれば 207 です。
func batchResponse(res BatchResult) (map[string]interface{}, int) {
	body := map[string]interface{}{
		"total":     res.Total,
		"succeeded": res.Succeeded,
		"failed":    res.Failed,
	}
	if res.Failed > 0 {
		body["error"] = "一部の処理に失敗しました"
		return body, http.StatusMultiStatus
	}
	return body, http.StatusOK
}
