package main

import (
	"context"
	"errors"
	"net/http"
)

// SignInRequest はサインインのリクエストです。
// ブラウザ側のサインインが失敗した場合は ErrorCode だけを送り、表示用のメッセージを受け取ります。
type SignInRequest struct {
	IDToken   string `json:"idToken"`
	ErrorCode string `json:"errorCode,omitempty"`
}

// processSignInRequest はIDトークンを検証してセッションを開始します
func (a *App) processSignInRequest(ctx context.Context, r *apiRequest) (map[string]interface{}, int) {
	var req SignInRequest
	if err := r.decode(&req); err != nil {
		return errorResponse(err, "リクエストの処理に失敗しました")
	}

	if req.ErrorCode != "" {
		reason := ClassifyClientSignInError(req.ErrorCode)
		logger.Infow("client sign-in failed", "code", req.ErrorCode, "reason", reason)
		return map[string]interface{}{"error": reason.Message(), "reason": reason}, http.StatusUnauthorized
	}

	user, err := a.identity.SignIn(ctx, req.IDToken)
	if err != nil {
		return errorResponse(err, "ログインに失敗しました")
	}

	sess, token, err := a.sessions.Open(*user)
	if err != nil {
		return errorResponse(err, "セッションの作成に失敗しました")
	}

	return map[string]interface{}{
		"token":     token,
		"expiresAt": sess.ExpiresAt,
		"user":      user,
		"adminMode": false,
	}, http.StatusOK
}

// processSignOutRequest はセッションを破棄します。管理者モードもここで解除されます。
func (a *App) processSignOutRequest(ctx context.Context, r *apiRequest) (map[string]interface{}, int) {
	a.sessions.Close(r.session)
	return map[string]interface{}{"message": "ログアウトしました"}, http.StatusOK
}

// processAdminModeRequest は管理者モードを切り替え、状態を載せたトークンを発行し直します
func (a *App) processAdminModeRequest(ctx context.Context, r *apiRequest) (map[string]interface{}, int) {
	if _, err := a.sessions.CurrentActor(ctx, r.session); err != nil {
		return errorResponse(err, "権限の確認に失敗しました")
	}
	enabled, err := r.session.ToggleAdminMode()
	if err != nil {
		if errors.Is(err, ErrNotAdmin) {
			logger.Warnw("non-admin tried to toggle admin mode", "uid", r.session.User().UID)
		}
		return errorResponse(err, "管理者モードの切り替えに失敗しました")
	}

	token, err := a.sessions.Reissue(r.session)
	if err != nil {
		return errorResponse(err, "セッションの更新に失敗しました")
	}

	logger.Infow("admin mode toggled", "uid", r.session.User().UID, "enabled", enabled)
	return map[string]interface{}{"adminMode": enabled, "token": token}, http.StatusOK
}
