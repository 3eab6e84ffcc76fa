package main

import (
	"context"
	"net/http"
)

// authenticate は Authorization ヘッダーのセッショントークンを検証し、リクエストにセッションを紐づけます。
// 失敗したときはそのまま返せるエラーレスポンスを返します。
func (a *App) authenticate(ctx context.Context, r *apiRequest) (map[string]interface{}, int) {
	token := r.bearerToken()
	if token == "" {
		// ヘッダーが無い、またはフォーマット不正
		return map[string]interface{}{"error": "ログインが必要です"}, http.StatusUnauthorized
	}

	sess, err := a.sessions.Resolve(ctx, token)
	if err != nil {
		logger.Warnw("failed to resolve session", "error", err)
		return errorResponse(err, "セッションの確認に失敗しました")
	}

	r.session = sess
	return nil, 0
}
