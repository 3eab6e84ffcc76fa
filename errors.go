package main

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// 層をまたいで errors.Is で判定するための番兵エラー
var (
	ErrNotFound             = errors.New("not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrNotAdmin             = errors.New("admin privileges required")
	ErrAdminModeRequired    = errors.New("admin mode is not active")
	ErrInvalidDate          = errors.New("invalid date")
	ErrInvalidInput         = errors.New("invalid input")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrTargetNotSupported   = errors.New("broadcast target not supported")
	ErrSessionClosed        = errors.New("session closed")
)

// isFirestoreNotFound はFirestoreの「ドキュメントが存在しない」エラーかどうかを判定します。
func isFirestoreNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// errorResponse はエラーをHTTPステータスと利用者向けのメッセージに変換します。
// 想定外のエラーは fallback のメッセージにまとめ、詳細はログにだけ残します。
func errorResponse(err error, fallback string) (map[string]interface{}, int) {
	var signIn *SignInError
	switch {
	case errors.As(err, &signIn):
		return map[string]interface{}{"error": signIn.Reason.Message(), "reason": signIn.Reason}, http.StatusUnauthorized
	case errors.Is(err, ErrInvalidDate):
		return map[string]interface{}{"error": "日付の形式が正しくありません"}, http.StatusBadRequest
	case errors.Is(err, ErrInvalidInput):
		return map[string]interface{}{"error": "入力内容が正しくありません", "detail": err.Error()}, http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrSessionClosed):
		return map[string]interface{}{"error": "ログインが必要です"}, http.StatusUnauthorized
	case errors.Is(err, ErrNotAdmin):
		return map[string]interface{}{"error": "管理者のみ実行できます"}, http.StatusForbidden
	case errors.Is(err, ErrAdminModeRequired):
		return map[string]interface{}{"error": "管理者モードを有効にしてください"}, http.StatusForbidden
	case errors.Is(err, ErrConfirmationRequired):
		return map[string]interface{}{"error": "確認が必要です", "requiredConfirmations": requiredConfirmations}, http.StatusPreconditionRequired
	case errors.Is(err, ErrTargetNotSupported):
		return map[string]interface{}{"error": "この宛先はまだ利用できません"}, http.StatusNotImplemented
	case errors.Is(err, ErrNotFound):
		return map[string]interface{}{"error": "見つかりませんでした"}, http.StatusNotFound
	}
	logger.Errorw(fallback, "error", err)
	return map[string]interface{}{"error": fallback}, http.StatusInternalServerError
}
