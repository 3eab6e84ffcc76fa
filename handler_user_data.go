package main

import (
	"context"
	"net/http"
	"strings"
	"unicode"

	"firebase.google.com/go/v4/auth"
)

// LetterRequest はアバター文字の変更リクエストです。空文字で設定を解除します。
type LetterRequest struct {
	CustomLetter string `json:"customLetter"`
}

// NameRequest は表示名の変更リクエストです。
type NameRequest struct {
	DisplayName string `json:"displayName"`
}

// normalizeLetter は前後の空白を除き、先頭の1文字を大文字にして返します。
func normalizeLetter(s string) string {
	for _, r := range strings.TrimSpace(s) {
		return string(unicode.ToUpper(r))
	}
	return ""
}

// processLetterUpdateRequest はアバターに表示する文字を保存します
func (a *App) processLetterUpdateRequest(ctx context.Context, r *apiRequest) (map[string]interface{}, int) {
	var req LetterRequest
	if err := r.decode(&req); err != nil {
		return errorResponse(err, "リクエストの処理に失敗しました")
	}

	uid := r.session.User().UID
	letter := strPtr(normalizeLetter(req.CustomLetter))

	var value interface{}
	if letter != nil {
		value = *letter
	}
	if err := a.store.UpdateUser(ctx, uid, map[string]interface{}{"customLetter": value}); err != nil {
		return errorResponse(err, "文字の保存に失敗しました")
	}
	r.session.updateUser(func(u *UserRecord) { u.CustomLetter = letter })

	logger.Infow("custom letter updated", "uid", uid, "letter", strVal(letter))
	return map[string]interface{}{
		"message":      "文字を保存しました",
		"customLetter": letter,
	}, http.StatusOK
}

// processNameUpdateRequest は表示名をFirebase AuthとFirestoreの両方に保存します
func (a *App) processNameUpdateRequest(ctx context.Context, r *apiRequest) (map[string]interface{}, int) {
	var req NameRequest
	if err := r.decode(&req); err != nil {
		return errorResponse(err, "リクエストの処理に失敗しました")
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return map[string]interface{}{"error": "表示名は必須です"}, http.StatusBadRequest
	}

	uid := r.session.User().UID
	if a.profiles != nil {
		if _, err := a.profiles.UpdateUser(ctx, uid, (&auth.UserToUpdate{}).DisplayName(name)); err != nil {
			return errorResponse(err, "表示名の保存に失敗しました")
		}
	}
	if err := a.store.UpdateUser(ctx, uid, map[string]interface{}{"displayName": name}); err != nil {
		return errorResponse(err, "表示名の保存に失敗しました")
	}
	r.session.updateUser(func(u *UserRecord) { u.DisplayName = name })

	logger.Infow("display name updated", "uid", uid)
	return map[string]interface{}{
		"message":     "表示名を保存しました",
		"displayName": name,
	}, http.StatusOK
}
