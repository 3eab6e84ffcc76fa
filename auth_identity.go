package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
)

// SignInReason はサインイン失敗の原因の分類です。
type SignInReason string

const (
	SignInCancelled          SignInReason = "cancelled"
	SignInPopupBlocked       SignInReason = "popup_blocked"
	SignInUnauthorizedDomain SignInReason = "unauthorized_domain"
	SignInTokenExpired       SignInReason = "token_expired"
	SignInGeneric            SignInReason = "generic"
)

// Message は利用者に見せる文言です。
func (r SignInReason) Message() string {
	switch r {
	case SignInCancelled:
		return "ログインがキャンセルされました"
	case SignInPopupBlocked:
		return "ポップアップがブロックされました。ブラウザの設定でポップアップを許可してください"
	case SignInUnauthorizedDomain:
		return "このドメインはログインが許可されていません。管理者に連絡してください"
	case SignInTokenExpired:
		return "ログインの有効期限が切れました。もう一度ログインしてください"
	}
	return "ログインに失敗しました。もう一度お試しください"
}

// SignInError はサインイン失敗の原因を持つエラーです。
type SignInError struct {
	Reason SignInReason
	Err    error
}

func (e *SignInError) Error() string {
	if e.Err == nil {
		return "sign-in failed: " + string(e.Reason)
	}
	return fmt.Sprintf("sign-in failed (%s): %v", e.Reason, e.Err)
}

func (e *SignInError) Unwrap() error { return e.Err }

// ClassifyClientSignInError はブラウザ側のFirebase Authが返したエラーコードを分類します。
func ClassifyClientSignInError(code string) SignInReason {
	switch strings.TrimSpace(code) {
	case "auth/popup-closed-by-user", "auth/cancelled-popup-request":
		return SignInCancelled
	case "auth/popup-blocked":
		return SignInPopupBlocked
	case "auth/unauthorized-domain":
		return SignInUnauthorizedDomain
	case "auth/user-token-expired", "auth/id-token-expired":
		return SignInTokenExpired
	}
	return SignInGeneric
}

// classifyVerifyError はIDトークン検証のエラーを分類します。
func classifyVerifyError(err error) SignInReason {
	if auth.IsIDTokenExpired(err) {
		return SignInTokenExpired
	}
	return SignInGeneric
}

// tokenVerifier はIDトークンの検証です。*auth.Client が満たします。
type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// profileUpdater はFirebase Auth側のプロフィール更新です。*auth.Client が満たします。
type profileUpdater interface {
	UpdateUser(ctx context.Context, uid string, user *auth.UserToUpdate) (*auth.UserRecord, error)
}

// Identity はIDトークンを検証し、users ドキュメントを最新の状態に揃えます。
type Identity struct {
	verifier tokenVerifier
	users    UserStore
	now      func() time.Time
}

func NewIdentity(verifier tokenVerifier, users UserStore) *Identity {
	return &Identity{verifier: verifier, users: users, now: time.Now}
}

// SignIn はIDトークンを検証してユーザーを返します。
// 初回は isAdmin=false で users ドキュメントを作り、2回目以降はメール・表示名・写真・最終ログインを更新します。
func (id *Identity) SignIn(ctx context.Context, idToken string) (*UserRecord, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, &SignInError{Reason: SignInGeneric, Err: fmt.Errorf("%w: id token is required", ErrInvalidInput)}
	}
	token, err := id.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		logger.Warnw("failed to verify ID token", "error", err)
		return nil, &SignInError{Reason: classifyVerifyError(err), Err: err}
	}

	email := claimString(token, "email")
	name := claimString(token, "name")
	photo := strPtr(claimString(token, "picture"))
	now := id.now()

	existing, err := id.users.GetUser(ctx, token.UID)
	switch {
	case errors.Is(err, ErrNotFound):
		u := UserRecord{
			UID:         token.UID,
			Email:       email,
			DisplayName: name,
			PhotoURL:    photo,
			IsAdmin:     false,
			CreatedAt:   now,
			LastLogin:   now,
		}
		if err := id.users.CreateUser(ctx, u); err != nil {
			return nil, &SignInError{Reason: SignInGeneric, Err: fmt.Errorf("ユーザーの作成に失敗しました: %w", err)}
		}
		logger.Infow("user created", "uid", u.UID, "email", u.Email)
		return &u, nil
	case err != nil:
		return nil, &SignInError{Reason: SignInGeneric, Err: fmt.Errorf("ユーザーの取得に失敗しました: %w", err)}
	}

	fields := map[string]interface{}{
		"email":     email,
		"lastLogin": now,
	}
	// 表示名の変更はAuth側にも書き込むので、IDトークンの値が最新
	if name != "" {
		fields["displayName"] = name
		existing.DisplayName = name
	}
	if photo != nil {
		fields["photoURL"] = *photo
		existing.PhotoURL = photo
	}
	if err := id.users.UpdateUser(ctx, token.UID, fields); err != nil {
		return nil, &SignInError{Reason: SignInGeneric, Err: fmt.Errorf("ユーザーの更新に失敗しました: %w", err)}
	}
	existing.Email = email
	existing.LastLogin = now
	return existing, nil
}

func claimString(token *auth.Token, key string) string {
	if v, ok := token.Claims[key].(string); ok {
		return v
	}
	return ""
}
