package main

import (
	"context"
	"errors"
	"fmt"
)

// promoteToAdmin はメールアドレスで探したユーザーを管理者にします。
func promoteToAdmin(ctx context.Context, users UserStore, email string) (*UserRecord, error) {
	u, err := users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("ユーザーが見つかりません (%s): %w", email, err)
		}
		return nil, err
	}
	if u.IsAdmin {
		return u, nil
	}
	if err := users.UpdateUser(ctx, u.UID, map[string]interface{}{"isAdmin": true}); err != nil {
		return nil, fmt.Errorf("管理者の設定に失敗しました: %w", err)
	}
	u.IsAdmin = true
	return u, nil
}
