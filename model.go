package main

import (
	"strings"
	"time"
)

// CalendarEvent は「あるユーザーがある日を押さえた」ことを表す1件のイベントです。
// (Date, UserID) の組を一意なキーとして扱います。
type CalendarEvent struct {
	ID           string    `json:"id" firestore:"-"`
	Date         string    `json:"date" firestore:"date"` // "YYYY-MM-DD"
	UserID       string    `json:"userId" firestore:"userId"`
	UserName     string    `json:"userName" firestore:"userName"`
	UserPhoto    *string   `json:"userPhoto,omitempty" firestore:"userPhoto"`
	Title        *string   `json:"title,omitempty" firestore:"title"`
	CreatedAt    time.Time `json:"createdAt" firestore:"createdAt"`
	CreatedBy    string    `json:"createdBy,omitempty" firestore:"createdBy"`
	CustomLetter *string   `json:"customLetter,omitempty" firestore:"customLetter"`
}

// UserRecord は users/{uid} ドキュメントです。
type UserRecord struct {
	UID          string    `json:"uid" firestore:"uid"`
	Email        string    `json:"email" firestore:"email"`
	DisplayName  string    `json:"displayName" firestore:"displayName"`
	PhotoURL     *string   `json:"photoURL,omitempty" firestore:"photoURL,omitempty"`
	IsAdmin      bool      `json:"isAdmin" firestore:"isAdmin"`
	CustomLetter *string   `json:"customLetter,omitempty" firestore:"customLetter,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitempty" firestore:"createdAt,omitempty"`
	LastLogin    time.Time `json:"lastLogin,omitempty" firestore:"lastLogin,omitempty"`
}

// displayNameOrFallback は表示名が空のとき、メールアドレスのローカル部、最後に既定の呼び名を返します。
func (u UserRecord) displayNameOrFallback() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if local, _, ok := strings.Cut(u.Email, "@"); ok && local != "" {
		return local
	}
	return defaultUserLabel
}

const defaultUserLabel = "ユーザー"

// UserMeta はメタデータキャッシュの1エントリです。
type UserMeta struct {
	DisplayName  string  `json:"displayName"`
	CustomLetter *string `json:"customLetter,omitempty"`
}

// NotificationType は通知の種類です。
type NotificationType string

const (
	NotificationEvent    NotificationType = "event"
	NotificationReminder NotificationType = "reminder"
	NotificationSystem   NotificationType = "system"
)

func (t NotificationType) valid() bool {
	switch t {
	case NotificationEvent, NotificationReminder, NotificationSystem:
		return true
	}
	return false
}

// Notification は notifications/{id} ドキュメントです。
type Notification struct {
	ID        string           `json:"id" firestore:"-"`
	Type      NotificationType `json:"type" firestore:"type"`
	Title     string           `json:"title" firestore:"title"`
	Message   string           `json:"message" firestore:"message"`
	CreatedAt time.Time        `json:"createdAt" firestore:"createdAt"`
	Read      bool             `json:"read" firestore:"read"`
	UserID    string           `json:"userId" firestore:"userId"`
}

// strPtr は空文字を「未設定」(nil) として扱うポインタ変換です。
func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
