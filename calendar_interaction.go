package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ToggleAction は日付をタップした結果です。
type ToggleAction string

const (
	ActionCreated ToggleAction = "created"
	ActionDeleted ToggleAction = "deleted"
	// ActionSelectUser は管理者モードで、対象ユーザーの選択が必要なことを表す
	ActionSelectUser ToggleAction = "select_user"
)

// ToggleResult は1回のタップで起きたことです。作成か削除のどちらか1回だけが行われます。
type ToggleResult struct {
	Action  ToggleAction `json:"action"`
	Date    string       `json:"date"`
	UserID  string       `json:"userId,omitempty"`
	EventID string       `json:"eventId,omitempty"`
}

// CalendarInteraction は日付のタップをイベントの作成・削除に変換します。
// 書き込み前にローカルの状態は変えず、結果はライブ購読を通して反映されます。
type CalendarInteraction struct {
	events EventStore
	users  UserStore
	mirror *EventSync
	now    func() time.Time
}

func NewCalendarInteraction(events EventStore, users UserStore, mirror *EventSync) *CalendarInteraction {
	return &CalendarInteraction{events: events, users: users, mirror: mirror, now: time.Now}
}

// ActivateDate は日付のタップを処理します。
// 管理者モードの管理者には ActionSelectUser を返し、それ以外は本人の予定を切り替えます。
func (ci *CalendarInteraction) ActivateDate(ctx context.Context, actor Actor, date string) (ToggleResult, error) {
	if err := validateDate(date); err != nil {
		return ToggleResult{}, err
	}
	if actor.User.IsAdmin && actor.AdminMode {
		return ToggleResult{Action: ActionSelectUser, Date: date}, nil
	}
	return ci.toggle(ctx, date, actor.User.UID, func() (CalendarEvent, error) {
		return eventFor(actor.User, date, actor.User.UID, ci.now()), nil
	})
}

// AssignToUser は管理者モードで選ばれたユーザーの予定を切り替えます。
// 新規作成時は対象ユーザーのプロフィールをその場で取得し直し、createdBy には管理者を記録します。
func (ci *CalendarInteraction) AssignToUser(ctx context.Context, actor Actor, date, targetUID string) (ToggleResult, error) {
	if !actor.User.IsAdmin {
		return ToggleResult{}, ErrNotAdmin
	}
	if !actor.AdminMode {
		return ToggleResult{}, ErrAdminModeRequired
	}
	if err := validateDate(date); err != nil {
		return ToggleResult{}, err
	}
	if targetUID == "" {
		return ToggleResult{}, fmt.Errorf("%w: target user is required", ErrInvalidInput)
	}

	return ci.toggle(ctx, date, targetUID, func() (CalendarEvent, error) {
		target, err := ci.users.GetUser(ctx, targetUID)
		if err != nil {
			return CalendarEvent{}, fmt.Errorf("対象ユーザーの取得に失敗しました: %w", err)
		}
		return eventFor(*target, date, actor.User.UID, ci.now()), nil
	})
}

// ListSelectableUsers はユーザー選択用の一覧です。管理者が先、その後は名前順です。
func (ci *CalendarInteraction) ListSelectableUsers(ctx context.Context) ([]UserRecord, error) {
	users, err := ci.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].IsAdmin != users[j].IsAdmin {
			return users[i].IsAdmin
		}
		return strings.ToLower(users[i].displayNameOrFallback()) < strings.ToLower(users[j].displayNameOrFallback())
	})
	return users, nil
}

// toggle は (date, uid) の予定があれば削除し、無ければ build で作った予定を追加します。
func (ci *CalendarInteraction) toggle(ctx context.Context, date, uid string, build func() (CalendarEvent, error)) (ToggleResult, error) {
	if existing, ok := findEvent(ci.mirror.Events(), date, uid); ok {
		if err := ci.events.DeleteEvent(ctx, existing.ID); err != nil {
			logger.Errorw("failed to delete event", "event", existing.ID, "date", date, "uid", uid, "error", err)
			return ToggleResult{}, fmt.Errorf("予定の削除に失敗しました: %w", err)
		}
		logger.Infow("event deleted", "event", existing.ID, "date", date, "uid", uid)
		return ToggleResult{Action: ActionDeleted, Date: date, UserID: uid, EventID: existing.ID}, nil
	}

	ev, err := build()
	if err != nil {
		logger.Errorw("failed to build event", "date", date, "uid", uid, "error", err)
		return ToggleResult{}, err
	}
	id, err := ci.events.CreateEvent(ctx, ev)
	if err != nil {
		logger.Errorw("failed to create event", "date", date, "uid", uid, "error", err)
		return ToggleResult{}, fmt.Errorf("予定の作成に失敗しました: %w", err)
	}
	logger.Infow("event created", "event", id, "date", date, "uid", uid, "createdBy", ev.CreatedBy)
	return ToggleResult{Action: ActionCreated, Date: date, UserID: uid, EventID: id}, nil
}

// findEvent は (date, uid) に一致する最初の予定を返します。
func findEvent(events []CalendarEvent, date, uid string) (CalendarEvent, bool) {
	for _, ev := range events {
		if ev.Date == date && ev.UserID == uid {
			return ev, true
		}
	}
	return CalendarEvent{}, false
}

// eventFor は user のその時点のプロフィールを写した予定を作ります。
func eventFor(user UserRecord, date, createdBy string, now time.Time) CalendarEvent {
	return CalendarEvent{
		Date:         date,
		UserID:       user.UID,
		UserName:     user.displayNameOrFallback(),
		UserPhoto:    user.PhotoURL,
		CreatedAt:    now,
		CreatedBy:    createdBy,
		CustomLetter: user.CustomLetter,
	}
}

func validateDate(date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}

const dateLayout = "2006-01-02"

