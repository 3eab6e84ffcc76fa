package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// BroadcastTarget は一斉通知の宛先です。
type BroadcastTarget string

const (
	BroadcastAll BroadcastTarget = "all"
	// BroadcastSpecific は受け付けるが、まだ実装されていない
	BroadcastSpecific BroadcastTarget = "specific"
)

// requiredConfirmations は全通知削除の前に必要な確認の回数です。
const requiredConfirmations = 2

// BroadcastRequest は一斉通知の内容です。
type BroadcastRequest struct {
	Type    NotificationType `json:"type"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Target  BroadcastTarget  `json:"target"`
}

// NotificationController は通知の一覧・既読化・削除・一斉送信を扱います。
type NotificationController struct {
	store       NotificationStore
	users       UserStore
	concurrency int
	now         func() time.Time
}

func NewNotificationController(store NotificationStore, users UserStore, concurrency int) *NotificationController {
	return &NotificationController{store: store, users: users, concurrency: concurrency, now: time.Now}
}

// List はユーザーの通知を新しい順に返します。
// 並び替え用のインデックスが無い場合は、条件だけのクエリで取得して手元で並べ替えます。
func (c *NotificationController) List(ctx context.Context, userID string) ([]Notification, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	list, err := c.store.ListNotifications(ctx, userID)
	if err == nil {
		return list, nil
	}
	if status.Code(err) != codes.FailedPrecondition {
		return nil, fmt.Errorf("通知の取得に失敗しました: %w", err)
	}

	logger.Warnw("notification index missing, falling back to unordered query", "uid", userID, "error", err)
	list, err = c.store.ListNotificationsUnordered(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("通知の取得に失敗しました: %w", err)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// Create は1件の通知を作成します。宛先を省略すると本人宛てになります。
// 本人以外を宛先にできるのは管理者だけです。
func (c *NotificationController) Create(ctx context.Context, actor Actor, n Notification) (string, error) {
	if actor.User.UID == "" {
		return "", ErrUnauthorized
	}
	if err := validateNotification(n.Type, n.Title, n.Message); err != nil {
		return "", err
	}
	if n.UserID == "" {
		n.UserID = actor.User.UID
	}
	if n.UserID != actor.User.UID && !actor.User.IsAdmin {
		return "", ErrNotAdmin
	}
	n.ID = ""
	n.Read = false
	n.CreatedAt = c.now()
	id, err := c.store.CreateNotification(ctx, n)
	if err != nil {
		return "", fmt.Errorf("通知の作成に失敗しました: %w", err)
	}
	return id, nil
}

// MarkRead は userID 宛ての通知を既読にします。他人の通知は ErrNotFound です。
func (c *NotificationController) MarkRead(ctx context.Context, userID, id string) error {
	if err := c.checkOwner(ctx, userID, id); err != nil {
		return err
	}
	return c.store.MarkNotificationRead(ctx, id)
}

func (c *NotificationController) Delete(ctx context.Context, userID, id string) error {
	if err := c.checkOwner(ctx, userID, id); err != nil {
		return err
	}
	return c.store.DeleteNotification(ctx, id)
}

// checkOwner は通知が userID のものであることを確かめます。
// 存在を推測されないよう、他人の通知も見つからない扱いにします。
func (c *NotificationController) checkOwner(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrUnauthorized
	}
	if id == "" {
		return fmt.Errorf("%w: notification id is required", ErrInvalidInput)
	}
	n, err := c.store.GetNotification(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		logger.Warnw("notification access by another user", "uid", userID, "id", id)
		return ErrNotFound
	}
	return nil
}

// MarkAllRead は読み込んだ通知のうち未読のものを全て既読にします。
// 一部が失敗しても残りは続行し、件数を結果として返します。
func (c *NotificationController) MarkAllRead(ctx context.Context, userID string) (BatchResult, error) {
	list, err := c.List(ctx, userID)
	if err != nil {
		return BatchResult{}, err
	}
	var unread []string
	for _, n := range list {
		if !n.Read {
			unread = append(unread, n.ID)
		}
	}
	res := runBatch(ctx, c.concurrency, unread, c.store.MarkNotificationRead)
	logBatch("mark all read", userID, res)
	return res, nil
}

// ClearAll はユーザーの通知を全て削除します。
func (c *NotificationController) ClearAll(ctx context.Context, userID string) (BatchResult, error) {
	list, err := c.List(ctx, userID)
	if err != nil {
		return BatchResult{}, err
	}
	ids := make([]string, 0, len(list))
	for _, n := range list {
		ids = append(ids, n.ID)
	}
	res := runBatch(ctx, c.concurrency, ids, c.store.DeleteNotification)
	logBatch("clear all", userID, res)
	return res, nil
}

// AdminBroadcastClear は全ユーザーの通知を削除します。
// 管理者のみで、2回の確認が必要です。削除は全て並行に発行し、全件の完了を待ちます。
func (c *NotificationController) AdminBroadcastClear(ctx context.Context, actor Actor, confirmations int) (BatchResult, error) {
	if !actor.User.IsAdmin {
		return BatchResult{}, ErrNotAdmin
	}
	if confirmations < requiredConfirmations {
		return BatchResult{}, ErrConfirmationRequired
	}
	ids, err := c.store.ListAllNotificationIDs(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("通知の取得に失敗しました: %w", err)
	}
	res := runBatch(ctx, 0, ids, c.store.DeleteNotification)
	logBatch("admin clear", actor.User.UID, res)
	return res, nil
}

// CreateBroadcast は一斉通知を作成します。宛先が all の場合、ユーザーごとに同じ内容の通知を1件ずつ作ります。
func (c *NotificationController) CreateBroadcast(ctx context.Context, actor Actor, req BroadcastRequest) (BatchResult, error) {
	if !actor.User.IsAdmin {
		return BatchResult{}, ErrNotAdmin
	}
	if err := validateNotification(req.Type, req.Title, req.Message); err != nil {
		return BatchResult{}, err
	}

	switch req.Target {
	case BroadcastAll:
	case BroadcastSpecific:
		return BatchResult{}, ErrTargetNotSupported
	default:
		return BatchResult{}, fmt.Errorf("%w: unknown target %q", ErrInvalidInput, req.Target)
	}

	users, err := c.users.ListUsers(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	createdAt := c.now()
	res := runBatch(ctx, c.concurrency, users, func(ctx context.Context, u UserRecord) error {
		_, err := c.store.CreateNotification(ctx, Notification{
			Type:      req.Type,
			Title:     req.Title,
			Message:   req.Message,
			CreatedAt: createdAt,
			UserID:    u.UID,
		})
		return err
	})
	logBatch("broadcast", actor.User.UID, res)
	return res, nil
}

func validateNotification(t NotificationType, title, message string) error {
	if !t.valid() {
		return fmt.Errorf("%w: unknown notification type %q", ErrInvalidInput, t)
	}
	if strings.TrimSpace(title) == "" || strings.TrimSpace(message) == "" {
		return fmt.Errorf("%w: title and message are required", ErrInvalidInput)
	}
	return nil
}

func logBatch(op, uid string, res BatchResult) {
	if res.Failed > 0 {
		logger.Warnw("batch finished with failures", "op", op, "uid", uid,
			"total", res.Total, "succeeded", res.Succeeded, "failed", res.Failed, "error", res.Err())
		return
	}
	logger.Infow("batch finished", "op", op, "uid", uid, "total", res.Total)
}

// UnreadCounter は未読件数のライブ購読です。
type UnreadCounter struct {
	mu        sync.Mutex
	count     int
	listeners map[chan int]struct{}

	stream *Stream[int]
	done   chan struct{}
	once   sync.Once
}

// SubscribeUnreadCount は userID の未読件数の購読を開始します。
// userID が空のとき、またはエラーが起きたときの件数は0です。
func (c *NotificationController) SubscribeUnreadCount(ctx context.Context, userID string) *UnreadCounter {
	u := &UnreadCounter{listeners: map[chan int]struct{}{}, done: make(chan struct{})}
	if userID == "" {
		close(u.done)
		return u
	}

	u.stream = c.store.WatchUnreadCount(ctx, userID)
	go func() {
		defer close(u.done)
		for snap := range u.stream.C {
			if snap.Err != nil {
				logger.Errorw("unread count subscription failed", "uid", userID, "error", snap.Err)
				u.set(0)
				continue
			}
			u.set(snap.Value)
		}
	}()
	return u
}

// Count は最新の未読件数です。
func (u *UnreadCounter) Count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.count
}

// Watch は件数が変わるたびに最新値を受け取るチャネルを返します。
// 受信が遅れた場合は古い値を捨てて最新値だけを残します。不要になったら stop を呼んでください。
func (u *UnreadCounter) Watch() (updates <-chan int, stop func()) {
	ch := make(chan int, 1)
	u.mu.Lock()
	ch <- u.count
	u.listeners[ch] = struct{}{}
	u.mu.Unlock()

	return ch, func() {
		u.mu.Lock()
		delete(u.listeners, ch)
		u.mu.Unlock()
	}
}

// Done は購読が終わると閉じられます。
func (u *UnreadCounter) Done() <-chan struct{} {
	return u.done
}

// Stop は購読を止めます。何度呼んでも安全です。
func (u *UnreadCounter) Stop() {
	u.once.Do(func() {
		if u.stream != nil {
			u.stream.Cancel()
		}
		<-u.done
	})
}

func (u *UnreadCounter) set(n int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.count = n
	for ch := range u.listeners {
		select {
		case <-ch:
		default:
		}
		ch <- n
	}
}
