package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var errBoom = errors.New("boom")

// fakeStore は Store のメモリ上の実装です。
type fakeStore struct {
	mu            sync.Mutex
	nextID        int
	events        map[string]CalendarEvent
	users         map[string]UserRecord
	notifications map[string]Notification

	listEventsErr       error
	createEventErr      error
	deleteEventErr      error
	getUserErr          map[string]error
	listNotificationErr error
	failNotification    map[string]bool

	getUserCalls []string

	eventFeeds  []chan Snapshot[[]CalendarEvent]
	unreadFeeds []chan Snapshot[int]
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:           map[string]CalendarEvent{},
		users:            map[string]UserRecord{},
		notifications:    map[string]Notification{},
		getUserErr:       map[string]error{},
		failNotification: map[string]bool{},
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) addUser(u UserRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.UID] = u
}

func (f *fakeStore) addEvent(ev CalendarEvent) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ev.ID == "" {
		ev.ID = f.id("ev")
	}
	f.events[ev.ID] = ev
	return ev.ID
}

func (f *fakeStore) addNotification(n Notification) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n.ID == "" {
		n.ID = f.id("n")
	}
	f.notifications[n.ID] = n
	return n.ID
}

func (f *fakeStore) eventsFor(date, uid string) []CalendarEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []CalendarEvent
	for _, ev := range f.events {
		if ev.Date == date && ev.UserID == uid {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fakeStore) allNotifications() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Notification, 0, len(f.notifications))
	for _, n := range f.notifications {
		out = append(out, n)
	}
	return out
}

// pushEvents はライブ購読中の全ストリームにスナップショットを流します。
func (f *fakeStore) pushEvents(events []CalendarEvent, err error) {
	f.mu.Lock()
	feeds := append([]chan Snapshot[[]CalendarEvent](nil), f.eventFeeds...)
	f.mu.Unlock()
	for _, ch := range feeds {
		ch <- Snapshot[[]CalendarEvent]{Value: events, Err: err}
	}
}

func (f *fakeStore) pushUnread(n int, err error) {
	f.mu.Lock()
	feeds := append([]chan Snapshot[int](nil), f.unreadFeeds...)
	f.mu.Unlock()
	for _, ch := range feeds {
		ch <- Snapshot[int]{Value: n, Err: err}
	}
}

func feed[T any](ctx context.Context, ch chan Snapshot[T], emit func(T, error) bool) {
	for {
		select {
		case s := <-ch:
			if !emit(s.Value, s.Err) {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// EventStore

func (f *fakeStore) ListEvents(ctx context.Context) ([]CalendarEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listEventsErr != nil {
		return nil, f.listEventsErr
	}
	out := make([]CalendarEvent, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeStore) WatchEvents(ctx context.Context) *Stream[[]CalendarEvent] {
	ch := make(chan Snapshot[[]CalendarEvent], 8)
	f.mu.Lock()
	f.eventFeeds = append(f.eventFeeds, ch)
	f.mu.Unlock()
	return newStream(ctx, func(ctx context.Context, emit func([]CalendarEvent, error) bool) {
		feed(ctx, ch, emit)
	})
}

func (f *fakeStore) CreateEvent(ctx context.Context, ev CalendarEvent) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createEventErr != nil {
		return "", f.createEventErr
	}
	ev.ID = f.id("ev")
	f.events[ev.ID] = ev
	return ev.ID, nil
}

func (f *fakeStore) DeleteEvent(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteEventErr != nil {
		return f.deleteEventErr
	}
	delete(f.events, id)
	return nil
}

func (f *fakeStore) CountEvents(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.events)), nil
}

// UserStore

func (f *fakeStore) GetUser(ctx context.Context, uid string) (*UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getUserCalls = append(f.getUserCalls, uid)
	if err := f.getUserErr[uid]; err != nil {
		return nil, err
	}
	u, ok := f.users[uid]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (f *fakeStore) ListUsers(ctx context.Context) ([]UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]UserRecord, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (f *fakeStore) FindUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeStore) CreateUser(ctx context.Context, u UserRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.UID] = u
	return nil
}

func (f *fakeStore) UpdateUser(ctx context.Context, uid string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[uid]
	u.UID = uid
	for k, v := range fields {
		switch k {
		case "email":
			u.Email, _ = v.(string)
		case "displayName":
			u.DisplayName, _ = v.(string)
		case "isAdmin":
			u.IsAdmin, _ = v.(bool)
		case "photoURL":
			s, _ := v.(string)
			u.PhotoURL = strPtr(s)
		case "customLetter":
			s, _ := v.(string)
			u.CustomLetter = strPtr(s)
		}
	}
	f.users[uid] = u
	return nil
}

func (f *fakeStore) CountUsers(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.users)), nil
}

// NotificationStore

func (f *fakeStore) userNotifications(userID string) []Notification {
	var out []Notification
	for _, n := range f.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (f *fakeStore) ListNotifications(ctx context.Context, userID string) ([]Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listNotificationErr != nil {
		return nil, f.listNotificationErr
	}
	out := f.userNotifications(userID)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) ListNotificationsUnordered(ctx context.Context, userID string) ([]Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.userNotifications(userID)
	// 順序が無いことを確かめられるよう、わざと古い順にする
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) GetNotification(ctx context.Context, id string) (*Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notifications[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &n, nil
}

func (f *fakeStore) WatchUnreadCount(ctx context.Context, userID string) *Stream[int] {
	ch := make(chan Snapshot[int], 8)
	f.mu.Lock()
	f.unreadFeeds = append(f.unreadFeeds, ch)
	f.mu.Unlock()
	return newStream(ctx, func(ctx context.Context, emit func(int, error) bool) {
		feed(ctx, ch, emit)
	})
}

func (f *fakeStore) CreateNotification(ctx context.Context, n Notification) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNotification[n.UserID] {
		return "", errBoom
	}
	n.ID = f.id("n")
	f.notifications[n.ID] = n
	return n.ID, nil
}

func (f *fakeStore) MarkNotificationRead(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNotification[id] {
		return errBoom
	}
	n, ok := f.notifications[id]
	if !ok {
		return ErrNotFound
	}
	n.Read = true
	f.notifications[id] = n
	return nil
}

func (f *fakeStore) DeleteNotification(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNotification[id] {
		return errBoom
	}
	delete(f.notifications, id)
	return nil
}

func (f *fakeStore) ListAllNotificationIDs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.notifications))
	for id := range f.notifications {
		ids = append(ids, id)
	}
	return ids, nil
}

var _ Store = (*fakeStore)(nil)
