package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedEvent(date, uid, name string, at time.Time) CalendarEvent {
	return CalendarEvent{Date: date, UserID: uid, UserName: name, CreatedAt: at}
}

func TestEventSync_RefreshOnceReplacesStateAndLoadsMetadata(t *testing.T) {
	store := newFakeStore()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	store.addEvent(seedEvent("2025-06-10", "u1", "Aki", base))
	store.addEvent(seedEvent("2025-06-11", "u2", "Ben", base.Add(time.Minute)))
	store.addEvent(seedEvent("2025-06-12", "u1", "Aki", base.Add(2*time.Minute)))
	store.addUser(UserRecord{UID: "u1", DisplayName: "Akiko", CustomLetter: strPtr("K")})

	es := NewEventSync(store, store)
	assert.True(t, es.Loading())

	require.NoError(t, es.RefreshOnce(context.Background()))
	assert.False(t, es.Loading())

	events := es.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "2025-06-12", events[0].Date, "newest first")

	// u2 のドキュメントは無いのでキャッシュに載らない
	meta := es.UsersMap()
	assert.Equal(t, map[string]UserMeta{
		"u1": {DisplayName: "Akiko", CustomLetter: strPtr("K")},
	}, meta)
	assert.ElementsMatch(t, []string{"u1", "u2"}, store.getUserCalls)
}

func TestEventSync_RefreshOnceIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.addEvent(seedEvent("2025-06-10", "u1", "Aki", time.Now()))
	es := NewEventSync(store, store)

	require.NoError(t, es.RefreshOnce(context.Background()))
	first := es.Events()
	require.NoError(t, es.RefreshOnce(context.Background()))
	assert.Equal(t, first, es.Events())
}

func TestEventSync_RefreshFailureKeepsState(t *testing.T) {
	store := newFakeStore()
	store.addEvent(seedEvent("2025-06-10", "u1", "Aki", time.Now()))
	es := NewEventSync(store, store)
	require.NoError(t, es.RefreshOnce(context.Background()))

	store.listEventsErr = errBoom
	err := es.RefreshOnce(context.Background())
	require.ErrorIs(t, err, errBoom)
	assert.Len(t, es.Events(), 1)
}

func TestEventSync_MetadataFailureIsPerUser(t *testing.T) {
	store := newFakeStore()
	store.addEvent(seedEvent("2025-06-10", "u1", "Aki", time.Now()))
	store.addEvent(seedEvent("2025-06-10", "u2", "Ben", time.Now()))
	store.addUser(UserRecord{UID: "u1", DisplayName: "Aki"})
	store.addUser(UserRecord{UID: "u2", Email: "ben@example.com"})
	store.getUserErr["u1"] = errBoom

	es := NewEventSync(store, store)
	require.NoError(t, es.RefreshOnce(context.Background()))

	meta := es.UsersMap()
	assert.NotContains(t, meta, "u1")
	assert.Equal(t, "ben", meta["u2"].DisplayName)
}

func TestEventSync_LoadUserMetadataReplacesCache(t *testing.T) {
	store := newFakeStore()
	store.addUser(UserRecord{UID: "u1", DisplayName: "Aki"})
	store.addUser(UserRecord{UID: "u2"})

	es := NewEventSync(store, store)
	es.LoadUserMetadata(context.Background(), []string{"u1", "", "u1"})
	assert.Len(t, es.UsersMap(), 1)

	es.LoadUserMetadata(context.Background(), []string{"u2"})
	meta := es.UsersMap()
	assert.NotContains(t, meta, "u1")
	assert.Equal(t, defaultUserLabel, meta["u2"].DisplayName)
}

func TestEventSync_SubscribeAppliesSnapshots(t *testing.T) {
	store := newFakeStore()
	store.addUser(UserRecord{UID: "u1", DisplayName: "Aki"})
	es := NewEventSync(store, store)

	sub := es.Subscribe(context.Background())
	defer sub.Unsubscribe()
	assert.True(t, es.Live())

	store.pushEvents([]CalendarEvent{
		{ID: "a", Date: "2025-06-10", UserID: "u1"},
		{ID: "b", Date: "2025-06-11", UserID: "u1"},
	}, nil)
	require.Eventually(t, func() bool { return len(es.Events()) == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return es.UsersMap()["u1"].DisplayName == "Aki" }, time.Second, 5*time.Millisecond)
	assert.False(t, es.Loading())

	// 購読エラーは空の一覧として扱う
	store.pushEvents(nil, errBoom)
	require.Eventually(t, func() bool { return len(es.Events()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestEventSync_UnsubscribeIsIdempotent(t *testing.T) {
	store := newFakeStore()
	es := NewEventSync(store, store)

	sub := es.Subscribe(context.Background())
	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.False(t, es.Live())
}

func TestEventSync_CloseDiscardsLateResults(t *testing.T) {
	store := newFakeStore()
	store.addEvent(seedEvent("2025-06-10", "u1", "Aki", time.Now()))
	es := NewEventSync(store, store)
	sub := es.Subscribe(context.Background())

	es.Close()
	assert.False(t, es.Live())

	require.NoError(t, es.RefreshOnce(context.Background()))
	assert.Empty(t, es.Events())
	assert.True(t, es.Loading())

	// 閉じた後の購読は何もしない
	late := es.Subscribe(context.Background())
	late.Unsubscribe()
	sub.Unsubscribe()
	assert.False(t, es.Live())
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, dedupe([]string{"b", "", "a", "b", "c", "a"}))
	assert.Empty(t, dedupe(nil))
}
