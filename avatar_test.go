package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAvatar_PreferenceOrder(t *testing.T) {
	ev := CalendarEvent{ID: "e1", Date: "2025-06-10", UserID: "u1", UserName: "old name", CustomLetter: strPtr("O")}
	viewer := &UserRecord{UID: "u1", DisplayName: "Viewer Self", CustomLetter: strPtr("V")}
	cache := map[string]UserMeta{"u1": {DisplayName: "Cached", CustomLetter: strPtr("C")}}

	t.Run("viewer wins for own events", func(t *testing.T) {
		a := ResolveAvatar(ev, viewer, cache)
		assert.Equal(t, "Viewer Self", a.Name)
		assert.Equal(t, "V", a.Letter)
	})

	t.Run("cache wins for other users", func(t *testing.T) {
		other := &UserRecord{UID: "u2", DisplayName: "Someone"}
		a := ResolveAvatar(ev, other, cache)
		assert.Equal(t, "Cached", a.Name)
		assert.Equal(t, "C", a.Letter)
	})

	t.Run("event values without cache", func(t *testing.T) {
		a := ResolveAvatar(ev, nil, nil)
		assert.Equal(t, "old name", a.Name)
		assert.Equal(t, "O", a.Letter)
	})

	t.Run("blank custom letter falls through", func(t *testing.T) {
		blank := map[string]UserMeta{"u1": {DisplayName: "cached", CustomLetter: strPtr("  ")}}
		e := ev
		e.CustomLetter = nil
		a := ResolveAvatar(e, nil, blank)
		assert.Equal(t, "C", a.Letter)
	})
}

func TestResolveAvatar_ColorIsStablePerUser(t *testing.T) {
	a := ResolveAvatar(CalendarEvent{UserID: "u1", UserName: "x"}, nil, nil)
	b := ResolveAvatar(CalendarEvent{UserID: "u1", UserName: "y"}, nil, nil)
	assert.Equal(t, a.Color, b.Color)
	assert.Equal(t, UserColor("u1"), a.Color)
	assert.Equal(t, UserColorDark("u1"), a.ColorDark)
}

func TestBuildLegend_IsEventUsersPlusViewer(t *testing.T) {
	events := []CalendarEvent{
		{UserID: "u2", UserName: "bob"},
		{UserID: "u3", UserName: "Carol"},
		{UserID: "u2", UserName: "bob"},
		{UserID: "", UserName: "ghost"},
	}
	viewer := &UserRecord{UID: "u1", DisplayName: "Zed"}

	legend := BuildLegend(events, viewer, nil)
	require.Len(t, legend, 3)

	// 閲覧者が先頭、残りは大文字小文字を区別しない名前順
	assert.Equal(t, "u1", legend[0].UserID)
	assert.True(t, legend[0].IsViewer)
	assert.Zero(t, legend[0].EventCount)
	assert.Equal(t, "u2", legend[1].UserID)
	assert.Equal(t, 2, legend[1].EventCount)
	assert.Equal(t, "u3", legend[2].UserID)
}

func TestBuildLegend_ViewerWithEvents(t *testing.T) {
	events := []CalendarEvent{{UserID: "u1", UserName: "stale"}}
	viewer := &UserRecord{UID: "u1", DisplayName: "Fresh"}

	legend := BuildLegend(events, viewer, nil)
	require.Len(t, legend, 1)
	assert.True(t, legend[0].IsViewer)
	assert.Equal(t, 1, legend[0].EventCount)
	assert.Equal(t, "Fresh", legend[0].Name)
}

func TestBuildLegend_NoViewer(t *testing.T) {
	assert.Empty(t, BuildLegend(nil, nil, nil))
}
