package main

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCalendarFeed(t *testing.T) {
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	events := []CalendarEvent{
		{ID: "e1", Date: "2025-06-10", UserID: "u1", UserName: "stale", CreatedAt: now.Add(-time.Hour)},
		{ID: "e2", Date: "2025-06-11", UserID: "u2", UserName: "Bo", Title: strPtr("出張")},
		{ID: "bad", Date: "someday", UserID: "u2", UserName: "Bo"},
	}
	usersMap := map[string]UserMeta{"u1": {DisplayName: "Ana"}}

	feed := buildCalendarFeed(events, usersMap, now)

	cal, err := ical.ParseCalendar(strings.NewReader(feed))
	require.NoError(t, err)
	got := cal.Events()
	require.Len(t, got, 2)

	assert.Equal(t, "e1@shared-calendar", got[0].Id())
	assert.Equal(t, "Ana", got[0].GetProperty(ical.ComponentPropertySummary).Value)
	start, err := got[0].GetAllDayStartAt()
	require.NoError(t, err)
	assert.Equal(t, "2025-06-10", start.Format(dateLayout))
	end, err := got[0].GetAllDayEndAt()
	require.NoError(t, err)
	assert.Equal(t, "2025-06-11", end.Format(dateLayout))

	assert.Equal(t, "Bo: 出張", got[1].GetProperty(ical.ComponentPropertySummary).Value)
}
