package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	ical "github.com/arran4/golang-ical"
)

const icsProductID = "-//shared-calendar//claims//JA"

// buildCalendarFeed は全ての予定を終日イベントとしてiCalendar形式に書き出します。
func buildCalendarFeed(events []CalendarEvent, usersMap map[string]UserMeta, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetName("共有カレンダー")

	for _, ev := range events {
		day, err := time.Parse(dateLayout, ev.Date)
		if err != nil {
			logger.Warnw("skipping event with invalid date", "event", ev.ID, "date", ev.Date)
			continue
		}
		avatar := ResolveAvatar(ev, nil, usersMap)

		ve := cal.AddEvent(fmt.Sprintf("%s@shared-calendar", ev.ID))
		ve.SetDtStampTime(now)
		if !ev.CreatedAt.IsZero() {
			ve.SetCreatedTime(ev.CreatedAt)
		}
		ve.SetAllDayStartAt(day)
		ve.SetAllDayEndAt(day.AddDate(0, 0, 1))
		summary := avatar.Name
		if t := strVal(ev.Title); t != "" {
			summary = fmt.Sprintf("%s: %s", avatar.Name, t)
		}
		ve.SetSummary(summary)
	}
	return cal.Serialize()
}

// processCalendarFeedRequest はカレンダーアプリ向けの予定一覧を返します
func (a *App) processCalendarFeedRequest(ctx context.Context, r *apiRequest) (string, []byte, int) {
	if err := a.ensureFresh(ctx); err != nil {
		logger.Warnw("serving cached events", "error", err)
	}
	feed := buildCalendarFeed(a.sync.Events(), a.sync.UsersMap(), a.now())
	return "text/calendar; charset=utf-8", []byte(feed), http.StatusOK
}
