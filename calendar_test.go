package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDays_PadsToFullWeeks(t *testing.T) {
	cases := []struct {
		year, month    int
		total          int
		first, last    string
		leading, after int
	}{
		// 2025年6月は日曜始まり、月曜終わり
		{2025, 6, 35, "2025-06-01", "2025-07-05", 0, 5},
		// 2025年3月は土曜始まり
		{2025, 3, 42, "2025-02-23", "2025-04-05", 6, 5},
		// 2026年2月はちょうど4週
		{2026, 2, 28, "2026-02-01", "2026-02-28", 0, 0},
	}
	for _, c := range cases {
		days := generateDays(c.year, c.month)
		require.Len(t, days, c.total)
		assert.Equal(t, c.first, days[0].Date)
		assert.Equal(t, c.last, days[len(days)-1].Date)
		assert.Equal(t, "Sun", days[0].Week)
		assert.Equal(t, "Sat", days[len(days)-1].Week)

		leading, trailing := 0, 0
		for i, d := range days {
			if d.InMonth {
				continue
			}
			if i < 7 {
				leading++
			} else {
				trailing++
			}
		}
		assert.Equal(t, c.leading, leading)
		assert.Equal(t, c.after, trailing)
	}
}

func TestAdjustDate(t *testing.T) {
	y, m := adjustDate(2025, 12, "next")
	assert.Equal(t, []int{2026, 1}, []int{y, m})
	y, m = adjustDate(2025, 1, "prev")
	assert.Equal(t, []int{2024, 12}, []int{y, m})
	y, m = adjustDate(2025, 5, "")
	assert.Equal(t, []int{2025, 5}, []int{y, m})
}

func TestBuildMonthView_PlacesAvatarsOnTheirDay(t *testing.T) {
	events := []CalendarEvent{
		{ID: "1", Date: "2025-06-10", UserID: "u1", UserName: "ana"},
		{ID: "2", Date: "2025-06-10", UserID: "u2", UserName: "bo"},
		{ID: "3", Date: "2025-07-02", UserID: "u1", UserName: "ana"},
		{ID: "4", Date: "2025-09-01", UserID: "u1", UserName: "ana"},
	}
	view := buildMonthView(2025, 6, events, nil, nil)

	byDate := map[string]Day{}
	for _, d := range view.Days {
		byDate[d.Date] = d
	}
	assert.Len(t, byDate["2025-06-10"].Avatars, 2)
	// 翌月のはみ出し部分にも表示する
	assert.Len(t, byDate["2025-07-02"].Avatars, 1)
	assert.Empty(t, byDate["2025-06-11"].Avatars)
	assert.NotContains(t, byDate, "2025-09-01")
}

func TestParseMonthQuery(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	get := func(target string) *apiRequest {
		return &apiRequest{raw: httptest.NewRequest(http.MethodGet, target, nil)}
	}

	y, m, move, err := parseMonthQuery(get("/api/calendar"), now)
	require.NoError(t, err)
	assert.Equal(t, 2025, y)
	assert.Equal(t, 6, m)
	assert.Empty(t, move)

	y, m, move, err = parseMonthQuery(get("/api/calendar?year=2024&month=2&move=prev"), now)
	require.NoError(t, err)
	assert.Equal(t, []int{2024, 2}, []int{y, m})
	assert.Equal(t, "prev", move)

	for _, bad := range []string{"?year=x&month=1", "?year=2025&month=0", "?year=2025&month=a", "?move=sideways"} {
		_, _, _, err = parseMonthQuery(get("/api/calendar"+bad), now)
		assert.ErrorIs(t, err, ErrInvalidInput, bad)
	}

	lambdaReq := &apiRequest{raw: events.APIGatewayV2HTTPRequest{
		QueryStringParameters: map[string]string{"year": "2030", "month": "11"},
	}}
	y, m, _, err = parseMonthQuery(lambdaReq, now)
	require.NoError(t, err)
	assert.Equal(t, []int{2030, 11}, []int{y, m})
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?token=q", nil)
	req.Header.Set("Authorization", "bearer abc")
	r := &apiRequest{raw: req}
	assert.Equal(t, "abc", r.bearerToken())

	req = httptest.NewRequest(http.MethodGet, "/?token=q", nil)
	r = &apiRequest{raw: req}
	assert.Empty(t, r.bearerToken())
	r.allowQueryToken = true
	assert.Equal(t, "q", r.bearerToken())

	lambda := &apiRequest{raw: events.APIGatewayV2HTTPRequest{Headers: map[string]string{"authorization": "Bearer xyz"}}}
	assert.Equal(t, "xyz", lambda.bearerToken())
}
