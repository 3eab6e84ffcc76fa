package main

import (
	"context"
	"net/http"
	"strings"
)

type handlerFunc func(ctx context.Context, r *apiRequest) (map[string]interface{}, int)

// feedFunc はJSON以外を返すハンドラーです。
type feedFunc func(ctx context.Context, r *apiRequest) (contentType string, body []byte, status int)

type route struct {
	method string
	// path は "/api/notifications/:id" のように ":" でパラメータを表す
	path   string
	auth   bool
	handle handlerFunc
	feed   feedFunc
}

// routes は両方のトランスポートで共通のAPI一覧です。
func (a *App) routes() []route {
	return []route{
		{method: http.MethodPost, path: "/api/session", handle: a.processSignInRequest},
		{method: http.MethodDelete, path: "/api/session", auth: true, handle: a.processSignOutRequest},
		{method: http.MethodPost, path: "/api/session/admin-mode", auth: true, handle: a.processAdminModeRequest},

		{method: http.MethodGet, path: "/api/events", auth: true, handle: a.processEventsGetRequest},
		{method: http.MethodPost, path: "/api/events/refresh", auth: true, handle: a.processRefreshRequest},
		{method: http.MethodPost, path: "/api/events/toggle", auth: true, handle: a.processToggleRequest},
		{method: http.MethodPost, path: "/api/events/assign", auth: true, handle: a.processAssignRequest},
		{method: http.MethodPost, path: "/api/gesture", auth: true, handle: a.processGestureRequest},

		{method: http.MethodGet, path: "/api/users", auth: true, handle: a.processUsersGetRequest},
		{method: http.MethodGet, path: "/api/calendar", auth: true, handle: a.processCalendarGetRequest},
		{method: http.MethodGet, path: "/api/calendar.ics", auth: true, feed: a.processCalendarFeedRequest},
		{method: http.MethodGet, path: "/api/stats", auth: true, handle: a.processStatsRequest},

		{method: http.MethodGet, path: "/api/notifications", auth: true, handle: a.processNotificationsGetRequest},
		{method: http.MethodPost, path: "/api/notifications", auth: true, handle: a.processNotificationCreateRequest},
		{method: http.MethodDelete, path: "/api/notifications", auth: true, handle: a.processNotificationsClearRequest},
		{method: http.MethodGet, path: "/api/notifications/unread", auth: true, handle: a.processUnreadCountRequest},
		{method: http.MethodPost, path: "/api/notifications/read-all", auth: true, handle: a.processReadAllRequest},
		{method: http.MethodPost, path: "/api/notifications/broadcast", auth: true, handle: a.processBroadcastRequest},
		{method: http.MethodPost, path: "/api/notifications/admin-clear", auth: true, handle: a.processAdminClearRequest},
		{method: http.MethodPost, path: "/api/notifications/:id/read", auth: true, handle: a.processMarkReadRequest},
		{method: http.MethodDelete, path: "/api/notifications/:id", auth: true, handle: a.processNotificationDeleteRequest},

		{method: http.MethodPut, path: "/api/profile/letter", auth: true, handle: a.processLetterUpdateRequest},
		{method: http.MethodPut, path: "/api/profile/name", auth: true, handle: a.processNameUpdateRequest},
	}
}

// serve は認証を行ってからハンドラーを呼び出します。
func (a *App) serve(ctx context.Context, rt route, r *apiRequest) (map[string]interface{}, int) {
	if rt.auth {
		if resp, status := a.authenticate(ctx, r); resp != nil {
			return resp, status
		}
	}
	return rt.handle(ctx, r)
}

// serveFeed は serve のJSON以外版です。カレンダーアプリはヘッダーを付けられないので token クエリも受け付けます。
func (a *App) serveFeed(ctx context.Context, rt route, r *apiRequest) (string, []byte, int) {
	if rt.auth {
		r.allowQueryToken = true
		if resp, status := a.authenticate(ctx, r); resp != nil {
			msg, _ := resp["error"].(string)
			return "text/plain; charset=utf-8", []byte(msg), status
		}
	}
	return rt.feed(ctx, r)
}

// matchRoute は method と path に一致するルートとパスパラメータを返します。
func matchRoute(routes []route, method, path string) (route, map[string]string, bool) {
	segs := splitPath(path)
	for _, rt := range routes {
		if rt.method != method {
			continue
		}
		pattern := splitPath(rt.path)
		if len(pattern) != len(segs) {
			continue
		}
		params := map[string]string{}
		ok := true
		for i, p := range pattern {
			if strings.HasPrefix(p, ":") {
				params[p[1:]] = segs[i]
				continue
			}
			if p != segs[i] {
				ok = false
				break
			}
		}
		if ok {
			return rt, params, true
		}
	}
	return route{}, nil, false
}

func splitPath(p string) []string {
	return strings.Split(strings.Trim(p, "/"), "/")
}
