//go:build local

package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	e := newTestEnv(t)
	token := e.signIn(t, UserRecord{UID: "u1", Email: "u1@example.com"})
	router := newRouter(e.app)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/events", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	id := e.store.addNotification(Notification{UserID: "u1", Title: "t", Message: "m", Type: NotificationEvent})
	req := httptest.NewRequest(http.MethodPost, "/api/notifications/"+id+"/read", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, e.store.notifications[id].Read)

	req = httptest.NewRequest(http.MethodPost, "/api/events/toggle", strings.NewReader(`{"date":"2025-06-10"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"action":"created"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications/unread/stream", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
