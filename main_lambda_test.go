//go:build !local && !setadmin

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apiGatewayRequest(method, path, body string, headers, query map[string]string) events.APIGatewayV2HTTPRequest {
	req := events.APIGatewayV2HTTPRequest{
		RawPath:               path,
		Body:                  body,
		Headers:               headers,
		QueryStringParameters: query,
	}
	req.RequestContext.HTTP.Method = method
	req.RequestContext.HTTP.Path = path
	return req
}

func TestLambdaHandler(t *testing.T) {
	e := newTestEnv(t)
	token := e.signIn(t, UserRecord{UID: "u1", Email: "u1@example.com", DisplayName: "Ana"})
	handle := lambdaHandler(e.app)
	ctx := context.Background()

	res, err := handle(ctx, apiGatewayRequest(http.MethodOptions, "/api/events", "", nil, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "*", res.Headers["Access-Control-Allow-Origin"])

	res, err = handle(ctx, apiGatewayRequest(http.MethodGet, "/api/unknown", "", nil, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	auth := map[string]string{"authorization": "Bearer " + token}
	res, err = handle(ctx, apiGatewayRequest(http.MethodPost, "/api/events/toggle", `{"date":"2025-06-10"}`, auth, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode, res.Body)

	var body struct {
		Result ToggleResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Body), &body))
	assert.Equal(t, ActionCreated, body.Result.Action)
	assert.Len(t, e.store.eventsFor("2025-06-10", "u1"), 1)

	res, err = handle(ctx, apiGatewayRequest(http.MethodGet, "/api/calendar.ics", "", nil, map[string]string{"token": token}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Headers["Content-Type"], "text/calendar")
	assert.Contains(t, res.Body, "BEGIN:VEVENT")
}
