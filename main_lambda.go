//go:build !local && !setadmin

package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
)

// lambdaHandler は API Gateway (HTTP API) からのリクエストを共通のルートに振り分けます。
func lambdaHandler(a *App) func(ctx context.Context, request events.APIGatewayV2HTTPRequest) (events.APIGatewayProxyResponse, error) {
	routes := a.routes()
	// 応答後はコンテナが凍結されるので、バックグラウンドの更新は残せない
	a.awaitRefresh = true

	return func(ctx context.Context, request events.APIGatewayV2HTTPRequest) (events.APIGatewayProxyResponse, error) {
		path := request.RequestContext.HTTP.Path
		method := request.RequestContext.HTTP.Method
		logger.Debugw("received request", "method", method, "path", path)

		// OPTIONSリクエストはすべてのパスで許可
		if method == http.MethodOptions {
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusOK,
				Headers:    getCorsHeaders(),
			}, nil
		}

		rt, params, ok := matchRoute(routes, method, path)
		if !ok {
			logger.Infow("no route matched", "method", method, "path", path)
			return jsonResponse(map[string]interface{}{"error": "Not Found", "requestedPath": path}, http.StatusNotFound), nil
		}

		req := &apiRequest{raw: request, params: params}
		if rt.feed != nil {
			contentType, body, status := a.serveFeed(ctx, rt, req)
			headers := getCorsHeaders()
			headers["Content-Type"] = contentType
			return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers, Body: string(body)}, nil
		}

		responseData, statusCode := a.serve(ctx, rt, req)
		logger.Debugw("responding", "status", statusCode)
		return jsonResponse(responseData, statusCode), nil
	}
}

func jsonResponse(data map[string]interface{}, statusCode int) events.APIGatewayProxyResponse {
	body, err := json.Marshal(data)
	if err != nil {
		logger.Errorw("failed to marshal response", "error", err)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    getCorsHeaders(),
			Body:       "{\"error\":\"Failed to process the response\"}",
		}
	}
	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    getCorsHeaders(),
		Body:       string(body),
	}
}

func main() {
	initLogger(false)
	defer syncLogger()

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatalw("failed to load config", "error", err)
	}
	if err := initFirebase(context.Background(), cfg); err != nil {
		logger.Fatalw("failed to initialize firebase", "error", err)
	}

	app := newApp(cfg, newFirestoreStore(firestoreClient), authClient, authClient)
	lambda.Start(lambdaHandler(app))
}
