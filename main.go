//go:build local

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

// corsMiddleware は、CORSヘッダーを設定し、OPTIONSリクエストを処理するミドルウェアです。
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		for k, v := range getCorsHeaders() {
			if k == "Content-Type" {
				continue
			}
			c.Header(k, v)
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// ginHandler は共通のルートをginのハンドラーにします。
func ginHandler(a *App, rt route) gin.HandlerFunc {
	return func(c *gin.Context) {
		params := make(map[string]string, len(c.Params))
		for _, p := range c.Params {
			params[p.Key] = p.Value
		}
		req := &apiRequest{raw: c.Request, params: params}

		if rt.feed != nil {
			contentType, body, status := a.serveFeed(c.Request.Context(), rt, req)
			c.Data(status, contentType, body)
			return
		}
		response, statusCode := a.serve(c.Request.Context(), rt, req)
		c.JSON(statusCode, response)
	}
}

// handleUnreadStream は未読件数の変化をServer-Sent Eventsで送り続けます。
// EventSource はヘッダーを付けられないので token クエリでも認証します。
func handleUnreadStream(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := &apiRequest{raw: c.Request, allowQueryToken: true}
		if resp, status := a.authenticate(c.Request.Context(), req); resp != nil {
			c.JSON(status, resp)
			return
		}
		counter, err := a.unreadCounterFor(req.session)
		if err != nil {
			resp, status := errorResponse(err, "未読件数の取得に失敗しました")
			c.JSON(status, resp)
			return
		}

		updates, stop := counter.Watch()
		defer stop()

		c.Stream(func(w io.Writer) bool {
			select {
			case n := <-updates:
				c.SSEvent("unread", gin.H{"unread": n})
				return true
			case <-counter.Done():
				return false
			case <-c.Request.Context().Done():
				return false
			}
		})
	}
}

func newRouter(a *App) *gin.Engine {
	r := gin.Default()
	r.Use(corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "loading": a.sync.Loading()})
	})

	for _, rt := range a.routes() {
		r.Handle(rt.method, rt.path, ginHandler(a, rt))
	}
	r.GET("/api/notifications/unread/stream", handleUnreadStream(a))
	return r
}

func main() {
	initLogger(true)
	defer syncLogger()

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatalw("failed to load config", "error", err)
	}

	ctx := context.Background()
	if err := initFirebase(ctx, cfg); err != nil {
		logger.Fatalw("failed to initialize firebase", "error", err)
	}
	defer closeFirebase()

	app := newApp(cfg, newFirestoreStore(firestoreClient), authClient, authClient)
	defer app.Close()

	// ローカルサーバーはイベント一覧を常にライブで購読する
	sub := app.sync.Subscribe(ctx)
	defer sub.Unsubscribe()

	scheduler, err := startScheduler(app, cfg.RefreshCron)
	if err != nil {
		logger.Fatalw("failed to start scheduler", "schedule", cfg.RefreshCron, "error", err)
	}
	defer func() { <-scheduler.Stop().Done() }()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: newRouter(app),
	}

	go func() {
		logger.Infow("Starting local server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("server forced to shutdown", "error", err)
	}
	logger.Info("Server exited")
}
