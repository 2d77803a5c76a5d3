package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"staticd/internal/metrics"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// requestID はリクエストIDを払い出す
// クライアントが有効なUUIDを送ってきた場合はそれを引き継ぐ
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// accessLog は1リクエストごとにアクセスログを出力する
func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", max(c.Writer.Size(), 0)),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", c.Request.RemoteAddr),
			zap.String("request_id", c.GetString(requestIDKey)),
		}

		if status >= http.StatusInternalServerError {
			logger.Error("リクエストを処理しました", fields...)
			return
		}
		logger.Info("リクエストを処理しました", fields...)
	}
}

// observe はリクエストのメトリクスを記録する
func observe(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 任意のメソッド名でラベルが増えないようにまとめる
		method := c.Request.Method
		if method != http.MethodGet && method != http.MethodHead {
			method = "OTHER"
		}

		done := m.Begin(method)
		c.Next()
		done(c.Writer.Status(), c.Writer.Size())
	}
}

// recovery はパニックを500のエラーページに変換する
func recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, err any) {
		logger.Error("パニックから復帰しました",
			zap.Any("panic", err),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(requestIDKey)),
		)
		writeError(c, http.StatusInternalServerError, "Internal server error")
	})
}
