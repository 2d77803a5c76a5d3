package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse はサーバー状態のレスポンス
type StatusResponse struct {
	Status         string    `json:"status"`
	Root           string    `json:"root"`
	Address        string    `json:"address"`
	MaxConnections int       `json:"max_connections"`
	Requests       float64   `json:"requests"`
	StartedAt      time.Time `json:"started_at"`
	UptimeSeconds  float64   `json:"uptime_seconds"`
	Timestamp      time.Time `json:"timestamp"`
}

// newAdminEngine は管理用のルーターを作成する
func (s *Server) newAdminEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(recovery(s.logger))

	engine.GET("/health", s.handleHealth)
	engine.GET("/api/status", s.handleStatus)
	engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	return engine
}

// handleHealth はヘルスチェックエンドポイント
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// handleStatus はステータス確認エンドポイント
func (s *Server) handleStatus(c *gin.Context) {
	now := time.Now()

	response := StatusResponse{
		Status:         "running",
		Root:           s.root.Dir(),
		MaxConnections: s.config.Server.MaxConnections,
		Requests:       s.metrics.RequestCount(),
		StartedAt:      s.startedAt,
		Timestamp:      now,
	}
	if addr := s.Addr(); addr != nil {
		response.Address = addr.String()
	}
	if !s.startedAt.IsZero() {
		response.UptimeSeconds = now.Sub(s.startedAt).Seconds()
	}

	c.JSON(http.StatusOK, response)
}
