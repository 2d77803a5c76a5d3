package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	"staticd/internal/config"
	"staticd/internal/fsroot"
	"staticd/internal/metrics"
)

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config  *config.Config
	logger  *zap.Logger
	root    *fsroot.Root
	metrics *metrics.Metrics
	engine  *gin.Engine

	httpServer  *http.Server
	adminServer *http.Server

	mu            sync.Mutex
	listener      net.Listener
	adminListener net.Listener
	startedAt     time.Time
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// New は新しいServerインスタンスを作成する
// 公開ディレクトリはここで開き、以後プロセスの生存期間中は変わらない
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	root, err := fsroot.Open(cfg.Root.Dir)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:  cfg,
		logger:  logger,
		root:    root,
		metrics: metrics.New(),
	}
	s.engine = s.newEngine()

	s.httpServer = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     zap.NewStdLog(logger),
	}
	// 1接続ずつ処理する場合はアイドル接続に枠を占有させない
	if cfg.Server.MaxConnections == 1 {
		s.httpServer.SetKeepAlivesEnabled(false)
	}
	if cfg.Admin.Addr != "" {
		s.adminServer = &http.Server{
			Handler:           s.newAdminEngine(),
			ReadHeaderTimeout: 5 * time.Second,
			ErrorLog:          zap.NewStdLog(logger),
		}
	}

	return s, nil
}

// newEngine はファイル配信用のルーターを作成する
func (s *Server) newEngine() *gin.Engine {
	h := &FileHandler{
		root:            s.root,
		indexFiles:      s.config.Root.IndexFiles,
		listDirectories: s.config.Root.ListDirectories,
		logger:          s.logger,
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(requestID(), accessLog(s.logger), observe(s.metrics), recovery(s.logger))

	engine.GET("/*filepath", h.ServeFile)
	engine.HEAD("/*filepath", h.ServeFile)
	engine.NoMethod(h.UnsupportedMethod)
	engine.NoRoute(h.NotFound)

	return engine
}

// Handler はファイル配信用のHTTPハンドラを返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Listen はポートをバインドする。Start の前に呼ぶと割り当てられたアドレスを確認できる
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}

	addr := s.config.ServerAddress()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("ポートのバインドに失敗 (%s): %w", addr, err)
	}
	if n := s.config.Server.MaxConnections; n > 0 {
		ln = netutil.LimitListener(ln, n)
	}

	if s.adminServer != nil {
		adminLn, err := net.Listen("tcp", s.config.Admin.Addr)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("管理ポートのバインドに失敗 (%s): %w", s.config.Admin.Addr, err)
		}
		s.adminListener = adminLn
	}

	s.listener = ln
	s.startedAt = time.Now()
	return nil
}

// Addr はバインドしたアドレスを返す。未バインドなら nil
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// AdminAddr は管理リスナーのアドレスを返す。無効なら nil
func (s *Server) AdminAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.adminListener == nil {
		return nil
	}
	return s.adminListener.Addr()
}

// Start はサーバーを起動し、コンテキストのキャンセルかシグナルを受けるまでブロックする
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return multierr.Append(err, s.root.Close())
	}

	// シャットダウン用のチャンネル
	serveErrCh := make(chan error, 2)

	go func() {
		if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()
	if s.adminServer != nil {
		go func() {
			if err := s.adminServer.Serve(s.adminListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErrCh <- fmt.Errorf("管理サーバーの起動に失敗: %w", err)
			}
		}()
		s.logger.Info("管理リスナーを起動しました", zap.Stringer("addr", s.adminListener.Addr()))
	}

	s.logger.Info("サーバーを起動しました",
		zap.String("url", s.URL()),
		zap.String("root", s.root.Dir()),
		zap.Int("max_connections", s.config.Server.MaxConnections),
	)

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		s.logger.Info("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		s.logger.Info("シグナルを受信しました", zap.Stringer("signal", sig))
	case err := <-serveErrCh:
		return multierr.Append(err, s.Shutdown())
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// URL はブラウザで開くためのURLを返す
// 全インターフェースで待ち受けている場合は localhost と表示する
func (s *Server) URL() string {
	addr := s.Addr()
	if addr == nil {
		return ""
	}

	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "http://" + addr.String()
	}
	if ip := net.ParseIP(host); ip == nil || ip.IsUnspecified() {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	s.logger.Info("サーバーをシャットダウンしています...")

	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var err error
	if shutdownErr := s.httpServer.Shutdown(ctx); shutdownErr != nil {
		err = multierr.Append(err, fmt.Errorf("サーバーのシャットダウンに失敗: %w", shutdownErr))
	}
	if s.adminServer != nil {
		if shutdownErr := s.adminServer.Shutdown(ctx); shutdownErr != nil {
			err = multierr.Append(err, fmt.Errorf("管理サーバーのシャットダウンに失敗: %w", shutdownErr))
		}
	}
	if closeErr := s.root.Close(); closeErr != nil {
		err = multierr.Append(err, fmt.Errorf("公開ディレクトリのクローズに失敗: %w", closeErr))
	}
	if err != nil {
		return err
	}

	s.logger.Info("サーバーが正常にシャットダウンされました",
		zap.Float64("requests", s.metrics.RequestCount()),
		zap.Duration("uptime", time.Since(s.startedAt)),
	)
	return nil
}
