package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"staticd/internal/config"
	"staticd/internal/logging"
	"staticd/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "staticd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 設定を読み込む（ポート8000、カレントディレクトリを公開）
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	// サーバーを作成
	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}

	// サーバーを起動
	if err := srv.Start(context.Background()); err != nil {
		logger.Error("サーバーの起動に失敗しました", zap.Error(err))
		return err
	}
	return nil
}
