// Package main はstaticdサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/profile"
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
	// コマンドラインオプション
	var (
		bind       = flag.String("bind", "", "待ち受けるアドレス (デフォルト: 全インターフェース)")
		directory  = flag.String("directory", "", "公開するディレクトリ (デフォルト: カレントディレクトリ)")
		maxConns   = flag.Int("max-conns", -1, "同時接続数の上限。0は無制限、1は逐次処理")
		adminAddr  = flag.String("admin", "", "ヘルスチェック・メトリクス用のアドレス (例: 127.0.0.1:9100)")
		logLevel   = flag.String("log-level", "", "ログレベル (debug, info, warn, error)")
		logFormat  = flag.String("log-format", "", "ログ形式 (json, console)")
		configFile = flag.String("config", "", "YAML設定ファイル。指定時は環境変数による上書きを行わない")
		profMode   = flag.String("profile", "", "プロファイルを取得する (cpu, mem)")
		noListing  = flag.Bool("no-listing", false, "ディレクトリ一覧を無効にする")
		help       = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("staticd")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション] [ポート]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		return nil
	}

	// 設定を読み込む
	var (
		cfg *config.Config
		err error
	)
	if *configFile != "" {
		cfg, err = config.LoadFile(*configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}

	// コマンドラインオプションで設定を上書き
	if flag.NArg() > 0 {
		port, err := strconv.Atoi(flag.Arg(0))
		if err != nil {
			return fmt.Errorf("ポート番号が不正です: %q", flag.Arg(0))
		}
		cfg.Server.Port = port
	}
	if *bind != "" {
		cfg.Server.Host = *bind
	}
	if *directory != "" {
		cfg.Root.Dir = *directory
	}
	if *maxConns >= 0 {
		cfg.Server.MaxConnections = *maxConns
	}
	if *adminAddr != "" {
		cfg.Admin.Addr = *adminAddr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *noListing {
		cfg.Root.ListDirectories = false
	}
	if err := cfg.Finalize(); err != nil {
		return err
	}

	switch *profMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("未対応のプロファイル: %s", *profMode)
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
