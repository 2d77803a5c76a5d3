package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server ServerConfig `yaml:"server"`
	Root   RootConfig   `yaml:"root"`
	Admin  AdminConfig  `yaml:"admin"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig はHTTPサーバー（Listener）の設定
type ServerConfig struct {
	Host string `yaml:"host"`                            // リッスンするホスト（空なら全インターフェース）
	Port int    `yaml:"port" validate:"gte=0,lte=65535"` // リッスンするポート番号（0はテスト用のランダムポート）

	// タイムアウト設定
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`     // 読み込みタイムアウト
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`    // 書き込みタイムアウト
	IdleTimeout     time.Duration `yaml:"idle_timeout" validate:"gte=0"`     // Keep-Alive のアイドルタイムアウト
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"` // グレースフルシャットダウンの上限

	// 同時接続数の上限。0 は無制限、1 は1接続ずつ逐次処理する
	MaxConnections int `yaml:"max_connections" validate:"gte=0"`
}

// RootConfig は公開するディレクトリ（Served Root）の設定
type RootConfig struct {
	Dir             string   `yaml:"dir" validate:"required"`
	IndexFiles      []string `yaml:"index_files" validate:"dive,required,excludesall=/\\"`
	ListDirectories bool     `yaml:"list_directories"`
}

// AdminConfig はヘルスチェック・メトリクス用リスナーの設定
type AdminConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"` // 空なら無効
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// Default はデフォルト設定を返す。Served Root はカレントディレクトリ
func Default() *Config {
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}

	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    0, // 大きなファイル配信のため無効化
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Root: RootConfig{
			Dir:             dir,
			IndexFiles:      []string{"index.html", "index.htm"},
			ListDirectories: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load は設定を読み込む
// .env → CONFIG_FILE(YAML) → 環境変数 の順に上書きし、最後に検証する
func Load() (*Config, error) {
	// .env は存在しなくてもよい
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf(".envの読み込みに失敗: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile はデフォルト設定の上にYAMLファイルを読み込む
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize は Served Root を絶対パスに正規化してから設定を検証する。
// フラグなどで値を上書きした後にも呼び出す
func (c *Config) Finalize() error {
	if c.Root.Dir != "" {
		abs, err := filepath.Abs(c.Root.Dir)
		if err != nil {
			return fmt.Errorf("公開ディレクトリの解決に失敗: %w", err)
		}
		c.Root.Dir = abs
	}

	if err := c.Validate(); err != nil {
		return fmt.Errorf("設定の検証に失敗: %w", err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	// 公開ディレクトリは実在するディレクトリでなければならない
	info, err := os.Stat(c.Root.Dir)
	if err != nil {
		return fmt.Errorf("公開ディレクトリにアクセスできません: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("公開ディレクトリではありません: %s", c.Root.Dir)
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// mergeFile はYAMLファイルの内容で設定を上書きする
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("設定ファイルの解析に失敗 (%s): %w", path, err)
	}
	return nil
}

// applyEnv は環境変数で設定を上書きする
func (c *Config) applyEnv() error {
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	c.Root.Dir = getEnvOrDefault("SERVE_ROOT", c.Root.Dir)
	c.Admin.Addr = getEnvOrDefault("ADMIN_ADDR", c.Admin.Addr)
	c.Log.Level = strings.ToLower(getEnvOrDefault("LOG_LEVEL", c.Log.Level))
	c.Log.Format = strings.ToLower(getEnvOrDefault("LOG_FORMAT", c.Log.Format))

	port, err := getEnvAsIntOrDefault("PORT", c.Server.Port)
	if err != nil {
		return err
	}
	c.Server.Port = port

	maxConns, err := getEnvAsIntOrDefault("MAX_CONNECTIONS", c.Server.MaxConnections)
	if err != nil {
		return err
	}
	c.Server.MaxConnections = maxConns

	return nil
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("環境変数 %s が整数ではありません: %q", key, value)
	}
	return n, nil
}
