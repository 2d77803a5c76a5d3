package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestConfigLoad は設定の読み込みをテストする
func TestConfigLoad(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")
	t.Setenv("SERVE_ROOT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("デフォルトポートが違います: got %d, want 8000", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout <= 0 {
		t.Error("読み込みタイムアウトが設定されていません")
	}
	// WriteTimeout は 0（無効）でも正常
	if cfg.Server.WriteTimeout < 0 {
		t.Error("書き込みタイムアウトが負の値です")
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Root.Dir != wd {
		t.Errorf("公開ディレクトリはカレントディレクトリであるべきです: got %s, want %s", cfg.Root.Dir, wd)
	}
	if !filepath.IsAbs(cfg.Root.Dir) {
		t.Errorf("公開ディレクトリが絶対パスではありません: %s", cfg.Root.Dir)
	}
	if !cfg.Root.ListDirectories {
		t.Error("ディレクトリ一覧はデフォルトで有効であるべきです")
	}
}

// TestConfigValidation は設定の検証をテストする
func TestConfigValidation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	valid := func() *Config {
		cfg := Default()
		cfg.Root.Dir = dir
		return cfg
	}

	testCases := []struct {
		name      string
		modify    func(*Config)
		expectErr bool
	}{
		{"正常な設定", func(*Config) {}, false},
		{"ランダムポート", func(c *Config) { c.Server.Port = 0 }, false},
		{"無効なポート番号", func(c *Config) { c.Server.Port = 99999 }, true},
		{"負のポート番号", func(c *Config) { c.Server.Port = -1 }, true},
		{"公開ディレクトリなし", func(c *Config) { c.Root.Dir = "" }, true},
		{"存在しない公開ディレクトリ", func(c *Config) { c.Root.Dir = filepath.Join(dir, "missing") }, true},
		{"公開ディレクトリがファイル", func(c *Config) { c.Root.Dir = file }, true},
		{"インデックス名にスラッシュ", func(c *Config) { c.Root.IndexFiles = []string{"a/index.html"} }, true},
		{"空のインデックス名", func(c *Config) { c.Root.IndexFiles = []string{""} }, true},
		{"無効なログレベル", func(c *Config) { c.Log.Level = "verbose" }, true},
		{"無効なログ形式", func(c *Config) { c.Log.Format = "xml" }, true},
		{"負の同時接続数", func(c *Config) { c.Server.MaxConnections = -1 }, true},
		{"負のタイムアウト", func(c *Config) { c.Server.ReadTimeout = -time.Second }, true},
		{"管理リスナー", func(c *Config) { c.Admin.Addr = "127.0.0.1:9100" }, false},
		{"無効な管理リスナー", func(c *Config) { c.Admin.Addr = "not an address" }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.modify(cfg)
			err := cfg.Validate()
			if tc.expectErr && err == nil {
				t.Error("エラーが期待されましたが、エラーが発生しませんでした")
			}
			if !tc.expectErr && err != nil {
				t.Errorf("予期しないエラーが発生しました: %v", err)
			}
		})
	}
}

// TestServerAddress はサーバーアドレスの生成をテストする
func TestServerAddress(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Host: "192.168.1.100",
			Port: 9090,
		},
	}

	expected := "192.168.1.100:9090"
	if actual := cfg.ServerAddress(); actual != expected {
		t.Errorf("サーバーアドレスが一致しません: got %s, want %s", actual, expected)
	}
}

// TestEnvironmentVariables は環境変数の処理をテストする
// 注意: このテストは環境変数を変更するため、parallelは使わない
func TestEnvironmentVariables(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SERVER_HOST", "127.0.0.1")
	t.Setenv("PORT", "9999")
	t.Setenv("SERVE_ROOT", dir)
	t.Setenv("MAX_CONNECTIONS", "1")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("環境変数のホストが反映されていません: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("環境変数のポートが反映されていません: got %d, want 9999", cfg.Server.Port)
	}
	if cfg.Root.Dir != dir {
		t.Errorf("環境変数の公開ディレクトリが反映されていません: got %s, want %s", cfg.Root.Dir, dir)
	}
	if cfg.Server.MaxConnections != 1 {
		t.Errorf("環境変数の同時接続数が反映されていません: got %d", cfg.Server.MaxConnections)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("環境変数のログレベルが反映されていません: got %s", cfg.Log.Level)
	}
}

// TestInvalidPortEnv は整数でないPORTを拒否することをテストする
func TestInvalidPortEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "eighty")

	if _, err := Load(); err == nil {
		t.Fatal("整数でないPORTでエラーが期待されました")
	}
}

// TestLoadFile はYAML設定ファイルの読み込みをテストする
func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "public")
	if err := os.Mkdir(root, 0o755); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "staticd.yaml")
	content := `server:
  host: 127.0.0.1
  port: 8123
  read_timeout: 3s
  max_connections: 4
root:
  dir: ` + root + `
  index_files: [default.html]
  list_directories: false
admin:
  addr: 127.0.0.1:9100
log:
  level: warn
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("設定ファイルの読み込みに失敗しました: %v", err)
	}

	if cfg.ServerAddress() != "127.0.0.1:8123" {
		t.Errorf("アドレスが一致しません: got %s", cfg.ServerAddress())
	}
	if cfg.Server.ReadTimeout != 3*time.Second {
		t.Errorf("読み込みタイムアウトが一致しません: got %v", cfg.Server.ReadTimeout)
	}
	// ファイルに書かれていない値はデフォルトのまま
	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("シャットダウンタイムアウトはデフォルトであるべきです: got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.MaxConnections != 4 {
		t.Errorf("同時接続数が一致しません: got %d", cfg.Server.MaxConnections)
	}
	if cfg.Root.Dir != root {
		t.Errorf("公開ディレクトリが一致しません: got %s", cfg.Root.Dir)
	}
	if len(cfg.Root.IndexFiles) != 1 || cfg.Root.IndexFiles[0] != "default.html" {
		t.Errorf("インデックスファイルが一致しません: got %v", cfg.Root.IndexFiles)
	}
	if cfg.Root.ListDirectories {
		t.Error("ディレクトリ一覧は無効であるべきです")
	}
	if cfg.Admin.Addr != "127.0.0.1:9100" || cfg.Log.Format != "json" || cfg.Log.Level != "warn" {
		t.Errorf("管理/ログ設定が一致しません: %+v %+v", cfg.Admin, cfg.Log)
	}
}

// TestLoadFileErrors は設定ファイルのエラーをテストする
func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("存在しないファイルでエラーが期待されました")
	}

	broken := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(broken, []byte("server: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(broken); err == nil {
		t.Error("壊れたYAMLでエラーが期待されました")
	}
}
