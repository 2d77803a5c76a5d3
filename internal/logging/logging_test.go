package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"staticd/internal/config"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		name      string
		cfg       config.LogConfig
		wantLevel zapcore.Level
		expectErr bool
	}{
		{"コンソール形式", config.LogConfig{Level: "debug", Format: "console"}, zapcore.DebugLevel, false},
		{"JSON形式", config.LogConfig{Level: "warn", Format: "json"}, zapcore.WarnLevel, false},
		{"無効なレベル", config.LogConfig{Level: "loud", Format: "json"}, 0, true},
		{"無効な形式", config.LogConfig{Level: "info", Format: "xml"}, 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := New(tc.cfg)
			if tc.expectErr {
				if err == nil {
					t.Fatal("エラーが期待されました")
				}
				return
			}
			if err != nil {
				t.Fatalf("予期しないエラー: %v", err)
			}
			if !logger.Core().Enabled(tc.wantLevel) {
				t.Errorf("レベル %v が有効になっていません", tc.wantLevel)
			}
			if tc.wantLevel > zapcore.DebugLevel && logger.Core().Enabled(tc.wantLevel-1) {
				t.Errorf("レベル %v は無効であるべきです", tc.wantLevel-1)
			}
		})
	}
}
