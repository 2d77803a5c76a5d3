// Package contenttype はレスポンスのContent-Typeを決定する
package contenttype

import (
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Default は判定できなかった場合のContent-Type
const Default = "application/octet-stream"

// overrides はシステムのMIMEデータベースより優先する拡張子
// 圧縮ファイルは Content-Encoding ではなくファイルそのものとして返す
var overrides = map[string]string{
	".gz":  "application/gzip",
	".z":   "application/octet-stream",
	".bz2": "application/x-bzip2",
	".xz":  "application/x-xz",
	".js":  "text/javascript; charset=utf-8",
	".mjs": "text/javascript; charset=utf-8",
	".md":  "text/markdown; charset=utf-8",
}

// ByExtension は拡張子からContent-Typeを返す。不明なら空文字
func ByExtension(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return ""
	}
	if ct, ok := overrides[ext]; ok {
		return ct
	}
	return mime.TypeByExtension(ext)
}

// Detect はファイル名と内容からContent-Typeを決定する
// 拡張子で判定できない場合は先頭バイトを読んで推定し、読み取り位置を先頭に戻す
func Detect(name string, r io.ReadSeeker) (string, error) {
	if ct := ByExtension(name); ct != "" {
		return ct, nil
	}

	m, err := mimetype.DetectReader(r)
	if err != nil {
		return "", fmt.Errorf("内容からの種別判定に失敗: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("読み取り位置の復元に失敗: %w", err)
	}

	if ct := m.String(); ct != "" {
		return ct, nil
	}
	return Default, nil
}
