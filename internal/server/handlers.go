package server

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"staticd/internal/contenttype"
	"staticd/internal/fsroot"
	"staticd/internal/listing"
)

// FileHandler は公開ディレクトリのファイルを配信するハンドラ
type FileHandler struct {
	root            *fsroot.Root
	indexFiles      []string
	listDirectories bool
	logger          *zap.Logger
}

// ServeFile はGET/HEADリクエストに応答する
func (h *FileHandler) ServeFile(c *gin.Context) {
	urlPath := c.Request.URL.Path

	entry, err := h.root.Resolve(urlPath)
	if err != nil {
		h.fail(c, err)
		return
	}

	if !entry.IsDir() {
		// ファイルを指すパスに末尾スラッシュは付かない
		if strings.HasSuffix(urlPath, "/") {
			h.fail(c, fsroot.ErrNotFound)
			return
		}
		h.sendFile(c, entry)
		return
	}

	// ディレクトリは末尾スラッシュ付きのURLへリダイレクトする
	if !strings.HasSuffix(urlPath, "/") {
		c.Redirect(http.StatusMovedPermanently, directoryLocation(c.Request.URL))
		return
	}

	// インデックスファイルがあればそれを返す
	for _, name := range h.indexFiles {
		index, err := h.root.Resolve(path.Join(urlPath, name))
		if err == nil && !index.IsDir() {
			h.sendFile(c, index)
			return
		}
	}

	if !h.listDirectories {
		writeError(c, http.StatusForbidden, "Directory listing is disabled")
		return
	}
	h.sendListing(c, urlPath, entry)
}

// UnsupportedMethod はGET/HEAD以外のメソッドに501を返す
func (h *FileHandler) UnsupportedMethod(c *gin.Context) {
	c.Header("Allow", "GET, HEAD")
	writeError(c, http.StatusNotImplemented, "Unsupported method ("+strconv.Quote(c.Request.Method)+")")
}

// NotFound は "/" で始まらないリクエストターゲットに404を返す
func (h *FileHandler) NotFound(c *gin.Context) {
	if m := c.Request.Method; m != http.MethodGet && m != http.MethodHead {
		h.UnsupportedMethod(c)
		return
	}
	writeError(c, http.StatusNotFound, "File not found")
}

// sendFile はファイルの内容を返す
// Range・条件付きリクエスト・HEADは http.ServeContent に任せる
func (h *FileHandler) sendFile(c *gin.Context, entry *fsroot.Entry) {
	f, err := h.root.OpenFile(entry)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer func() {
		_ = f.Close()
	}()

	ctype, err := contenttype.Detect(entry.Name, f)
	if err != nil {
		h.fail(c, err)
		return
	}

	header := c.Writer.Header()
	header.Set("Content-Type", ctype)
	header.Set("ETag", etag(entry))

	http.ServeContent(c.Writer, c.Request, entry.Name, entry.Info.ModTime(), f)
}

// sendListing はディレクトリ一覧を返す
func (h *FileHandler) sendListing(c *gin.Context, urlPath string, entry *fsroot.Entry) {
	des, err := h.root.ReadDir(entry)
	if err != nil {
		if errors.Is(err, fsroot.ErrForbidden) {
			writeError(c, http.StatusForbidden, "No permission to list directory")
			return
		}
		h.fail(c, err)
		return
	}

	entries := listing.FromDirEntries(des, func(name string) bool {
		target, err := h.root.Resolve(path.Join(urlPath, name))
		return err == nil && target.IsDir()
	})

	var buf bytes.Buffer
	if err := listing.Render(&buf, urlPath, entries); err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Length", strconv.Itoa(buf.Len()))
	if c.Request.Method == http.MethodHead {
		c.Header("Content-Type", listing.ContentType)
		c.Status(http.StatusOK)
		return
	}
	c.Data(http.StatusOK, listing.ContentType, buf.Bytes())
}

// fail は解決エラーをHTTPステータスに変換して返す
func (h *FileHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, fsroot.ErrBadPath):
		writeError(c, http.StatusBadRequest, "Bad request path")
	case errors.Is(err, fsroot.ErrOutsideRoot), errors.Is(err, fsroot.ErrNotFound):
		writeError(c, http.StatusNotFound, "File not found")
	case errors.Is(err, fsroot.ErrForbidden):
		writeError(c, http.StatusForbidden, "Forbidden")
	default:
		h.logger.Error("リクエストの処理に失敗しました",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		writeError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.logger.Debug("エラーレスポンスを返します",
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
}

// directoryLocation はディレクトリURLの末尾にスラッシュを付けたリダイレクト先を返す
// 先頭の連続したスラッシュは1つにまとめ、別ホストへのリダイレクトにならないようにする
func directoryLocation(u *url.URL) string {
	loc := &url.URL{
		Path:     "/" + strings.TrimLeft(u.Path, "/") + "/",
		RawQuery: u.RawQuery,
	}
	return loc.String()
}

// etag はファイル名・サイズ・更新時刻から強いETagを作る
func etag(entry *fsroot.Entry) string {
	d := xxhash.New()
	_, _ = d.WriteString(entry.Name)
	_, _ = d.WriteString(strconv.FormatInt(entry.Info.Size(), 10))
	_, _ = d.WriteString(strconv.FormatInt(entry.Info.ModTime().UnixNano(), 10))
	return `"` + strconv.FormatUint(d.Sum64(), 16) + `"`
}
