// Package listing はディレクトリ一覧ページを生成する
package listing

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"sort"
	"strings"
)

// ContentType は一覧ページのContent-Type
const ContentType = "text/html; charset=utf-8"

//go:embed templates/listing.html
var templateFS embed.FS

var page = template.Must(template.ParseFS(templateFS, "templates/listing.html"))

// Entry は一覧に表示する1件
type Entry struct {
	Name      string
	IsDir     bool // シンボリックリンクの場合はリンク先がディレクトリか
	IsSymlink bool
}

// FromDirEntries は fs.DirEntry を一覧のエントリに変換する
// シンボリックリンクのリンク先がディレクトリかどうかは isDir で判定する
func FromDirEntries(entries []fs.DirEntry, isDir func(name string) bool) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, de := range entries {
		e := Entry{
			Name:      de.Name(),
			IsDir:     de.IsDir(),
			IsSymlink: de.Type()&fs.ModeSymlink != 0,
		}
		if e.IsSymlink && isDir != nil {
			e.IsDir = isDir(e.Name)
		}
		out = append(out, e)
	}
	return out
}

type row struct {
	Href    template.URL
	Display string
}

// Render はURLパス urlPath のディレクトリ一覧をHTMLで書き出す
// エントリは大文字小文字を区別せずに名前順で並べる
func Render(w io.Writer, urlPath string, entries []Entry) error {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
	})

	rows := make([]row, 0, len(sorted))
	for _, e := range sorted {
		display, link := e.Name, escape(e.Name)
		if e.IsDir {
			display += "/"
			link += "/"
		}
		if e.IsSymlink {
			display = e.Name + "@"
		}
		rows = append(rows, row{Href: template.URL(link), Display: display})
	}

	data := struct {
		Path    string
		Entries []row
	}{
		Path:    urlPath,
		Entries: rows,
	}
	if err := page.Execute(w, data); err != nil {
		return fmt.Errorf("一覧ページの生成に失敗: %w", err)
	}
	return nil
}

// escape はファイル名を相対URLとして安全な形にエスケープする
// ":" を残すと "javascript:" のようなスキームとして解釈されるため必ず変換する
func escape(name string) string {
	return strings.ReplaceAll(url.PathEscape(name), ":", "%3A")
}
