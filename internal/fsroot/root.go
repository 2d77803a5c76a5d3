package fsroot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// maxSymlinks は1回の解決で辿るシンボリックリンクの上限
const maxSymlinks = 40

// 解決エラー。呼び出し側は errors.Is で判定する
var (
	ErrBadPath     = errors.New("不正なパス")
	ErrNotFound    = errors.New("ファイルが見つかりません")
	ErrForbidden   = errors.New("アクセスが許可されていません")
	ErrOutsideRoot = errors.New("公開ディレクトリの外を指しています")
)

// Root は公開ディレクトリへの読み取り専用ハンドル
type Root struct {
	dir  string
	real string // dir のシンボリックリンクを解決したパス
	root *os.Root
}

// Entry は解決済みのファイルまたはディレクトリ
type Entry struct {
	Name string      // Root 相対のスラッシュ区切りパス（Root 自身は "."）
	Info fs.FileInfo // シンボリックリンクを辿った後の情報

	target string // シンボリックリンクを含まない実体の Root 相対パス
}

// IsDir はエントリがディレクトリかどうかを返す
func (e *Entry) IsDir() bool {
	return e.Info.IsDir()
}

func (e *Entry) path() string {
	if e.target != "" {
		return e.target
	}
	return e.Name
}

// Open は dir を Served Root として開く
func Open(dir string) (*Root, error) {
	r, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("公開ディレクトリを開けません: %w", err)
	}
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		real = dir
	}
	return &Root{dir: dir, real: real, root: r}, nil
}

// Dir は Served Root のパスを返す
func (r *Root) Dir() string {
	return r.dir
}

// Close はハンドルを解放する
func (r *Root) Close() error {
	return r.root.Close()
}

// Clean はURLパスを Root 相対の名前に変換する
func Clean(urlPath string) (string, error) {
	if strings.IndexByte(urlPath, 0) >= 0 {
		return "", ErrBadPath
	}

	segments := strings.FieldsFunc(urlPath, func(c rune) bool {
		return c == '/' || c == '\\'
	})
	for _, seg := range segments {
		if seg == ".." {
			return "", ErrOutsideRoot
		}
	}

	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" {
		name = "."
	}
	return name, nil
}

// Resolve はURLパスを Root 配下のエントリに解決する
func (r *Root) Resolve(urlPath string) (*Entry, error) {
	name, err := Clean(urlPath)
	if err != nil {
		return nil, err
	}

	target, err := r.canonical(name)
	if err != nil {
		return nil, err
	}

	info, err := r.root.Stat(target)
	if err != nil {
		return nil, classify(err)
	}

	return &Entry{Name: name, Info: info, target: target}, nil
}

// canonical は name に含まれるシンボリックリンクを1要素ずつ展開し、
// リンクを含まない Root 相対パスを返す。
// os.Root は絶対パスのリンクを辿らないため、Root 内を指す絶対リンクはここで相対パスに書き換える
func (r *Root) canonical(name string) (string, error) {
	pending := strings.Split(name, "/")
	var resolved []string

	for hops := 0; len(pending) > 0; {
		seg := pending[0]
		pending = pending[1:]

		switch seg {
		case "", ".":
			continue
		case "..":
			if len(resolved) == 0 {
				return "", ErrOutsideRoot
			}
			resolved = resolved[:len(resolved)-1]
			continue
		}

		cur := path.Join(path.Join(resolved...), seg)
		info, err := r.root.Lstat(cur)
		if err != nil {
			return "", classify(err)
		}
		if info.Mode()&fs.ModeSymlink == 0 {
			resolved = append(resolved, seg)
			continue
		}

		hops++
		if hops > maxSymlinks {
			return "", fmt.Errorf("%w: シンボリックリンクが多すぎます: %s", ErrNotFound, name)
		}

		// cur の親はリンクを含まないので、Root 外のパスを読むことはない
		link, err := os.Readlink(filepath.Join(r.dir, filepath.FromSlash(cur)))
		if err != nil {
			return "", classify(err)
		}
		if filepath.IsAbs(link) {
			rel, ok := r.relative(link)
			if !ok {
				return "", ErrOutsideRoot
			}
			resolved = resolved[:0]
			link = rel
		}
		pending = append(strings.Split(filepath.ToSlash(link), "/"), pending...)
	}

	if len(resolved) == 0 {
		return ".", nil
	}
	return path.Join(resolved...), nil
}

// relative は絶対パスを Root 相対パスに変換する。Root 外なら false
func (r *Root) relative(abs string) (string, bool) {
	for _, base := range []string{r.dir, r.real} {
		rel, err := filepath.Rel(base, abs)
		if err != nil {
			continue
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return rel, true
	}
	return "", false
}

// OpenFile はエントリを読み取り用に開く
func (r *Root) OpenFile(e *Entry) (*os.File, error) {
	f, err := r.root.Open(e.path())
	if err != nil {
		return nil, classify(err)
	}
	return f, nil
}

// ReadDir はディレクトリエントリの一覧を返す
func (r *Root) ReadDir(e *Entry) ([]fs.DirEntry, error) {
	if !e.IsDir() {
		return nil, fmt.Errorf("%w: ディレクトリではありません: %s", ErrNotFound, e.Name)
	}

	f, err := r.root.Open(e.path())
	if err != nil {
		return nil, classify(err)
	}
	defer func() {
		_ = f.Close()
	}()

	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, classify(err)
	}
	return entries, nil
}

// classify はファイルシステムのエラーを解決エラーに変換する
// 権限エラー以外は見つからない扱いになる
func classify(err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	default:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
}
