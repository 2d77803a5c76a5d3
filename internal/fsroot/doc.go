// Package fsroot は公開ディレクトリ（Served Root）配下へのパス解決を担う。
//
// # 責務
//   - URLパスを Served Root 相対のファイル名へ正規化する
//   - ".." によるディレクトリトラバーサルを拒否する
//   - シンボリックリンク経由での Served Root 外へのアクセスを拒否する
//   - ファイルシステムのエラーを HTTP の意味（404/403/400）に対応付ける
//
// # 仕様
//   - パスの中に ".." セグメントが1つでもあれば、正規化で Root 内に収まる場合でも拒否する
//   - NUL を含むパスは不正なリクエストとして扱う
//   - 実際のオープンは全て os.Root を経由するため、Root 外のバイトは返らない
//   - Served Root は読み取り専用の入力として扱い、書き込みは行わない
package fsroot
