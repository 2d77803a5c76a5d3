// Package server は、公開ディレクトリを配信するHTTPサーバーを管理します。
//
// このパッケージは、ソケットのバインドと接続の受け付け（Listener）、
// リクエストをファイルへ対応付けて応答する処理（Handler）、
// およびヘルスチェック・メトリクス用の管理リスナーを担当します。
//
// 責務:
//   - TCPポートのバインドと接続の受け付け
//   - GET/HEADリクエストに対するファイル・インデックス・ディレクトリ一覧の配信
//   - 404/403/400/501 のエラーページ生成
//   - アクセスログ、リクエストID、メトリクスの記録
//   - グレースフルシャットダウン
//
// 仕様:
//   - ルーティングとミドルウェアは gin を使用
//   - 接続ごとにゴルーチンで処理し、同時接続数は設定で制限できる（1で逐次処理）
//   - 公開ディレクトリは読み取り専用で、リクエスト間で共有する可変状態はない
//   - バインドに失敗した場合は Start がエラーを返す
package server
