// Package catalog はカタログ系エンティティ（カテゴリ、サブカテゴリ、ストア、
// 商品、サイズ、国、クーポン）のビジネスロジックを提供する。
// 一意性の衝突処理、スラグ生成、説明文のサニタイズ、ロゴURLの検証を含む。
package catalog

import (
	"context"
	"time"
)

// homeCacheKey はストアフロントのホーム表示（カテゴリ＋サブカテゴリ）の
// キャッシュキー。カテゴリ・サブカテゴリの変更時に無効化する。
const homeCacheKey = "catalog:home"

// Cache は読み取り頻度の高い一覧レスポンスの共有キャッシュのインターフェース。
// 複数インスタンスで共有されるため、プロセスローカルではなく外部ストアを使う。
// 障害時はキャッシュなしで動作を継続する（実装側がエラーを握りつぶさない）。
type Cache interface {
	// Get はキーの値を取得する。キーが存在しない場合は(nil, nil)を返す。
	Get(ctx context.Context, key string) ([]byte, error)

	// Set は値をTTL付きで保存する。
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete はキーを削除する。キーが存在しなくてもエラーにしない。
	Delete(ctx context.Context, key string) error
}
