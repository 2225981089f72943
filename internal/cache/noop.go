package cache

import (
	"context"
	"time"

	"github.com/hitoshi/bazaar/internal/catalog"
)

// NoopCache は何も保存しないキャッシュ。Redis未設定時のフォールバック。
type NoopCache struct{}

var _ catalog.Cache = NoopCache{}

// Get は常にミスとして(nil, nil)を返す。
func (NoopCache) Get(ctx context.Context, key string) ([]byte, error) { return nil, nil }

// Set は何もしない。
func (NoopCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

// Delete は何もしない。
func (NoopCache) Delete(ctx context.Context, key string) error { return nil }
