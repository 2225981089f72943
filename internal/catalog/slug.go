package catalog

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// SlugChecker はスラグの使用状況を照会するインターフェース。
// repository.ProductRepositoryの部分集合として定義する。
type SlugChecker interface {
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
}

// maxSlugAttempts はスラグ一意化の試行回数上限。
const maxSlugAttempts = 100

// Slugify は商品名からURLスラグを生成する。
// 英数字以外はハイフンに置換し、連続・前後のハイフンは畳み込む。
func Slugify(name string) string {
	var b strings.Builder
	prevHyphen := true // 先頭のハイフンを抑止
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// GenerateUniqueSlug はベース名から一意なスラグを生成する。
// ベーススラグが使用済みの場合は "-2", "-3", ... と採番して空きを探す。
// excludeIDは更新時に自分自身のスラグを衝突扱いしないためのID。
func GenerateUniqueSlug(ctx context.Context, checker SlugChecker, name, excludeID string) (string, error) {
	base := Slugify(name)
	if base == "" {
		return "", fmt.Errorf("name produces empty slug: %q", name)
	}

	slug := base
	for i := 2; i <= maxSlugAttempts; i++ {
		exists, err := checker.SlugExists(ctx, slug, excludeID)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}

	return "", fmt.Errorf("failed to generate unique slug for %q after %d attempts", name, maxSlugAttempts)
}
