// Package checkout はカート管理と決済ゲートウェイを介した
// チェックアウトフローを提供する。
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bazaar/internal/model"
	"github.com/hitoshi/bazaar/internal/repository"
)

// CartService はユーザーごとのカート操作を提供する。
// 明細の商品名と価格は追加時点のスナップショットとして保持するため、
// 以降の商品価格の変更はカートに影響しない。
type CartService struct {
	carts    repository.CartRepository
	variants repository.VariantFinder
	logger   *slog.Logger
}

// NewCartService はCartServiceを生成する。
func NewCartService(carts repository.CartRepository, variants repository.VariantFinder, logger *slog.Logger) *CartService {
	return &CartService{
		carts:    carts,
		variants: variants,
		logger:   logger,
	}
}

// GetOrCreate はユーザーのカートを取得する。存在しない場合は空で作成する。
func (s *CartService) GetOrCreate(ctx context.Context, userID string) (*model.Cart, error) {
	cart, err := s.carts.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create cart: %w", err)
	}
	return cart, nil
}

// AddItem はバリアントをカートに追加する。名前と価格はこの時点の
// スナップショットを保存する。同一バリアントの明細が既にある場合は
// 数量が加算される。
func (s *CartService) AddItem(ctx context.Context, userID, variantID string, quantity int) (*model.Cart, error) {
	if quantity < 1 {
		return nil, model.NewInvalidRequestError("数量は1以上である必要があります。")
	}

	variant, err := s.variants.FindVariantByID(ctx, variantID)
	if err != nil {
		return nil, fmt.Errorf("failed to find variant: %w", err)
	}
	if variant == nil {
		return nil, model.NewVariantNotFoundError(variantID)
	}

	cart, err := s.carts.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create cart: %w", err)
	}

	now := time.Now()
	item := &model.CartItem{
		ID:         uuid.New().String(),
		CartID:     cart.ID,
		VariantID:  variant.ID,
		Name:       variant.Name,
		PriceCents: variant.PriceCents,
		Quantity:   quantity,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.carts.UpsertItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to upsert cart item: %w", err)
	}

	return s.reload(ctx, cart.ID)
}

// UpdateQuantity はカート明細の数量を変更する。
func (s *CartService) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*model.Cart, error) {
	if quantity < 1 {
		return nil, model.NewInvalidRequestError("数量は1以上である必要があります。")
	}

	cart, err := s.carts.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create cart: %w", err)
	}

	updated, err := s.carts.UpdateItemQuantity(ctx, cart.ID, itemID, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to update cart item quantity: %w", err)
	}
	if !updated {
		return nil, model.NewEntityNotFoundError("カート明細", itemID)
	}

	return s.reload(ctx, cart.ID)
}

// RemoveItem はカートから明細を削除する。
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) (*model.Cart, error) {
	cart, err := s.carts.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create cart: %w", err)
	}

	deleted, err := s.carts.DeleteItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete cart item: %w", err)
	}
	if !deleted {
		return nil, model.NewEntityNotFoundError("カート明細", itemID)
	}

	return s.reload(ctx, cart.ID)
}

func (s *CartService) reload(ctx context.Context, cartID string) (*model.Cart, error) {
	cart, err := s.carts.FindByID(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload cart: %w", err)
	}
	if cart == nil {
		return nil, model.NewCartNotFoundError(cartID)
	}
	return cart, nil
}
