package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/bazaar/internal/model"
)

// PostgresCartRepo はPostgreSQLを使用したカートリポジトリ。
type PostgresCartRepo struct {
	db *sql.DB
}

// NewPostgresCartRepo はPostgresCartRepoを生成する。
func NewPostgresCartRepo(db *sql.DB) *PostgresCartRepo {
	return &PostgresCartRepo{db: db}
}

// FindByID は指定IDのカートを明細付きで取得する。見つからない場合はnilを返す。
func (r *PostgresCartRepo) FindByID(ctx context.Context, id string) (*model.Cart, error) {
	cart := &model.Cart{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM carts WHERE id = $1`,
		id,
	).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}

	if err := r.loadItems(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// GetOrCreateByUserID はユーザーのカートを取得し、
// 存在しない場合は空のカートを作成して返す。
// UNIQUE(user_id)制約を利用したINSERT ON CONFLICT DO NOTHINGで
// 並行リクエストでも1ユーザー1カートを保証する。
func (r *PostgresCartRepo) GetOrCreateByUserID(ctx context.Context, userID string) (*model.Cart, error) {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO carts (id, user_id, created_at, updated_at)
		 VALUES ($1, $2, now(), now())
		 ON CONFLICT (user_id) DO NOTHING`,
		uuid.New().String(), userID,
	); err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	cart := &model.Cart{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`,
		userID,
	).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to find cart by user ID: %w", err)
	}

	if err := r.loadItems(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// loadItems はカートの明細を読み込む。
func (r *PostgresCartRepo) loadItems(ctx context.Context, cart *model.Cart) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, cart_id, variant_id, name, price_cents, quantity, created_at, updated_at
		 FROM cart_items WHERE cart_id = $1 ORDER BY created_at`,
		cart.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to load cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := model.CartItem{}
		if err := rows.Scan(&item.ID, &item.CartID, &item.VariantID, &item.Name,
			&item.PriceCents, &item.Quantity, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return fmt.Errorf("failed to scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate cart items: %w", err)
	}
	return nil
}

// UpsertItem はカート明細をUPSERTする。
// UNIQUE(cart_id, variant_id)制約により、同一バリアントの明細が
// 既に存在する場合は数量を加算しスナップショット価格を更新する。
func (r *PostgresCartRepo) UpsertItem(ctx context.Context, item *model.CartItem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cart_items (id, cart_id, variant_id, name, price_cents, quantity, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		 ON CONFLICT (cart_id, variant_id) DO UPDATE SET
		   name = EXCLUDED.name,
		   price_cents = EXCLUDED.price_cents,
		   quantity = cart_items.quantity + EXCLUDED.quantity,
		   updated_at = now()`,
		item.ID, item.CartID, item.VariantID, item.Name, item.PriceCents, item.Quantity,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cart item: %w", err)
	}
	return nil
}

// UpdateItemQuantity は明細の数量を更新する。明細が存在しない場合はfalseを返す。
func (r *PostgresCartRepo) UpdateItemQuantity(ctx context.Context, cartID, itemID string, quantity int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = $3, updated_at = now()
		 WHERE cart_id = $1 AND id = $2`,
		cartID, itemID, quantity,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update cart item quantity: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeleteItem は明細を削除する。明細が存在しない場合はfalseを返す。
func (r *PostgresCartRepo) DeleteItem(ctx context.Context, cartID, itemID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND id = $2`,
		cartID, itemID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete cart item: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Clear はカートの全明細を削除する。
func (r *PostgresCartRepo) Clear(ctx context.Context, cartID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1`, cartID,
	); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CartRepository = (*PostgresCartRepo)(nil)
