package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bazaar/internal/model"
)

// PostgresCouponRepo はPostgreSQLを使用したクーポンリポジトリ。
type PostgresCouponRepo struct {
	db *sql.DB
}

// NewPostgresCouponRepo はPostgresCouponRepoを生成する。
func NewPostgresCouponRepo(db *sql.DB) *PostgresCouponRepo {
	return &PostgresCouponRepo{db: db}
}

const couponColumns = `id, store_id, code, discount, starts_at, ends_at, created_at, updated_at`

// FindByCode はコードでクーポンを検索する。見つからない場合はnilを返す。
func (r *PostgresCouponRepo) FindByCode(ctx context.Context, code string) (*model.Coupon, error) {
	c := &model.Coupon{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE code = $1`,
		code,
	).Scan(&c.ID, &c.StoreID, &c.Code, &c.Discount, &c.StartsAt, &c.EndsAt, &c.CreatedAt, &c.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find coupon: %w", err)
	}
	return c, nil
}

// ListByStore は指定ストアのクーポン一覧をcode昇順で取得する。
func (r *PostgresCouponRepo) ListByStore(ctx context.Context, storeID string) ([]*model.Coupon, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE store_id = $1 ORDER BY code`,
		storeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	defer rows.Close()

	var coupons []*model.Coupon
	for rows.Next() {
		c := &model.Coupon{}
		if err := rows.Scan(&c.ID, &c.StoreID, &c.Code, &c.Discount,
			&c.StartsAt, &c.EndsAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate coupons: %w", err)
	}
	return coupons, nil
}

// Upsert はIDをキーにクーポンをUPSERTする。
func (r *PostgresCouponRepo) Upsert(ctx context.Context, c *model.Coupon) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO coupons (id, store_id, code, discount, starts_at, ends_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		 ON CONFLICT (id) DO UPDATE SET
		   code = EXCLUDED.code,
		   discount = EXCLUDED.discount,
		   starts_at = EXCLUDED.starts_at,
		   ends_at = EXCLUDED.ends_at,
		   updated_at = now()`,
		c.ID, c.StoreID, c.Code, c.Discount, c.StartsAt, c.EndsAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert coupon: %w", err)
	}
	return nil
}

// Delete は指定IDのクーポンを削除する。0件削除の場合はfalseを返す。
func (r *PostgresCouponRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete coupon: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ CouponRepository = (*PostgresCouponRepo)(nil)
