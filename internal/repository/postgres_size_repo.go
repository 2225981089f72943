package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bazaar/internal/model"
)

// PostgresSizeRepo はPostgreSQLを使用したサイズリポジトリ。
type PostgresSizeRepo struct {
	db *sql.DB
}

// NewPostgresSizeRepo はPostgresSizeRepoを生成する。
func NewPostgresSizeRepo(db *sql.DB) *PostgresSizeRepo {
	return &PostgresSizeRepo{db: db}
}

// ListByVariant は指定バリアントのサイズ一覧をname昇順で取得する。
func (r *PostgresSizeRepo) ListByVariant(ctx context.Context, variantID string) ([]*model.Size, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, variant_id, name, price_cents, quantity, created_at, updated_at
		 FROM sizes WHERE variant_id = $1 ORDER BY name`,
		variantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sizes: %w", err)
	}
	defer rows.Close()

	var sizes []*model.Size
	for rows.Next() {
		s := &model.Size{}
		if err := rows.Scan(&s.ID, &s.VariantID, &s.Name, &s.PriceCents,
			&s.Quantity, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan size: %w", err)
		}
		sizes = append(sizes, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sizes: %w", err)
	}
	return sizes, nil
}

// Upsert はIDをキーにサイズをUPSERTする。
func (r *PostgresSizeRepo) Upsert(ctx context.Context, s *model.Size) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sizes (id, variant_id, name, price_cents, quantity, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   price_cents = EXCLUDED.price_cents,
		   quantity = EXCLUDED.quantity,
		   updated_at = now()`,
		s.ID, s.VariantID, s.Name, s.PriceCents, s.Quantity,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert size: %w", err)
	}
	return nil
}

// Delete は指定IDのサイズを削除する。0件削除の場合はfalseを返す。
func (r *PostgresSizeRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sizes WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete size: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ SizeRepository = (*PostgresSizeRepo)(nil)
