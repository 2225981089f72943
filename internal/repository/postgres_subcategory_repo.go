package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bazaar/internal/model"
)

// PostgresSubCategoryRepo はPostgreSQLを使用したサブカテゴリリポジトリ。
type PostgresSubCategoryRepo struct {
	db *sql.DB
}

// NewPostgresSubCategoryRepo はPostgresSubCategoryRepoを生成する。
func NewPostgresSubCategoryRepo(db *sql.DB) *PostgresSubCategoryRepo {
	return &PostgresSubCategoryRepo{db: db}
}

// FindByID は指定IDのサブカテゴリを取得する。見つからない場合はnilを返す。
func (r *PostgresSubCategoryRepo) FindByID(ctx context.Context, id string) (*model.SubCategory, error) {
	sc := &model.SubCategory{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, url, image_url, featured, category_id, created_at, updated_at
		 FROM subcategories WHERE id = $1`,
		id,
	).Scan(&sc.ID, &sc.Name, &sc.URL, &sc.ImageURL, &sc.Featured, &sc.CategoryID, &sc.CreatedAt, &sc.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subcategory: %w", err)
	}
	return sc, nil
}

// ListByCategory は指定カテゴリのサブカテゴリをname昇順で取得する。
func (r *PostgresSubCategoryRepo) ListByCategory(ctx context.Context, categoryID string) ([]*model.SubCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, url, image_url, featured, category_id, created_at, updated_at
		 FROM subcategories WHERE category_id = $1 ORDER BY name`,
		categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list subcategories: %w", err)
	}
	defer rows.Close()

	var subcategories []*model.SubCategory
	for rows.Next() {
		sc := &model.SubCategory{}
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.URL, &sc.ImageURL, &sc.Featured,
			&sc.CategoryID, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subcategory: %w", err)
		}
		subcategories = append(subcategories, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subcategories: %w", err)
	}
	return subcategories, nil
}

// FindConflict は指定ID以外でnameまたはurlが衝突する行を検索する。
func (r *PostgresSubCategoryRepo) FindConflict(ctx context.Context, excludeID, name, url string) (string, error) {
	var conflictName, conflictURL string
	err := r.db.QueryRowContext(ctx,
		`SELECT name, url FROM subcategories
		 WHERE id <> $1 AND (name = $2 OR url = $3)
		 LIMIT 1`,
		excludeID, name, url,
	).Scan(&conflictName, &conflictURL)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to check subcategory conflict: %w", err)
	}

	if conflictName == name {
		return "name", nil
	}
	return "url", nil
}

// Upsert はIDをキーにサブカテゴリをUPSERTする。
func (r *PostgresSubCategoryRepo) Upsert(ctx context.Context, sc *model.SubCategory) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subcategories (id, name, url, image_url, featured, category_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   url = EXCLUDED.url,
		   image_url = EXCLUDED.image_url,
		   featured = EXCLUDED.featured,
		   category_id = EXCLUDED.category_id,
		   updated_at = now()`,
		sc.ID, sc.Name, sc.URL, sc.ImageURL, sc.Featured, sc.CategoryID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert subcategory: %w", err)
	}
	return nil
}

// Delete は指定IDのサブカテゴリを削除する。0件削除の場合はfalseを返す。
func (r *PostgresSubCategoryRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM subcategories WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete subcategory: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ SubCategoryRepository = (*PostgresSubCategoryRepo)(nil)
