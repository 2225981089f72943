package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bazaar/internal/model"
)

// PostgresCategoryRepo はPostgreSQLを使用したカテゴリリポジトリ。
type PostgresCategoryRepo struct {
	db *sql.DB
}

// NewPostgresCategoryRepo はPostgresCategoryRepoを生成する。
func NewPostgresCategoryRepo(db *sql.DB) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{db: db}
}

// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
func (r *PostgresCategoryRepo) FindByID(ctx context.Context, id string) (*model.Category, error) {
	c := &model.Category{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, url, image_url, featured, created_at, updated_at
		 FROM categories WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.URL, &c.ImageURL, &c.Featured, &c.CreatedAt, &c.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	return c, nil
}

// List は全カテゴリをname昇順で取得する。
func (r *PostgresCategoryRepo) List(ctx context.Context) ([]*model.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, url, image_url, featured, created_at, updated_at
		 FROM categories ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*model.Category
	for rows.Next() {
		c := &model.Category{}
		if err := rows.Scan(&c.ID, &c.Name, &c.URL, &c.ImageURL, &c.Featured, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return categories, nil
}

// ListWithSubCategories は全カテゴリとサブカテゴリをLEFT JOINで取得する。
// カテゴリname昇順、サブカテゴリname昇順で返す。
func (r *PostgresCategoryRepo) ListWithSubCategories(ctx context.Context) ([]*model.CategoryWithSubs, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.url, c.image_url, c.featured, c.created_at, c.updated_at,
		        s.id, s.name, s.url, s.image_url, s.featured, s.category_id, s.created_at, s.updated_at
		 FROM categories c
		 LEFT JOIN subcategories s ON s.category_id = c.id
		 ORDER BY c.name, s.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories with subcategories: %w", err)
	}
	defer rows.Close()

	var result []*model.CategoryWithSubs
	index := make(map[string]*model.CategoryWithSubs)

	for rows.Next() {
		c := model.Category{}
		var subID, subName, subURL, subImageURL, subCategoryID sql.NullString
		var subFeatured sql.NullBool
		var subCreatedAt, subUpdatedAt sql.NullTime

		if err := rows.Scan(
			&c.ID, &c.Name, &c.URL, &c.ImageURL, &c.Featured, &c.CreatedAt, &c.UpdatedAt,
			&subID, &subName, &subURL, &subImageURL, &subFeatured, &subCategoryID, &subCreatedAt, &subUpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}

		entry, ok := index[c.ID]
		if !ok {
			entry = &model.CategoryWithSubs{Category: c}
			index[c.ID] = entry
			result = append(result, entry)
		}

		if subID.Valid {
			entry.SubCategories = append(entry.SubCategories, model.SubCategory{
				ID:         subID.String,
				Name:       subName.String,
				URL:        subURL.String,
				ImageURL:   subImageURL.String,
				Featured:   subFeatured.Bool,
				CategoryID: subCategoryID.String,
				CreatedAt:  subCreatedAt.Time,
				UpdatedAt:  subUpdatedAt.Time,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category rows: %w", err)
	}
	return result, nil
}

// FindConflict は指定ID以外でnameまたはurlが衝突する行を検索する。
// 事前チェック用のUXヒントであり、一意性の正はDB制約が持つ。
func (r *PostgresCategoryRepo) FindConflict(ctx context.Context, excludeID, name, url string) (string, error) {
	var conflictName, conflictURL string
	err := r.db.QueryRowContext(ctx,
		`SELECT name, url FROM categories
		 WHERE id <> $1 AND (name = $2 OR url = $3)
		 LIMIT 1`,
		excludeID, name, url,
	).Scan(&conflictName, &conflictURL)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to check category conflict: %w", err)
	}

	if conflictName == name {
		return "name", nil
	}
	return "url", nil
}

// Upsert はIDをキーにカテゴリをUPSERTする。
func (r *PostgresCategoryRepo) Upsert(ctx context.Context, c *model.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, url, image_url, featured, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   url = EXCLUDED.url,
		   image_url = EXCLUDED.image_url,
		   featured = EXCLUDED.featured,
		   updated_at = now()`,
		c.ID, c.Name, c.URL, c.ImageURL, c.Featured,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert category: %w", err)
	}
	return nil
}

// Delete は指定IDのカテゴリを削除する。0件削除の場合はfalseを返す。
func (r *PostgresCategoryRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete category: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ CategoryRepository = (*PostgresCategoryRepo)(nil)
