package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/bazaar/internal/model"
)

// PostgresProductRepo はPostgreSQLを使用した商品リポジトリ。
type PostgresProductRepo struct {
	db *sql.DB
}

// NewPostgresProductRepo はPostgresProductRepoを生成する。
func NewPostgresProductRepo(db *sql.DB) *PostgresProductRepo {
	return &PostgresProductRepo{db: db}
}

const productColumns = `id, store_id, category_id, subcategory_id, name, slug, description, brand, created_at, updated_at`

// findOne は条件付きで商品1件をバリアント付きで取得する。
func (r *PostgresProductRepo) findOne(ctx context.Context, where string, arg any) (*model.Product, error) {
	p := &model.Product{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE `+where,
		arg,
	).Scan(&p.ID, &p.StoreID, &p.CategoryID, &p.SubCategoryID,
		&p.Name, &p.Slug, &p.Description, &p.Brand, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}

	variants, err := r.loadVariants(ctx, []string{p.ID})
	if err != nil {
		return nil, err
	}
	p.Variants = variants[p.ID]
	return p, nil
}

// FindByID は指定IDの商品をバリアント付きで取得する。見つからない場合はnilを返す。
func (r *PostgresProductRepo) FindByID(ctx context.Context, id string) (*model.Product, error) {
	return r.findOne(ctx, "id = $1", id)
}

// FindBySlug はslugで商品をバリアント付きで取得する。見つからない場合はnilを返す。
func (r *PostgresProductRepo) FindBySlug(ctx context.Context, slug string) (*model.Product, error) {
	return r.findOne(ctx, "slug = $1", slug)
}

// SlugExists は指定ID以外でslugが使用済みかどうかを返す。
func (r *PostgresProductRepo) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM products WHERE slug = $1 AND id <> $2)`,
		slug, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug existence: %w", err)
	}
	return exists, nil
}

// ListByStore は指定ストアの商品一覧をバリアント付きでname昇順で取得する。
func (r *PostgresProductRepo) ListByStore(ctx context.Context, storeID string) ([]*model.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE store_id = $1 ORDER BY name`,
		storeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*model.Product
	var ids []string
	for rows.Next() {
		p := &model.Product{}
		if err := rows.Scan(&p.ID, &p.StoreID, &p.CategoryID, &p.SubCategoryID,
			&p.Name, &p.Slug, &p.Description, &p.Brand, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	if len(ids) == 0 {
		return products, nil
	}

	variants, err := r.loadVariants(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		p.Variants = variants[p.ID]
	}
	return products, nil
}

// loadVariants は指定商品群のバリアントを一括取得し、商品IDごとにまとめる。
func (r *PostgresProductRepo) loadVariants(ctx context.Context, productIDs []string) (map[string][]model.ProductVariant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, product_id, name, sku, price_cents, quantity, created_at, updated_at
		 FROM product_variants WHERE product_id = ANY($1) ORDER BY sku`,
		pq.Array(productIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load product variants: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]model.ProductVariant)
	for rows.Next() {
		v := model.ProductVariant{}
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Name, &v.SKU,
			&v.PriceCents, &v.Quantity, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product variant: %w", err)
		}
		result[v.ProductID] = append(result[v.ProductID], v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate product variants: %w", err)
	}
	return result, nil
}

// Upsert は商品とバリアントを同一トランザクションでUPSERTする。
// 渡されなかった既存バリアントは削除される。
func (r *PostgresProductRepo) Upsert(ctx context.Context, p *model.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO products (id, store_id, category_id, subcategory_id, name, slug, description, brand, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		 ON CONFLICT (id) DO UPDATE SET
		   category_id = EXCLUDED.category_id,
		   subcategory_id = EXCLUDED.subcategory_id,
		   name = EXCLUDED.name,
		   slug = EXCLUDED.slug,
		   description = EXCLUDED.description,
		   brand = EXCLUDED.brand,
		   updated_at = now()`,
		p.ID, p.StoreID, p.CategoryID, p.SubCategoryID, p.Name, p.Slug, p.Description, p.Brand,
	); err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}

	keepIDs := make([]string, 0, len(p.Variants))
	for i := range p.Variants {
		v := &p.Variants[i]
		v.ProductID = p.ID
		keepIDs = append(keepIDs, v.ID)

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO product_variants (id, product_id, name, sku, price_cents, quantity, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			 ON CONFLICT (id) DO UPDATE SET
			   name = EXCLUDED.name,
			   sku = EXCLUDED.sku,
			   price_cents = EXCLUDED.price_cents,
			   quantity = EXCLUDED.quantity,
			   updated_at = now()`,
			v.ID, v.ProductID, v.Name, v.SKU, v.PriceCents, v.Quantity,
		); err != nil {
			return fmt.Errorf("failed to upsert product variant: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM product_variants WHERE product_id = $1 AND NOT (id = ANY($2))`,
		p.ID, pq.Array(keepIDs),
	); err != nil {
		return fmt.Errorf("failed to prune product variants: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Delete は指定IDの商品を削除する。0件削除の場合はfalseを返す。
func (r *PostgresProductRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// FindVariantByID は指定IDのバリアントを取得する。見つからない場合はnilを返す。
// カート追加時の価格・名称スナップショット取得で使用する。
func (r *PostgresProductRepo) FindVariantByID(ctx context.Context, id string) (*model.ProductVariant, error) {
	v := &model.ProductVariant{}
	err := r.db.QueryRowContext(ctx,
		`SELECT v.id, v.product_id, p.name || ' ' || v.name, v.sku, v.price_cents, v.quantity, v.created_at, v.updated_at
		 FROM product_variants v
		 JOIN products p ON p.id = v.product_id
		 WHERE v.id = $1`,
		id,
	).Scan(&v.ID, &v.ProductID, &v.Name, &v.SKU, &v.PriceCents, &v.Quantity, &v.CreatedAt, &v.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product variant: %w", err)
	}
	return v, nil
}

// compile-time interface checks
var (
	_ ProductRepository = (*PostgresProductRepo)(nil)
	_ VariantFinder     = (*PostgresProductRepo)(nil)
)
