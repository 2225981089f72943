package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bazaar/internal/model"
)

// PostgresStoreRepo はPostgreSQLを使用したストアリポジトリ。
type PostgresStoreRepo struct {
	db *sql.DB
}

// NewPostgresStoreRepo はPostgresStoreRepoを生成する。
func NewPostgresStoreRepo(db *sql.DB) *PostgresStoreRepo {
	return &PostgresStoreRepo{db: db}
}

const storeColumns = `id, user_id, name, url, description, logo_url, status, created_at, updated_at`

func scanStore(row *sql.Row) (*model.Store, error) {
	s := &model.Store{}
	err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.URL, &s.Description,
		&s.LogoURL, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// FindByID は指定IDのストアを取得する。見つからない場合はnilを返す。
func (r *PostgresStoreRepo) FindByID(ctx context.Context, id string) (*model.Store, error) {
	s, err := scanStore(r.db.QueryRowContext(ctx,
		`SELECT `+storeColumns+` FROM stores WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to find store: %w", err)
	}
	return s, nil
}

// FindByUserID は指定ユーザーが所有するストアを取得する。見つからない場合はnilを返す。
func (r *PostgresStoreRepo) FindByUserID(ctx context.Context, userID string) (*model.Store, error) {
	s, err := scanStore(r.db.QueryRowContext(ctx,
		`SELECT `+storeColumns+` FROM stores WHERE user_id = $1`, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to find store by user ID: %w", err)
	}
	return s, nil
}

// List は全ストアをname昇順で取得する。
func (r *PostgresStoreRepo) List(ctx context.Context) ([]*model.Store, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+storeColumns+` FROM stores ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	defer rows.Close()

	var stores []*model.Store
	for rows.Next() {
		s := &model.Store{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.URL, &s.Description,
			&s.LogoURL, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan store: %w", err)
		}
		stores = append(stores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stores: %w", err)
	}
	return stores, nil
}

// FindConflict は指定ID以外でnameまたはurlが衝突する行を検索する。
func (r *PostgresStoreRepo) FindConflict(ctx context.Context, excludeID, name, url string) (string, error) {
	var conflictName, conflictURL string
	err := r.db.QueryRowContext(ctx,
		`SELECT name, url FROM stores
		 WHERE id <> $1 AND (name = $2 OR url = $3)
		 LIMIT 1`,
		excludeID, name, url,
	).Scan(&conflictName, &conflictURL)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to check store conflict: %w", err)
	}

	if conflictName == name {
		return "name", nil
	}
	return "url", nil
}

// Upsert はIDをキーにストアをUPSERTする。
func (r *PostgresStoreRepo) Upsert(ctx context.Context, s *model.Store) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO stores (id, user_id, name, url, description, logo_url, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   url = EXCLUDED.url,
		   description = EXCLUDED.description,
		   logo_url = EXCLUDED.logo_url,
		   status = EXCLUDED.status,
		   updated_at = now()`,
		s.ID, s.UserID, s.Name, s.URL, s.Description, s.LogoURL, s.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert store: %w", err)
	}
	return nil
}

// Delete は指定IDのストアを削除する。0件削除の場合はfalseを返す。
func (r *PostgresStoreRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete store: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ StoreRepository = (*PostgresStoreRepo)(nil)
