package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bazaar/internal/model"
)

// PostgresCountryRepo はPostgreSQLを使用した国マスタリポジトリ。
type PostgresCountryRepo struct {
	db *sql.DB
}

// NewPostgresCountryRepo はPostgresCountryRepoを生成する。
func NewPostgresCountryRepo(db *sql.DB) *PostgresCountryRepo {
	return &PostgresCountryRepo{db: db}
}

// List は全国をname昇順で取得する。
func (r *PostgresCountryRepo) List(ctx context.Context) ([]*model.Country, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, code, created_at, updated_at FROM countries ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list countries: %w", err)
	}
	defer rows.Close()

	var countries []*model.Country
	for rows.Next() {
		c := &model.Country{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan country: %w", err)
		}
		countries = append(countries, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate countries: %w", err)
	}
	return countries, nil
}

// FindConflict は指定ID以外でnameまたはcodeが衝突する行を検索する。
func (r *PostgresCountryRepo) FindConflict(ctx context.Context, excludeID, name, code string) (string, error) {
	var conflictName, conflictCode string
	err := r.db.QueryRowContext(ctx,
		`SELECT name, code FROM countries
		 WHERE id <> $1 AND (name = $2 OR code = $3)
		 LIMIT 1`,
		excludeID, name, code,
	).Scan(&conflictName, &conflictCode)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to check country conflict: %w", err)
	}

	if conflictName == name {
		return "name", nil
	}
	return "code", nil
}

// Upsert はIDをキーに国をUPSERTする。
func (r *PostgresCountryRepo) Upsert(ctx context.Context, c *model.Country) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO countries (id, name, code, created_at, updated_at)
		 VALUES ($1, $2, $3, now(), now())
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   code = EXCLUDED.code,
		   updated_at = now()`,
		c.ID, c.Name, c.Code,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert country: %w", err)
	}
	return nil
}

// Delete は指定IDの国を削除する。0件削除の場合はfalseを返す。
func (r *PostgresCountryRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM countries WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete country: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ CountryRepository = (*PostgresCountryRepo)(nil)
