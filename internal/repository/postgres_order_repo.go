package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bazaar/internal/model"
)

// PostgresOrderRepo はPostgreSQLを使用した注文リポジトリ。
type PostgresOrderRepo struct {
	db *sql.DB
}

// NewPostgresOrderRepo はPostgresOrderRepoを生成する。
func NewPostgresOrderRepo(db *sql.DB) *PostgresOrderRepo {
	return &PostgresOrderRepo{db: db}
}

const orderColumns = `id, user_id, cart_id, total_cents, status, created_at, updated_at`

func scanOrder(row *sql.Row) (*model.Order, error) {
	o := &model.Order{}
	err := row.Scan(&o.ID, &o.UserID, &o.CartID, &o.TotalCents, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// FindByID は指定IDの注文を取得する。見つからない場合はnilを返す。
func (r *PostgresOrderRepo) FindByID(ctx context.Context, id string) (*model.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return o, nil
}

// FindByCartID はカートIDで注文を検索する。見つからない場合はnilを返す。
func (r *PostgresOrderRepo) FindByCartID(ctx context.Context, cartID string) (*model.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE cart_id = $1`, cartID))
	if err != nil {
		return nil, fmt.Errorf("failed to find order by cart ID: %w", err)
	}
	return o, nil
}

// ListByUser は指定ユーザーの注文一覧をcreated_at降順で取得する。
func (r *PostgresOrderRepo) ListByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*model.Order
	for rows.Next() {
		o := &model.Order{}
		if err := rows.Scan(&o.ID, &o.UserID, &o.CartID, &o.TotalCents,
			&o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	return orders, nil
}

// RecordPayment は注文のUPSERT（cart_idキー）と決済情報のUPSERT
// （order_idキー）を同一トランザクションで行う。
// 同一Webhookイベントが再送されても結果は変わらない。
func (r *PostgresOrderRepo) RecordPayment(ctx context.Context, order *model.Order, details *model.PaymentDetails) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// cart_idの一意インデックスにより、1カートにつき注文は1件
	var orderID string
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO orders (id, user_id, cart_id, total_cents, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())
		 ON CONFLICT (cart_id) DO UPDATE SET
		   total_cents = EXCLUDED.total_cents,
		   status = EXCLUDED.status,
		   updated_at = now()
		 RETURNING id`,
		order.ID, order.UserID, order.CartID, order.TotalCents, order.Status,
	).Scan(&orderID); err != nil {
		return fmt.Errorf("failed to upsert order: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO payment_details (id, order_id, gateway_session_id, payment_intent_id, amount_cents, currency, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		 ON CONFLICT (order_id) DO UPDATE SET
		   gateway_session_id = EXCLUDED.gateway_session_id,
		   payment_intent_id = EXCLUDED.payment_intent_id,
		   amount_cents = EXCLUDED.amount_cents,
		   currency = EXCLUDED.currency,
		   status = EXCLUDED.status,
		   updated_at = now()`,
		details.ID, orderID, details.GatewaySessionID, details.PaymentIntentID,
		details.AmountCents, details.Currency, details.Status,
	); err != nil {
		return fmt.Errorf("failed to upsert payment details: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	order.ID = orderID
	return nil
}

// compile-time interface check
var _ OrderRepository = (*PostgresOrderRepo)(nil)
