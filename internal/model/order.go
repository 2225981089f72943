package model

import "time"

// Cart はユーザーごとに1件のショッピングカートを表す。
type Cart struct {
	ID        string
	UserID    string
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem はカート内の1明細を表す。商品名と価格は追加時点の
// スナップショットとして保持する。
type CartItem struct {
	ID         string
	CartID     string
	VariantID  string
	Name       string
	PriceCents int64
	Quantity   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TotalCents はカート内全明細の合計金額（最小通貨単位）を返す。
func (c *Cart) TotalCents() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.PriceCents * int64(item.Quantity)
	}
	return total
}

// OrderStatus は注文の状態を表す。
type OrderStatus string

const (
	// OrderStatusPending は決済待ちの注文。
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusPaid は決済完了した注文。
	OrderStatusPaid OrderStatus = "PAID"
	// OrderStatusCancelled はキャンセルされた注文。
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order は確定した注文を表す。決済Webhookの照合で作成・更新される。
type Order struct {
	ID         string
	UserID     string
	CartID     string
	TotalCents int64
	Status     OrderStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PaymentDetails は注文に1:1で紐づく決済情報を表す。
// order_idをキーとしたUPSERTにより、Webhookの再送に対して冪等。
type PaymentDetails struct {
	ID               string
	OrderID          string
	GatewaySessionID string
	PaymentIntentID  string
	AmountCents      int64
	Currency         string
	Status           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
