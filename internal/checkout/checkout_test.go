package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hitoshi/bazaar/internal/model"
	"github.com/hitoshi/bazaar/internal/payment"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockCartRepo struct {
	findByIDFunc           func(ctx context.Context, id string) (*model.Cart, error)
	getOrCreateByUserFunc  func(ctx context.Context, userID string) (*model.Cart, error)
	upsertItemFunc         func(ctx context.Context, item *model.CartItem) error
	updateItemQuantityFunc func(ctx context.Context, cartID, itemID string, quantity int) (bool, error)
	deleteItemFunc         func(ctx context.Context, cartID, itemID string) (bool, error)

	cleared []string
}

func (m *mockCartRepo) FindByID(ctx context.Context, id string) (*model.Cart, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockCartRepo) GetOrCreateByUserID(ctx context.Context, userID string) (*model.Cart, error) {
	if m.getOrCreateByUserFunc != nil {
		return m.getOrCreateByUserFunc(ctx, userID)
	}
	return &model.Cart{ID: "cart-1", UserID: userID}, nil
}

func (m *mockCartRepo) UpsertItem(ctx context.Context, item *model.CartItem) error {
	if m.upsertItemFunc != nil {
		return m.upsertItemFunc(ctx, item)
	}
	return nil
}

func (m *mockCartRepo) UpdateItemQuantity(ctx context.Context, cartID, itemID string, quantity int) (bool, error) {
	if m.updateItemQuantityFunc != nil {
		return m.updateItemQuantityFunc(ctx, cartID, itemID, quantity)
	}
	return true, nil
}

func (m *mockCartRepo) DeleteItem(ctx context.Context, cartID, itemID string) (bool, error) {
	if m.deleteItemFunc != nil {
		return m.deleteItemFunc(ctx, cartID, itemID)
	}
	return true, nil
}

func (m *mockCartRepo) Clear(ctx context.Context, cartID string) error {
	m.cleared = append(m.cleared, cartID)
	return nil
}

type mockOrderRepo struct {
	recordPaymentFunc func(ctx context.Context, order *model.Order, details *model.PaymentDetails) error
}

func (m *mockOrderRepo) FindByID(ctx context.Context, id string) (*model.Order, error) {
	return nil, nil
}
func (m *mockOrderRepo) FindByCartID(ctx context.Context, cartID string) (*model.Order, error) {
	return nil, nil
}
func (m *mockOrderRepo) ListByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	return nil, nil
}
func (m *mockOrderRepo) RecordPayment(ctx context.Context, order *model.Order, details *model.PaymentDetails) error {
	if m.recordPaymentFunc != nil {
		return m.recordPaymentFunc(ctx, order, details)
	}
	return nil
}

type mockGateway struct {
	createFunc func(ctx context.Context, params payment.SessionParams) (*payment.Session, error)
	params     []payment.SessionParams
}

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, params payment.SessionParams) (*payment.Session, error) {
	m.params = append(m.params, params)
	if m.createFunc != nil {
		return m.createFunc(ctx, params)
	}
	return &payment.Session{ID: "cs_1", URL: "https://pay.example.com/cs_1"}, nil
}

func filledCart(userID string) *model.Cart {
	return &model.Cart{
		ID:     "cart-1",
		UserID: userID,
		Items: []model.CartItem{
			{ID: "item-1", VariantID: "var-1", Name: "Leather Wallet (Brown)", PriceCents: 4500, Quantity: 2},
			{ID: "item-2", VariantID: "var-2", Name: "Belt", PriceCents: 1200, Quantity: 1},
		},
	}
}

func newCheckoutService(carts *mockCartRepo, orders *mockOrderRepo, gateway *mockGateway) *Service {
	return NewService(carts, orders, gateway, testLogger(),
		"usd", "https://shop.example.com/success", "https://shop.example.com/cancel")
}

// カート内容がゲートウェイの明細に変換されることを検証
func TestService_CreateSession(t *testing.T) {
	carts := &mockCartRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Cart, error) {
			return filledCart("user-1"), nil
		},
	}
	gateway := &mockGateway{}
	svc := newCheckoutService(carts, &mockOrderRepo{}, gateway)

	session, err := svc.CreateSession(context.Background(), "user-1", "cart-1")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if session.ID != "cs_1" {
		t.Errorf("session.ID = %q, want cs_1", session.ID)
	}

	if len(gateway.params) != 1 {
		t.Fatalf("gateway called %d times, want 1", len(gateway.params))
	}
	params := gateway.params[0]
	if len(params.LineItems) != 2 {
		t.Fatalf("line items = %d, want 2", len(params.LineItems))
	}
	if params.LineItems[0].UnitAmountCents != 4500 || params.LineItems[0].Quantity != 2 {
		t.Errorf("line item 0 = %+v", params.LineItems[0])
	}
	if params.Currency != "usd" || params.CartID != "cart-1" || params.UserID != "user-1" {
		t.Errorf("params = %+v", params)
	}
	if params.IdempotencyKey == "" {
		t.Error("IdempotencyKey is empty")
	}
}

// 同一カートへの再試行が同じ冪等性キーを使い、内容変更でキーが変わることを検証
func TestService_CreateSession_IdempotencyKey(t *testing.T) {
	cart := filledCart("user-1")
	carts := &mockCartRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Cart, error) {
			return cart, nil
		},
	}
	gateway := &mockGateway{}
	svc := newCheckoutService(carts, &mockOrderRepo{}, gateway)

	for i := 0; i < 2; i++ {
		if _, err := svc.CreateSession(context.Background(), "user-1", "cart-1"); err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}
	}
	if gateway.params[0].IdempotencyKey != gateway.params[1].IdempotencyKey {
		t.Error("retry used a different idempotency key")
	}

	cart.Items[0].Quantity = 3
	if _, err := svc.CreateSession(context.Background(), "user-1", "cart-1"); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if gateway.params[2].IdempotencyKey == gateway.params[0].IdempotencyKey {
		t.Error("changed cart reused the old idempotency key")
	}
}

func TestService_CreateSession_Errors(t *testing.T) {
	tests := []struct {
		name     string
		cart     *model.Cart
		caller   string
		wantCode string
	}{
		{"カートなし", nil, "user-1", model.ErrCodeCartNotFound},
		{"他人のカート", filledCart("owner-1"), "intruder", model.ErrCodeCartForbidden},
		{"空のカート", &model.Cart{ID: "cart-1", UserID: "user-1"}, "user-1", model.ErrCodeCartEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			carts := &mockCartRepo{
				findByIDFunc: func(ctx context.Context, id string) (*model.Cart, error) {
					return tt.cart, nil
				},
			}
			gateway := &mockGateway{}
			svc := newCheckoutService(carts, &mockOrderRepo{}, gateway)

			_, err := svc.CreateSession(context.Background(), tt.caller, "cart-1")
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != tt.wantCode {
				t.Errorf("CreateSession() error = %v, want code %s", err, tt.wantCode)
			}
			if len(gateway.params) != 0 {
				t.Error("gateway was called despite validation error")
			}
		})
	}
}

// ゲートウェイ障害がGATEWAY_UNAVAILABLEに変換されることを検証
func TestService_CreateSession_GatewayFailure(t *testing.T) {
	carts := &mockCartRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Cart, error) {
			return filledCart("user-1"), nil
		},
	}
	gateway := &mockGateway{
		createFunc: func(ctx context.Context, params payment.SessionParams) (*payment.Session, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := newCheckoutService(carts, &mockOrderRepo{}, gateway)

	_, err := svc.CreateSession(context.Background(), "user-1", "cart-1")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeGatewayUnavailable {
		t.Errorf("CreateSession() error = %v, want GATEWAY_UNAVAILABLE", err)
	}
}

// 決済完了イベントが注文・決済情報の記録とカートのクリアに反映されることを検証
func TestService_ReconcilePayment(t *testing.T) {
	var gotOrder *model.Order
	var gotDetails *model.PaymentDetails
	orders := &mockOrderRepo{
		recordPaymentFunc: func(ctx context.Context, order *model.Order, details *model.PaymentDetails) error {
			gotOrder = order
			gotDetails = details
			return nil
		},
	}
	carts := &mockCartRepo{}
	svc := newCheckoutService(carts, orders, &mockGateway{})

	session := &payment.CompletedSession{
		ID:              "cs_1",
		PaymentIntentID: "pi_1",
		AmountTotal:     10200,
		Currency:        "usd",
		PaymentStatus:   "paid",
	}
	session.Metadata.CartID = "cart-1"
	session.Metadata.UserID = "user-1"

	if err := svc.ReconcilePayment(context.Background(), session); err != nil {
		t.Fatalf("ReconcilePayment() error = %v", err)
	}

	if gotOrder.UserID != "user-1" || gotOrder.CartID != "cart-1" {
		t.Errorf("order = %+v", gotOrder)
	}
	if gotOrder.Status != model.OrderStatusPaid || gotOrder.TotalCents != 10200 {
		t.Errorf("order = %+v, want PAID 10200", gotOrder)
	}
	if gotDetails.GatewaySessionID != "cs_1" || gotDetails.PaymentIntentID != "pi_1" {
		t.Errorf("details = %+v", gotDetails)
	}
	if len(carts.cleared) != 1 || carts.cleared[0] != "cart-1" {
		t.Errorf("cleared = %v, want [cart-1]", carts.cleared)
	}
}

// メタデータにユーザーIDがない旧形式イベントでカートから補完されることを検証
func TestService_ReconcilePayment_UserIDFromCart(t *testing.T) {
	var gotOrder *model.Order
	orders := &mockOrderRepo{
		recordPaymentFunc: func(ctx context.Context, order *model.Order, details *model.PaymentDetails) error {
			gotOrder = order
			return nil
		},
	}
	carts := &mockCartRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Cart, error) {
			return &model.Cart{ID: id, UserID: "cart-owner"}, nil
		},
	}
	svc := newCheckoutService(carts, orders, &mockGateway{})

	session := &payment.CompletedSession{ID: "cs_1", AmountTotal: 100}
	session.Metadata.CartID = "cart-1"

	if err := svc.ReconcilePayment(context.Background(), session); err != nil {
		t.Fatalf("ReconcilePayment() error = %v", err)
	}
	if gotOrder.UserID != "cart-owner" {
		t.Errorf("order.UserID = %q, want cart-owner", gotOrder.UserID)
	}
}

// cart_idメタデータのないイベントが拒否されることを検証
func TestService_ReconcilePayment_MissingCartID(t *testing.T) {
	svc := newCheckoutService(&mockCartRepo{}, &mockOrderRepo{}, &mockGateway{})

	session := &payment.CompletedSession{ID: "cs_1"}
	if err := svc.ReconcilePayment(context.Background(), session); err == nil {
		t.Error("ReconcilePayment() error = nil, want missing cart_id error")
	}
}
