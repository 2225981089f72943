package checkout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hitoshi/bazaar/internal/model"
	"github.com/hitoshi/bazaar/internal/payment"
	"github.com/hitoshi/bazaar/internal/repository"
)

// SessionCreator は決済ゲートウェイのチェックアウトセッション作成インターフェース。
type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, params payment.SessionParams) (*payment.Session, error)
}

// Service はチェックアウトセッションの作成と決済結果の照合を提供する。
type Service struct {
	carts   repository.CartRepository
	orders  repository.OrderRepository
	gateway SessionCreator
	logger  *slog.Logger

	currency   string
	successURL string
	cancelURL  string
}

// NewService はServiceを生成する。
func NewService(
	carts repository.CartRepository,
	orders repository.OrderRepository,
	gateway SessionCreator,
	logger *slog.Logger,
	currency, successURL, cancelURL string,
) *Service {
	return &Service{
		carts:      carts,
		orders:     orders,
		gateway:    gateway,
		logger:     logger,
		currency:   currency,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

// CreateSession はカートの内容からホスト型チェックアウトセッションを作成する。
// 冪等性キーはカートの内容から導出するため、同一内容のカートに対する
// クライアントの再試行はゲートウェイ側で同一セッションに畳まれる。
func (s *Service) CreateSession(ctx context.Context, userID, cartID string) (*payment.Session, error) {
	cart, err := s.carts.FindByID(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}
	if cart == nil {
		return nil, model.NewCartNotFoundError(cartID)
	}
	if cart.UserID != userID {
		return nil, model.NewCartForbiddenError()
	}
	if len(cart.Items) == 0 {
		return nil, model.NewCartEmptyError()
	}

	items := make([]payment.LineItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, payment.LineItem{
			Name:            item.Name,
			UnitAmountCents: item.PriceCents,
			Quantity:        item.Quantity,
		})
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payment.SessionParams{
		LineItems:      items,
		Currency:       s.currency,
		SuccessURL:     s.successURL,
		CancelURL:      s.cancelURL,
		CartID:         cart.ID,
		UserID:         userID,
		IdempotencyKey: idempotencyKey(cart),
	})
	if err != nil {
		s.logger.Error("チェックアウトセッションの作成に失敗しました",
			slog.String("cart_id", cartID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewGatewayUnavailableError("チェックアウトセッションを作成できませんでした。")
	}

	s.logger.Info("チェックアウトセッションを作成しました",
		slog.String("cart_id", cartID),
		slog.String("session_id", session.ID),
		slog.Int64("total_cents", cart.TotalCents()),
	)
	return session, nil
}

// ReconcilePayment は決済完了イベントを注文と決済情報に反映し、
// カートを空にする。注文のUPSERTはcart_idキーで行われるため、
// 同一イベントの再送に対して冪等。
func (s *Service) ReconcilePayment(ctx context.Context, session *payment.CompletedSession) error {
	cartID := session.Metadata.CartID
	if cartID == "" {
		return fmt.Errorf("completed session %s has no cart_id metadata", session.ID)
	}

	userID := session.Metadata.UserID
	if userID == "" {
		// 旧形式のセッションはメタデータにユーザーIDを持たない
		cart, err := s.carts.FindByID(ctx, cartID)
		if err != nil {
			return fmt.Errorf("failed to find cart: %w", err)
		}
		if cart == nil {
			return fmt.Errorf("cart %s for completed session %s not found", cartID, session.ID)
		}
		userID = cart.UserID
	}

	order := &model.Order{
		ID:         uuid.New().String(),
		UserID:     userID,
		CartID:     cartID,
		TotalCents: session.AmountTotal,
		Status:     model.OrderStatusPaid,
	}
	details := &model.PaymentDetails{
		ID:               uuid.New().String(),
		GatewaySessionID: session.ID,
		PaymentIntentID:  session.PaymentIntentID,
		AmountCents:      session.AmountTotal,
		Currency:         session.Currency,
		Status:           session.PaymentStatus,
	}
	if err := s.orders.RecordPayment(ctx, order, details); err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}

	if err := s.carts.Clear(ctx, cartID); err != nil {
		return fmt.Errorf("failed to clear cart after payment: %w", err)
	}

	s.logger.Info("決済を注文に反映しました",
		slog.String("order_id", order.ID),
		slog.String("cart_id", cartID),
		slog.String("session_id", session.ID),
		slog.Int64("amount_cents", session.AmountTotal),
	)
	return nil
}

// idempotencyKey はカートの内容からゲートウェイの冪等性キーを導出する。
// カートの内容が変わればキーも変わり、新しいセッションが作成される。
func idempotencyKey(cart *model.Cart) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n", cart.ID)
	for _, item := range cart.Items {
		fmt.Fprintf(h, "%s:%s:%d:%d\n", item.ID, item.VariantID, item.Quantity, item.PriceCents)
	}
	return "checkout-" + hex.EncodeToString(h.Sum(nil))[:32]
}
