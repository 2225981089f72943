// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, checkout, seller, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInvalidRole        = "INVALID_ROLE"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeEntityNotFound     = "ENTITY_NOT_FOUND"
	ErrCodeUniqueConflict     = "UNIQUE_CONFLICT"
	ErrCodeSellerReqExists    = "SELLER_REQUEST_EXISTS"
	ErrCodeCartNotFound       = "CART_NOT_FOUND"
	ErrCodeCartEmpty          = "CART_EMPTY"
	ErrCodeCartForbidden      = "CART_FORBIDDEN"
	ErrCodeVariantNotFound    = "VARIANT_NOT_FOUND"
	ErrCodeGatewayUnavailable = "GATEWAY_UNAVAILABLE"
	ErrCodeUnsafeURL          = "UNSAFE_URL"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "必要なロールを持つアカウントでログインしてください。",
	}
}

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidRoleError は未定義ロール指定エラーを生成する。
func NewInvalidRoleError(role string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRole,
		Message:  fmt.Sprintf("無効なロールです: %s", role),
		Category: "validation",
		Action:   "ロールには USER、SELLER、ADMIN のいずれかを指定してください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewEntityNotFoundError はエンティティ未検出エラーを生成する。
// labelには「カテゴリ」「商品」等の表示名を渡す。
func NewEntityNotFoundError(label, id string) *APIError {
	return &APIError{
		Code:     ErrCodeEntityNotFound,
		Message:  fmt.Sprintf("指定された%sが見つかりません: %s", label, id),
		Category: "catalog",
		Action:   "IDを確認してください。",
	}
}

// NewUniqueConflictError は一意制約違反エラーを生成する。
// fieldには衝突したフィールド名（name、url、slug等）を渡す。
func NewUniqueConflictError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeUniqueConflict,
		Message:  fmt.Sprintf("%s が他のレコードと重複しています。", field),
		Category: "validation",
		Action:   "別の値を指定してください。",
	}
}

// NewSellerRequestExistsError は出店申請の重複エラーを生成する。
func NewSellerRequestExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeSellerReqExists,
		Message:  "出店申請は既に存在します。",
		Category: "seller",
		Action:   "届いている検証メールを確認するか、審査結果をお待ちください。",
	}
}

// NewCartNotFoundError はカート未検出エラーを生成する。
func NewCartNotFoundError(cartID string) *APIError {
	return &APIError{
		Code:     ErrCodeCartNotFound,
		Message:  fmt.Sprintf("指定されたカートが見つかりません: %s", cartID),
		Category: "checkout",
		Action:   "カートIDを確認してください。",
	}
}

// NewCartEmptyError は空カートでのチェックアウトエラーを生成する。
func NewCartEmptyError() *APIError {
	return &APIError{
		Code:     ErrCodeCartEmpty,
		Message:  "カートが空です。",
		Category: "checkout",
		Action:   "商品をカートに追加してからチェックアウトしてください。",
	}
}

// NewCartForbiddenError は他ユーザーのカート操作エラーを生成する。
func NewCartForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeCartForbidden,
		Message:  "このカートを操作する権限がありません。",
		Category: "checkout",
		Action:   "自分のカートを指定してください。",
	}
}

// NewVariantNotFoundError は商品バリアント未検出エラーを生成する。
func NewVariantNotFoundError(variantID string) *APIError {
	return &APIError{
		Code:     ErrCodeVariantNotFound,
		Message:  fmt.Sprintf("指定された商品バリアントが見つかりません: %s", variantID),
		Category: "catalog",
		Action:   "商品バリアントIDを確認してください。",
	}
}

// NewGatewayUnavailableError は決済ゲートウェイ呼び出し失敗エラーを生成する。
func NewGatewayUnavailableError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeGatewayUnavailable,
		Message:  fmt.Sprintf("決済セッションの作成に失敗しました: %s", reason),
		Category: "checkout",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUnsafeURLError はSSRFブロックエラーを生成する。
func NewUnsafeURLError() *APIError {
	return &APIError{
		Code:     ErrCodeUnsafeURL,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}
