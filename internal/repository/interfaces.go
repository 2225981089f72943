// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/bazaar/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// Upsert はIdPイベントのペイロードからユーザーをUPSERTする。
	// roleはローカルが権威のため、既存行のroleは変更しない
	// （新規行はUSERで作成される）。
	Upsert(ctx context.Context, user *model.User) error

	// UpdateRole は指定ユーザーのロールを更新する。
	// ユーザーが存在しない場合はエラーを返す。
	UpdateRole(ctx context.Context, id string, role model.Role) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 0件削除でもエラーにしない（IdP削除イベントの再送に対して冪等）。
	DeleteByID(ctx context.Context, id string) error

	// ListAll は全ユーザーを取得する。ロール一括同期で使用する。
	ListAll(ctx context.Context) ([]*model.User, error)
}

// SellerRequestRepository は出店申請の永続化インターフェース。
type SellerRequestRepository interface {
	// FindByToken は検証トークンで申請を検索する。見つからない場合はnilを返す。
	FindByToken(ctx context.Context, token string) (*model.SellerRequest, error)

	// FindByUserID はユーザーIDで申請を検索する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.SellerRequest, error)

	// Create は申請を作成する。
	Create(ctx context.Context, req *model.SellerRequest) error

	// DeleteExpired は指定IDの申請がEXPIREDの場合に限り削除する。
	// 再申請時の置き換えで使用する。0件削除でもエラーにしない。
	DeleteExpired(ctx context.Context, id string) error

	// MarkVerified は申請をVERIFIEDに遷移させ、同一トランザクションで
	// ユーザーのロールをSELLERに昇格する。
	// statusが既にVERIFIED/APPROVEDの場合は何も変更せずfalseを返す
	// （条件付きUPDATEにより並行検証でもトークン消費は最大1回）。
	MarkVerified(ctx context.Context, requestID, userID string) (bool, error)
}

// CategoryRepository はカテゴリの永続化インターフェース。
type CategoryRepository interface {
	// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Category, error)

	// List は全カテゴリをname昇順で取得する。
	List(ctx context.Context) ([]*model.Category, error)

	// ListWithSubCategories はストアフロントのホーム表示用に
	// 全カテゴリとサブカテゴリを結合して取得する。
	ListWithSubCategories(ctx context.Context) ([]*model.CategoryWithSubs, error)

	// FindConflict は指定ID以外でnameまたはurlが衝突する行を検索し、
	// 衝突したフィールド名（"name"か"url"）を返す。衝突なしは空文字列。
	FindConflict(ctx context.Context, excludeID, name, url string) (string, error)

	// Upsert はIDをキーにカテゴリをUPSERTする。
	Upsert(ctx context.Context, c *model.Category) error

	// Delete は指定IDのカテゴリを削除する。0件削除の場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// SubCategoryRepository はサブカテゴリの永続化インターフェース。
type SubCategoryRepository interface {
	// FindByID は指定IDのサブカテゴリを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.SubCategory, error)

	// ListByCategory は指定カテゴリのサブカテゴリをname昇順で取得する。
	ListByCategory(ctx context.Context, categoryID string) ([]*model.SubCategory, error)

	// FindConflict は指定ID以外でnameまたはurlが衝突する行を検索する。
	FindConflict(ctx context.Context, excludeID, name, url string) (string, error)

	// Upsert はIDをキーにサブカテゴリをUPSERTする。
	Upsert(ctx context.Context, sc *model.SubCategory) error

	// Delete は指定IDのサブカテゴリを削除する。0件削除の場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// StoreRepository はストアの永続化インターフェース。
type StoreRepository interface {
	// FindByID は指定IDのストアを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Store, error)

	// FindByUserID は指定ユーザーが所有するストアを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Store, error)

	// List は全ストアをname昇順で取得する。
	List(ctx context.Context) ([]*model.Store, error)

	// FindConflict は指定ID以外でnameまたはurlが衝突する行を検索する。
	FindConflict(ctx context.Context, excludeID, name, url string) (string, error)

	// Upsert はIDをキーにストアをUPSERTする。
	Upsert(ctx context.Context, s *model.Store) error

	// Delete は指定IDのストアを削除する。0件削除の場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// ProductRepository は商品の永続化インターフェース。
type ProductRepository interface {
	// FindByID は指定IDの商品をバリアント付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Product, error)

	// FindBySlug はslugで商品をバリアント付きで取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Product, error)

	// SlugExists は指定ID以外でslugが使用済みかどうかを返す。
	// スラグ一意化のバックフィルで使用する。
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)

	// ListByStore は指定ストアの商品一覧をバリアント付きで取得する。
	ListByStore(ctx context.Context, storeID string) ([]*model.Product, error)

	// Upsert は商品とバリアントを同一トランザクションでUPSERTする。
	// イベントに含まれないバリアントは削除される。
	Upsert(ctx context.Context, p *model.Product) error

	// Delete は指定IDの商品を削除する。0件削除の場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// VariantFinder は商品バリアント単体の読み取りインターフェース。
// カート追加時の価格・名称スナップショット取得で使用する。
type VariantFinder interface {
	// FindVariantByID は指定IDのバリアントを取得する。見つからない場合はnilを返す。
	FindVariantByID(ctx context.Context, id string) (*model.ProductVariant, error)
}

// SizeRepository はサイズ展開の永続化インターフェース。
type SizeRepository interface {
	// ListByVariant は指定バリアントのサイズ一覧を取得する。
	ListByVariant(ctx context.Context, variantID string) ([]*model.Size, error)

	// Upsert はIDをキーにサイズをUPSERTする。
	Upsert(ctx context.Context, s *model.Size) error

	// Delete は指定IDのサイズを削除する。0件削除の場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// CountryRepository は国マスタの永続化インターフェース。
type CountryRepository interface {
	// List は全国をname昇順で取得する。
	List(ctx context.Context) ([]*model.Country, error)

	// FindConflict は指定ID以外でnameまたはcodeが衝突する行を検索する。
	FindConflict(ctx context.Context, excludeID, name, code string) (string, error)

	// Upsert はIDをキーに国をUPSERTする。
	Upsert(ctx context.Context, c *model.Country) error

	// Delete は指定IDの国を削除する。0件削除の場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// CouponRepository はクーポンの永続化インターフェース。
type CouponRepository interface {
	// FindByCode はコードでクーポンを検索する。見つからない場合はnilを返す。
	FindByCode(ctx context.Context, code string) (*model.Coupon, error)

	// ListByStore は指定ストアのクーポン一覧を取得する。
	ListByStore(ctx context.Context, storeID string) ([]*model.Coupon, error)

	// Upsert はIDをキーにクーポンをUPSERTする。
	Upsert(ctx context.Context, c *model.Coupon) error

	// Delete は指定IDのクーポンを削除する。0件削除の場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// CartRepository はカートの永続化インターフェース。
type CartRepository interface {
	// FindByID は指定IDのカートを明細付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Cart, error)

	// GetOrCreateByUserID はユーザーのカートを取得し、
	// 存在しない場合は空のカートを作成して返す。
	GetOrCreateByUserID(ctx context.Context, userID string) (*model.Cart, error)

	// UpsertItem はカート明細をUPSERTする。同一バリアントの明細が
	// 既に存在する場合は数量を加算する。
	UpsertItem(ctx context.Context, item *model.CartItem) error

	// UpdateItemQuantity は明細の数量を更新する。明細が存在しない場合はfalseを返す。
	UpdateItemQuantity(ctx context.Context, cartID, itemID string, quantity int) (bool, error)

	// DeleteItem は明細を削除する。明細が存在しない場合はfalseを返す。
	DeleteItem(ctx context.Context, cartID, itemID string) (bool, error)

	// Clear はカートの全明細を削除する。
	Clear(ctx context.Context, cartID string) error
}

// OrderRepository は注文と決済情報の永続化インターフェース。
type OrderRepository interface {
	// FindByID は指定IDの注文を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Order, error)

	// FindByCartID はカートIDで注文を検索する。見つからない場合はnilを返す。
	FindByCartID(ctx context.Context, cartID string) (*model.Order, error)

	// ListByUser は指定ユーザーの注文一覧をcreated_at降順で取得する。
	ListByUser(ctx context.Context, userID string) ([]*model.Order, error)

	// RecordPayment は注文のUPSERT（cart_idキー）と決済情報のUPSERT
	// （order_idキー）を同一トランザクションで行う。
	// 決済Webhookの再送に対して冪等。
	RecordPayment(ctx context.Context, order *model.Order, details *model.PaymentDetails) error
}

// RoleSyncOutboxRepository はロール逆同期の再試行キューの永続化インターフェース。
type RoleSyncOutboxRepository interface {
	// Enqueue は再試行エントリをUPSERTする。同一ユーザーのエントリが
	// 既にある場合はロールを上書きし、次回試行を即時にする。
	Enqueue(ctx context.Context, userID string, role model.Role) error

	// ListDue はnext_attempt_atが現在時刻以前のエントリを取得する。
	// 取得したエントリはリース期間だけ先送りして確保されるため、
	// 他のワーカーは同じエントリを取得しない。処理されないまま
	// リースが切れたエントリは再び取得対象に戻る。
	ListDue(ctx context.Context, limit int) ([]*RoleSyncEntry, error)

	// MarkFailed は試行失敗を記録し、次回試行時刻を設定する。
	MarkFailed(ctx context.Context, id string, nextAttemptAt time.Time, lastError string) error

	// Delete は同期成功したエントリを削除する。
	Delete(ctx context.Context, id string) error
}

// RoleSyncEntry はロール逆同期の再試行エントリ。
type RoleSyncEntry struct {
	ID            string
	UserID        string
	Role          model.Role
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
}
