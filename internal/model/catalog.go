package model

import "time"

// Category はストアフロントのトップレベルカテゴリを表す。
// nameとurlはそれぞれ一意（DB制約が正、アプリ側の事前チェックはUXヒント）。
type Category struct {
	ID        string
	Name      string
	URL       string
	ImageURL  string
	Featured  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SubCategory はカテゴリに属するサブカテゴリを表す。
type SubCategory struct {
	ID         string
	Name       string
	URL        string
	ImageURL   string
	Featured   bool
	CategoryID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StoreStatus はストアの公開状態を表す。
type StoreStatus string

const (
	// StoreStatusPending は審査待ちのストア。
	StoreStatusPending StoreStatus = "PENDING"
	// StoreStatusActive は公開中のストア。
	StoreStatusActive StoreStatus = "ACTIVE"
	// StoreStatusDisabled は停止中のストア。
	StoreStatusDisabled StoreStatus = "DISABLED"
)

// Store は出店者が運営するストアを表す。
type Store struct {
	ID          string
	UserID      string
	Name        string
	URL         string
	Description string
	LogoURL     string
	Status      StoreStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Product はストアに属する商品を表す。slugは全商品で一意。
type Product struct {
	ID            string
	StoreID       string
	CategoryID    string
	SubCategoryID string
	Name          string
	Slug          string
	Description   string
	Brand         string
	Variants      []ProductVariant
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProductVariant は商品のバリアント（色・素材等）を表す。
// 価格は最小通貨単位（セント）で保持する。
type ProductVariant struct {
	ID         string
	ProductID  string
	Name       string
	SKU        string
	PriceCents int64
	Quantity   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Size はバリアントのサイズ展開を表す。
type Size struct {
	ID         string
	VariantID  string
	Name       string
	PriceCents int64
	Quantity   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Country は配送先の国マスタを表す。codeはISO 3166-1 alpha-2。
type Country struct {
	ID        string
	Name      string
	Code      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Coupon はストア単位の割引クーポンを表す。discountはパーセント値。
type Coupon struct {
	ID        string
	StoreID   string
	Code      string
	Discount  int
	StartsAt  time.Time
	EndsAt    time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CategoryWithSubs はストアフロントのホーム表示用にカテゴリと
// サブカテゴリを結合した構造体。
type CategoryWithSubs struct {
	Category
	SubCategories []SubCategory
}
