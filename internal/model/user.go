// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限ロールを表す。
type Role string

const (
	// RoleUser は一般購入者ロール。
	RoleUser Role = "USER"
	// RoleSeller は出店者ロール。ストアと商品の管理が可能。
	RoleSeller Role = "SELLER"
	// RoleAdmin は管理者ロール。全管理APIにアクセス可能。
	RoleAdmin Role = "ADMIN"
)

// IsValid はロールが定義済みの値かどうかを返す。
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// User はマーケットプレイスの利用ユーザーを表す。
// IDは外部IdPのユーザーIDと一致する。作成・更新・削除はIdP Webhookの同期で
// 行われ、roleのみローカルが権威を持つ（IdP側メタデータへ逆同期する）。
type User struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	ImageURL  string
	Phone     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SellerRequestStatus は出店申請の状態を表す。
type SellerRequestStatus string

const (
	// SellerRequestPending はメール検証待ちの状態。
	SellerRequestPending SellerRequestStatus = "PENDING"
	// SellerRequestVerified はメール検証済みの状態。
	SellerRequestVerified SellerRequestStatus = "VERIFIED"
	// SellerRequestApproved は管理者承認済みの状態。
	SellerRequestApproved SellerRequestStatus = "APPROVED"
	// SellerRequestExpired はトークン期限切れの状態。
	SellerRequestExpired SellerRequestStatus = "EXPIRED"
)

// Consumable は検証トークンがまだ消費可能な状態かどうかを返す。
// VERIFIED/APPROVEDに達した申請のトークンは再消費できない。
func (s SellerRequestStatus) Consumable() bool {
	return s != SellerRequestVerified && s != SellerRequestApproved
}

// SellerRequest は出店申請を表す。ユーザーごとに1件まで。
// トークンの消費（PENDING系 → VERIFIED）は条件付きUPDATEで排他され、
// 同一トークンの並行検証でもロール昇格は最大1回しか起きない。
type SellerRequest struct {
	ID                string
	UserID            string
	VerificationToken string
	TokenExpiresAt    *time.Time
	Status            SellerRequestStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
