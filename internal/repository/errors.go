package repository

import (
	"errors"

	"github.com/lib/pq"
)

// uniqueViolationCode はPostgreSQLのunique_violationエラーコード。
const uniqueViolationCode = "23505"

// 制約名から衝突フィールド名への対応表。
// 一意性の正はDB制約であり、アプリ側の事前チェックをすり抜けた
// 競合はここで検出してフィールド名付きのコンフリクトに変換する。
var constraintFields = map[string]string{
	"categories_name_key":           "name",
	"categories_url_key":            "url",
	"subcategories_name_key":        "name",
	"subcategories_url_key":         "url",
	"stores_name_key":               "name",
	"stores_url_key":                "url",
	"products_slug_key":             "slug",
	"product_variants_sku_key":      "sku",
	"countries_name_key":            "name",
	"countries_code_key":            "code",
	"coupons_code_key":              "code",
	"seller_requests_user_id_key":   "user_id",
	"carts_user_id_key":             "user_id",
	"cart_items_cart_id_variant_id_key": "variant_id",
}

// UniqueViolationField はエラーがPostgreSQLの一意制約違反の場合に
// 衝突したフィールド名を返す。違反でない場合は空文字列とfalseを返す。
func UniqueViolationField(err error) (string, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return "", false
	}
	if string(pqErr.Code) != uniqueViolationCode {
		return "", false
	}
	if field, ok := constraintFields[pqErr.Constraint]; ok {
		return field, true
	}
	// 対応表にない制約は制約名をそのまま返す
	return pqErr.Constraint, true
}
