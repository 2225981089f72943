package catalog

import (
	"github.com/hitoshi/bazaar/internal/model"
	"github.com/hitoshi/bazaar/internal/repository"
)

// mapConflict はDBの一意制約違反をAPIErrorに変換する。
// 事前チェックはUXヒントに過ぎず、並行書き込みでは制約違反が正となるため、
// INSERT/UPDATE後のエラーも同じ衝突エラーとして返す。
func mapConflict(err error) error {
	if field, ok := repository.UniqueViolationField(err); ok {
		return model.NewUniqueConflictError(field)
	}
	return err
}
