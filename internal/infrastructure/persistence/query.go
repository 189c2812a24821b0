package persistence

import (
	"errors"
	"fmt"

	"github.com/erp/fulfillment/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate adds SELECT ... FOR UPDATE. SQLite ignores the clause.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
}

// translate maps gorm errors onto the shared domain errors
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.NewDomainError(shared.ErrAlreadyExists.Code, err.Error())
	}
	return err
}

// paginate applies a whitelisted sort and page window to query
func paginate(query *gorm.DB, filter shared.Filter, sortFields map[string]bool) *gorm.DB {
	field := ValidateSortField(filter.OrderBy, sortFields, "created_at")
	dir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", field, dir))
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	return query
}
