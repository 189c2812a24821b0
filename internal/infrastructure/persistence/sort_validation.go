package persistence

import (
	"strings"
)

// ValidateSortOrder normalises the direction to ASC or DESC, defaulting to DESC
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField if it is whitelisted, else defaultField
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// OrderSortFields contains allowed sort fields for orders
var OrderSortFields = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"erp_order_id": true,
	"customer":     true,
	"status":       true,
	"completed_at": true,
}

// ProductSortFields contains allowed sort fields for products
var ProductSortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"sku":        true,
	"name":       true,
	"erp_code":   true,
}
