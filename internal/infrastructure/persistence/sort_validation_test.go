package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"asc", "ASC"},
		{" ASC ", "ASC"},
		{"desc", "DESC"},
		{"", "DESC"},
		{"; DROP TABLE orders", "DESC"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidateSortOrder(tt.in), tt.in)
	}
}

func TestValidateSortField(t *testing.T) {
	assert.Equal(t, "status", ValidateSortField("status", OrderSortFields, "created_at"))
	assert.Equal(t, "created_at", ValidateSortField("", OrderSortFields, "created_at"))
	assert.Equal(t, "created_at", ValidateSortField("id; DELETE", OrderSortFields, "created_at"))
	assert.Equal(t, "sku", ValidateSortField(" sku ", ProductSortFields, "created_at"))
}
