package csvimport

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRowError(t *testing.T) {
	t.Run("Error with column", func(t *testing.T) {
		err := NewRowError(5, "quantity", ErrCodeImportInvalidType, "expected integer")
		assert.Equal(t, "row 5, column 'quantity': expected integer", err.Error())
	})

	t.Run("Error without column", func(t *testing.T) {
		err := NewRowError(10, "", ErrCodeImportCSVParsing, "malformed row")
		assert.Equal(t, "row 10: malformed row", err.Error())
	})

	t.Run("Error with value", func(t *testing.T) {
		err := NewRowErrorWithValue(3, "expiry_date", ErrCodeImportInvalidFormat, "invalid date", "31-31-2024")
		assert.Equal(t, "31-31-2024", err.Value)
		assert.Equal(t, 3, err.Row)
	})
}

func TestErrorCollection(t *testing.T) {
	t.Run("Add errors within limit", func(t *testing.T) {
		ec := NewErrorCollection(10)
		ec.AddRequiredError(2, "product_sku")
		ec.AddTypeError(3, "quantity", "integer", "ten")
		ec.AddReferenceError(3, "warehouse_name", "Nowhere", "warehouse")

		assert.Equal(t, 3, ec.Count())
		assert.Equal(t, 3, ec.TotalCount())
		assert.Equal(t, 2, ec.FailedRows())
		assert.True(t, ec.HasRowError(3))
		assert.False(t, ec.HasRowError(4))
		assert.False(t, ec.IsTruncated())

		errs := ec.Errors()
		assert.Equal(t, ErrCodeImportRequiredField, errs[0].Code)
		assert.Equal(t, ErrCodeImportInvalidType, errs[1].Code)
		assert.Equal(t, ErrCodeImportReferenceNotFound, errs[2].Code)
	})

	t.Run("Add errors exceeding limit", func(t *testing.T) {
		ec := NewErrorCollection(3)
		for i := 1; i <= 5; i++ {
			ec.Add(NewRowError(i, "col", ErrCodeImportValidation, "error"))
		}
		assert.Equal(t, 3, ec.Count())
		assert.Equal(t, 5, ec.TotalCount())
		assert.Equal(t, 5, ec.FailedRows())
		assert.True(t, ec.IsTruncated())
		assert.Contains(t, ec.String(), "showing first 3")
	})

	t.Run("Default limit", func(t *testing.T) {
		ec := NewErrorCollection(0)
		for i := 0; i < 150; i++ {
			ec.Add(NewRowError(i, "", ErrCodeImportValidation, "error"))
		}
		assert.Equal(t, 100, ec.Count())
	})

	t.Run("String without errors", func(t *testing.T) {
		assert.Equal(t, "no errors", NewErrorCollection(5).String())
	})
}

func TestMissingColumnsError(t *testing.T) {
	err := &MissingColumnsError{Columns: []string{"quantity", "batch_number"}}
	assert.True(t, errors.Is(err, ErrMissingHeader))
	assert.True(t, strings.HasSuffix(err.Error(), "quantity, batch_number"))
}
