package partner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWarehouse(t *testing.T) {
	w, err := NewWarehouse("  Central ")
	require.NoError(t, err)
	assert.Equal(t, "Central", w.Name)
	assert.True(t, w.Active)

	_, err = NewWarehouse("")
	assert.Error(t, err)
}

func TestNewSupplier(t *testing.T) {
	s, err := NewSupplier("acme", "Acme Pharma")
	require.NoError(t, err)
	assert.Equal(t, "ACME", s.Code)

	_, err = NewSupplier("", "x")
	assert.Error(t, err)
	_, err = NewSupplier("X", " ")
	assert.Error(t, err)
}

func TestSupplierSequence(t *testing.T) {
	seq := &SupplierSequence{}
	assert.Equal(t, int64(1), seq.Next())
	assert.Equal(t, int64(2), seq.Next())
	assert.Equal(t, "ACME-000002", FormatPurchaseOrderNumber("ACME", seq.LastValue))
	assert.Equal(t, "ACME-1234567", FormatPurchaseOrderNumber("ACME", 1234567))
}
