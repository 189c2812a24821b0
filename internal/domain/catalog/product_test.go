package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct(t *testing.T) {
	t.Run("normalises sku", func(t *testing.T) {
		p, err := NewProduct("  abc-1 ", "Aspirin 100mg")
		require.NoError(t, err)
		assert.Equal(t, "ABC-1", p.SKU)
		assert.Equal(t, 1, p.Version)
	})

	t.Run("rejects empty sku", func(t *testing.T) {
		_, err := NewProduct(" ", "x")
		assert.Error(t, err)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewProduct("A", "")
		assert.Error(t, err)
	})

	t.Run("set erp code bumps version", func(t *testing.T) {
		p, _ := NewProduct("A", "B")
		p.SetERPCode(" ERP-9 ")
		assert.Equal(t, "ERP-9", p.ERPCode)
		assert.Equal(t, 2, p.Version)
	})
}
