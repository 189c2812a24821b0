package csvimport

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCSVParser(t *testing.T) {
	t.Run("UTF-8 BOM is stripped", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("\xEF\xBB\xBFproduct_sku,quantity\nSKU-1,3"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, "product_sku", parser.Headers()[0])
	})

	t.Run("Empty file returns error", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader(""))
		assert.ErrorIs(t, err, ErrEmptyFile)
		assert.Nil(t, parser)
	})

	t.Run("Invalid encoding returns error", func(t *testing.T) {
		_, err := NewCSVParser(strings.NewReader("sku\n\xff\xfe\xfd"))
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("Custom delimiter", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("sku;quantity\nA;1"), WithDelimiter(';'))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, []string{"sku", "quantity"}, parser.Headers())
	})
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Batch Number", "batch_number"},
		{"  batch_number ", "batch_number"},
		{"Expiry-Date", "expiry_date"},
		{"QUANTITY", "quantity"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHeader(tt.in))
		})
	}
}

func TestCSVParser_ReadRows(t *testing.T) {
	input := "Product SKU,Quantity\nSKU-1, 4 \n,\nSKU-2,7\n"
	parser, err := NewCSVParser(strings.NewReader(input))
	require.NoError(t, err)
	require.NoError(t, parser.ParseHeader())

	t.Run("RequireHeaders", func(t *testing.T) {
		assert.NoError(t, parser.RequireHeaders("product_sku", "Quantity"))
		err := parser.RequireHeaders("product_sku", "batch_number")
		var missing *MissingColumnsError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, []string{"batch_number"}, missing.Columns)
	})

	errs := NewErrorCollection(10)
	rows := parser.ReadAllRows(errs)
	require.Len(t, rows, 2)
	assert.False(t, errs.HasErrors())

	assert.Equal(t, 2, rows[0].LineNumber)
	assert.Equal(t, "SKU-1", rows[0].Get("product_sku"))
	assert.Equal(t, "4", rows[0].Get("Quantity"))
	assert.Equal(t, 4, rows[1].LineNumber)
	assert.Equal(t, 3, parser.TotalRows())

	_, err = parser.ReadRow()
	assert.Equal(t, io.EOF, err)
}

func TestCSVParser_MissingHeader(t *testing.T) {
	parser, err := NewCSVParser(strings.NewReader(",,\n"))
	require.NoError(t, err)
	assert.ErrorIs(t, parser.ParseHeader(), ErrMissingHeader)
}
