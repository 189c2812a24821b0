package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type packBody struct {
	PackedBy string `json:"packed_by" binding:"required"`
	Quantity int    `json:"quantity" binding:"gt=0"`
}

func TestHandleValidationError(t *testing.T) {
	SetupValidator()

	router := gin.New()
	router.POST("/pack", func(c *gin.Context) {
		var body packBody
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	t.Run("reports json field names", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/pack", strings.NewReader(`{"quantity":0}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)

		fields := map[string]string{}
		for _, d := range resp.Error.Details {
			fields[d.Field] = d.Message
		}
		assert.Equal(t, "This field is required", fields["packed_by"])
		assert.Equal(t, "Must be greater than 0", fields["quantity"])
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/pack", strings.NewReader(`{"quantity":`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
	})
}
