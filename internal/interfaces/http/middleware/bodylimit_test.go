package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodyLimit(t *testing.T) {
	newRouter := func(limit int64) *gin.Engine {
		router := gin.New()
		router.Use(BodyLimit(limit))
		router.POST("/test", func(c *gin.Context) {
			if _, err := io.ReadAll(c.Request.Body); err != nil {
				c.Status(http.StatusRequestEntityTooLarge)
				return
			}
			c.String(http.StatusOK, "ok")
		})
		return router
	}

	t.Run("allows request within limit", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/test", bytes.NewReader([]byte("small body")))
		w := httptest.NewRecorder()
		newRouter(1024).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects declared oversize body with envelope", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/test", bytes.NewReader([]byte(strings.Repeat("x", 200))))
		w := httptest.NewRecorder()
		newRouter(100).ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeRequestTooLarge, resp.Error.Code)
	})

	t.Run("caps streaming body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/test", io.NopCloser(strings.NewReader(strings.Repeat("x", 200))))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		newRouter(100).ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("non-positive limit disables the check", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/test", bytes.NewReader([]byte(strings.Repeat("x", 200))))
		w := httptest.NewRecorder()
		newRouter(0).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
