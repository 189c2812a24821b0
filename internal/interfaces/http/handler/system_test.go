package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewSystemHandler("", nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/system/info", nil)
	h.GetSystemInfo(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool               `json:"success"`
		Data    SystemInfoResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "dev", resp.Data.Version)
	assert.NotEmpty(t, resp.Data.GoVersion)
}

func TestSystemHandler_Ready(t *testing.T) {
	gin.SetMode(gin.TestMode)

	run := func(h *SystemHandler) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request, _ = http.NewRequest(http.MethodGet, "/system/ready", nil)
		h.Ready(c)
		return w
	}

	t.Run("all checks pass", func(t *testing.T) {
		h := NewSystemHandler("1.0.0", map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
		})
		w := run(h)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("failing check answers 503", func(t *testing.T) {
		h := NewSystemHandler("1.0.0", map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		})
		w := run(h)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		data, ok := resp.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "connection refused", data["redis"])
		assert.Equal(t, "ok", data["database"])
	})
}
