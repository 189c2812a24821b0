package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORS())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	t.Run("no headers with empty whitelist", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Origin", "http://elsewhere.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight answered without headers", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/test", nil)
		req.Header.Set("Origin", "http://elsewhere.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestCORSWithConfig(t *testing.T) {
	cfg := CORSConfig{
		AllowOrigins:     []string{"http://warehouse.local"},
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Content-Type", OperatorHeader},
		AllowCredentials: true,
		MaxAge:           time.Hour,
	}
	router := gin.New()
	router.Use(CORSWithConfig(cfg))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	t.Run("allows listed origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Origin", "http://warehouse.local")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "http://warehouse.local", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, "3600", w.Header().Get("Access-Control-Max-Age"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), OperatorHeader)
	})

	t.Run("ignores unlisted origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Origin", "http://other.local")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard never sends credentials", func(t *testing.T) {
		r := gin.New()
		r.Use(CORSWithConfig(CORSConfig{AllowOrigins: []string{"*"}, AllowCredentials: true}))
		r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Origin", "http://any.local")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})
}

func TestRequestID(t *testing.T) {
	var fromCtx string
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		fromCtx = logger.GetRequestID(c.Request.Context())
		c.String(http.StatusOK, GetRequestID(c))
	})

	t.Run("generates an ID", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		id := w.Header().Get(RequestIDHeader)
		assert.Len(t, id, 32)
		assert.Equal(t, id, w.Body.String())
		assert.Equal(t, id, fromCtx)
	})

	t.Run("keeps client ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, "scan-42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "scan-42", w.Header().Get(RequestIDHeader))
	})

	t.Run("truncates oversized ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("x", 500))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Len(t, w.Header().Get(RequestIDHeader), MaxRequestIDLength)
	})
}

func TestOperator(t *testing.T) {
	var fromCtx string
	router := gin.New()
	router.Use(Operator())
	router.GET("/test", func(c *gin.Context) {
		fromCtx = logger.GetOperator(c.Request.Context())
		c.String(http.StatusOK, GetOperator(c))
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(OperatorHeader, "  picker-7 ")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "picker-7", w.Body.String())
	assert.Equal(t, "picker-7", fromCtx)

	fromCtx = ""
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	assert.Empty(t, w.Body.String())
	assert.Empty(t, fromCtx)
}

func TestSecure(t *testing.T) {
	router := gin.New()
	router.Use(Secure())
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
}

func TestStatusGroup(t *testing.T) {
	assert.Equal(t, "2xx", StatusGroup(201))
	assert.Equal(t, "4xx", StatusGroup(422))
	assert.Equal(t, "5xx", StatusGroup(503))
	assert.Equal(t, "unknown", StatusGroup(0))
}
