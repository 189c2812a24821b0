package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
)

// Header names shared by handlers and middleware
const (
	RequestIDHeader = "X-Request-ID"
	OperatorHeader  = "X-Operator"

	// RequestIDKey is the gin context key holding the request ID
	RequestIDKey = "request_id"
	// OperatorKey is the gin context key holding the acting operator
	OperatorKey = "operator"

	maxOperatorLength = 100
)

// CORSConfig holds CORS middleware configuration
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig returns default CORS configuration.
// AllowOrigins is empty, so cross-origin requests get no CORS headers
// until origins are configured.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:     []string{},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", RequestIDHeader, OperatorHeader, "Accept", "Origin", "Cache-Control"},
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// CORS returns a middleware that handles CORS with default configuration
func CORS() gin.HandlerFunc {
	return CORSWithConfig(DefaultCORSConfig())
}

// CORSWithConfig returns a CORS middleware with custom configuration
func CORSWithConfig(cfg CORSConfig) gin.HandlerFunc {
	allowWildcard := false
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			allowWildcard = true
			break
		}
	}

	allowed := func(origin string) string {
		if allowWildcard {
			return "*"
		}
		for _, o := range cfg.AllowOrigins {
			if o == origin {
				return origin
			}
		}
		return ""
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		allowedOrigin := ""
		if origin != "" && len(cfg.AllowOrigins) > 0 {
			allowedOrigin = allowed(origin)
		}

		if allowedOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			if cfg.AllowCredentials && allowedOrigin != "*" {
				c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			setCORSHeaders(c, cfg)
		}

		// Preflight always ends here, with or without CORS headers
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func setCORSHeaders(c *gin.Context, cfg CORSConfig) {
	c.Writer.Header().Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowHeaders, ", "))
	c.Writer.Header().Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowMethods, ", "))

	if len(cfg.ExposeHeaders) > 0 {
		c.Writer.Header().Set("Access-Control-Expose-Headers", strings.Join(cfg.ExposeHeaders, ", "))
	}
	if cfg.MaxAge > 0 {
		c.Writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(int(cfg.MaxAge.Seconds())))
	}
}

// RequestID adds a unique request ID to each request. The ID is kept in
// the gin context, echoed in the response and stored in the request
// context so service logs carry it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if len(requestID) > MaxRequestIDLength {
			requestID = requestID[:MaxRequestIDLength]
		}
		if requestID == "" {
			requestID = generateRequestID()
		}
		c.Set(RequestIDKey, requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// Operator records who is acting on stock, taken from the X-Operator
// header. Handlers fall back to it when a request body names no actor.
func Operator() gin.HandlerFunc {
	return func(c *gin.Context) {
		op := strings.TrimSpace(c.GetHeader(OperatorHeader))
		if len(op) > maxOperatorLength {
			op = op[:maxOperatorLength]
		}
		if op != "" {
			c.Set(OperatorKey, op)
			c.Request = c.Request.WithContext(logger.WithOperator(c.Request.Context(), op))
		}
		c.Next()
	}
}

// GetOperator returns the operator set by the Operator middleware
func GetOperator(c *gin.Context) string {
	return c.GetString(OperatorKey)
}

// GetRequestID returns the request ID set by the RequestID middleware,
// falling back to the raw header
func GetRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	id := c.GetHeader(RequestIDHeader)
	if len(id) > MaxRequestIDLength {
		return id[:MaxRequestIDLength]
	}
	return id
}

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(bytes)
}

// Secure adds the static security headers every JSON response carries
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Next()
	}
}
