package middleware

import (
	"net/http"

	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BodyLimit returns a middleware that limits request body size
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRequestTooLarge,
				"Request body exceeds maximum allowed size",
				GetRequestID(c),
			))
			return
		}

		// Streaming bodies without Content-Length are capped while read
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
