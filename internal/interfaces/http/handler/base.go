package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts domain errors to their mapped status and hides
// everything else behind a 500
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
		return
	}

	logger.L(c.Request.Context()).Error("request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	_ = c.Error(err)
	h.InternalError(c, "An unexpected error occurred")
}

// bindJSON decodes the body into req, runs fill so defaults such as the
// acting operator can be applied, then validates. On failure the error
// response has been written and false is returned.
func (h *BaseHandler) bindJSON(c *gin.Context, req any, fill ...func()) bool {
	if c.Request.Body != nil {
		if err := json.NewDecoder(c.Request.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
			middleware.HandleValidationError(c, err)
			return false
		}
	}
	for _, f := range fill {
		f()
	}
	if err := binding.Validator.ValidateStruct(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// uuidParam parses a path parameter as a UUID
func (h *BaseHandler) uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// intQuery parses an optional integer query parameter
func (h *BaseHandler) intQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		h.BadRequest(c, "Invalid "+name+" query parameter")
		return 0, false
	}
	return v, true
}

// actor returns explicit when set, otherwise the X-Operator header
func actor(c *gin.Context, explicit string) string {
	if s := strings.TrimSpace(explicit); s != "" {
		return s
	}
	return middleware.GetOperator(c)
}

// uploadReader returns the uploaded CSV: the multipart "file" field when
// present, the raw request body otherwise
func uploadReader(c *gin.Context) (io.ReadCloser, string, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, "", err
		}
		f, err := fh.Open()
		if err != nil {
			return nil, "", err
		}
		return f, fh.Filename, nil
	}
	if c.Request.Body == nil {
		return nil, "", errors.New("empty request body")
	}
	return c.Request.Body, "", nil
}
