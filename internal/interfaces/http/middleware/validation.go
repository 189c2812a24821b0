package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator makes validation errors report JSON field names
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
	}
}

// FormatValidationErrors formats binding errors into the standard envelope.
// Anything that is not a validator error is reported as malformed JSON.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return dto.NewErrorResponseWithRequestID(dto.ErrCodeInvalidJSON, "Malformed request body: "+err.Error(), requestID)
	}

	details := make([]dto.ValidationDetail, 0, len(validationErrors))
	for _, e := range validationErrors {
		details = append(details, dto.ValidationDetail{
			Field:   e.Field(),
			Message: validationMessage(e),
		})
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError aborts with a 400 describing err
func HandleValidationError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		switch e.Kind() {
		case reflect.String:
			return "Must be at least " + e.Param() + " characters"
		case reflect.Slice:
			return "Must contain at least " + e.Param() + " entries"
		}
		return "Must be at least " + e.Param()
	case "max":
		return "Must be at most " + e.Param()
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	default:
		return "Invalid value"
	}
}
