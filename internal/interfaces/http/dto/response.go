package dto

// Response represents a standard API response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
	Details   []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail names one rejected request field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Meta represents pagination metadata
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// NewSuccessResponseWithMeta creates a success response with pagination meta
func NewSuccessResponseWithMeta(data any, total int64, page, pageSize int) Response {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(total) / pageSize
		if int(total)%pageSize > 0 {
			totalPages++
		}
	}
	return Response{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: totalPages,
		},
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) Response {
	return NewErrorResponseWithRequestID(code, message, "")
}

// NewErrorResponseWithRequestID creates an error response carrying the request ID
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	}
}

// NewValidationErrorResponse creates a 400 body listing the rejected fields
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	resp := NewErrorResponseWithRequestID(ErrCodeValidation, message, requestID)
	resp.Error.Details = details
	return resp
}
