package response

import (
	"net/http"

	"skillforge/pkg/errors"
	"skillforge/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response represents a standard API envelope
type Response struct {
	Success bool        `json:"success"`             // Whether the request succeeded
	Message string      `json:"message"`             // Human-readable message
	Data    interface{} `json:"data,omitempty"`      // Response data (omit if nil)
	Details interface{} `json:"details,omitempty"`   // Additional error details (omit if nil)
	TraceID string      `json:"trace_id,omitempty"`  // Request trace ID
}

// Success sends a successful response with data
func Success(c *gin.Context, message string, data interface{}) {
	if message == "" {
		message = "Success"
	}
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
		TraceID: getTraceID(c),
	})
}

// Created sends a 201 response for newly created resources
func Created(c *gin.Context, message string, data interface{}) {
	if message == "" {
		message = "Created"
	}
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Message: message,
		Data:    data,
		TraceID: getTraceID(c),
	})
}

// Error sends an error response
// It automatically extracts the error code, message, and HTTP status from the error
func Error(c *gin.Context, err error) {
	customErr := errors.GetError(err)

	logger.Error(c.Request.Context(), "request error",
		zap.Int("code", int(customErr.Code)),
		zap.String("message", customErr.Error()),
		zap.Any("details", customErr.Details),
	)

	c.JSON(customErr.Code.HTTPStatus(), Response{
		Success: false,
		Message: customErr.Error(),
		Details: nonEmptyDetails(customErr.Details),
		TraceID: getTraceID(c),
	})
}

// ErrorWithCode sends an error response with a specific error code
func ErrorWithCode(c *gin.Context, code errors.ErrorCode, message string) {
	if message == "" {
		message = code.Message()
	}

	logger.Error(c.Request.Context(), "request error",
		zap.Int("code", int(code)),
		zap.String("message", message),
	)

	c.JSON(code.HTTPStatus(), Response{
		Success: false,
		Message: message,
		TraceID: getTraceID(c),
	})
}

// BadRequest sends a 400 bad request error
func BadRequest(c *gin.Context, message string) {
	ErrorWithCode(c, errors.InvalidParams, message)
}

// Unauthorized sends a 401 unauthorized error
func Unauthorized(c *gin.Context, message string) {
	ErrorWithCode(c, errors.Unauthorized, message)
}

// Forbidden sends a 403 forbidden error
func Forbidden(c *gin.Context, message string) {
	ErrorWithCode(c, errors.Forbidden, message)
}

// NotFound sends a 404 not found error
func NotFound(c *gin.Context, message string) {
	ErrorWithCode(c, errors.NotFound, message)
}

// Paginated represents a paginated list payload
type Paginated struct {
	Data        interface{} `json:"data"`        // List of items
	Total       int64       `json:"total"`       // Total count
	Page        int         `json:"page"`        // Current page (1-based)
	Limit       int         `json:"limit"`       // Page size
	TotalPages  int         `json:"totalPages"`  // Total pages
	HasNextPage bool        `json:"hasNextPage"` // Whether a following page exists
	HasPrevPage bool        `json:"hasPrevPage"` // Whether a preceding page exists
}

// NewPaginated builds a Paginated payload from a page of items
func NewPaginated(items interface{}, total int64, page, limit int) Paginated {
	if limit <= 0 {
		limit = 1
	}
	totalPages := int(total) / limit
	if int(total)%limit != 0 {
		totalPages++
	}
	return Paginated{
		Data:        items,
		Total:       total,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

// SuccessWithPagination sends a successful response with a paginated payload
func SuccessWithPagination(c *gin.Context, message string, items interface{}, total int64, page, limit int) {
	Success(c, message, NewPaginated(items, total, page, limit))
}

// AbortWithError aborts the request and sends an error response
func AbortWithError(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

// AbortWithErrorCode aborts the request with an error code
func AbortWithErrorCode(c *gin.Context, code errors.ErrorCode, message string) {
	ErrorWithCode(c, code, message)
	c.Abort()
}

// getTraceID extracts trace ID from context
func getTraceID(c *gin.Context) string {
	if traceID, exists := c.Get("trace_id"); exists {
		if s, ok := traceID.(string); ok {
			return s
		}
	}
	return ""
}

func nonEmptyDetails(details map[string]interface{}) interface{} {
	if len(details) == 0 {
		return nil
	}
	return details
}
