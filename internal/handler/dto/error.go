package dto

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/mtlprog/taskindexer/internal/store"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorResponse creates a new error response.
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}
}

// MapQueryError maps query errors to HTTP status codes and error codes.
func MapQueryError(err error) (status int, code string, message string) {
	message = err.Error()

	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", message

	// Validation errors
	case errors.Is(err, domain.ErrUnknownKind):
		return http.StatusBadRequest, "UNKNOWN_KIND", message
	case errors.Is(err, domain.ErrInvalidAddress):
		return http.StatusBadRequest, "INVALID_ADDRESS", message
	case errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidDirection):
		return http.StatusBadRequest, "VALIDATION_ERROR", message

	default:
		slog.Error("unmapped query error returned to client",
			"error", err,
			"error_type", fmt.Sprintf("%T", err),
		)
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"
	}
}
