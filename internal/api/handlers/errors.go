package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/groupe-jds/doku-seal/internal/api/middleware"
	"github.com/groupe-jds/doku-seal/internal/services"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrorResponse defines the structure of an error response
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody is the payload of an error response
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// FieldError describes one rejected input field
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    interface{}
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Common API errors
var (
	ErrBadRequest    = &APIError{StatusCode: http.StatusBadRequest, Code: "BAD_REQUEST", Message: "Malformed request"}
	ErrUnauthorized  = &APIError{StatusCode: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "Unauthorized"}
	ErrInternalError = &APIError{StatusCode: http.StatusInternalServerError, Code: "INTERNAL_ERROR", Message: "Internal server error"}
)

// NewValidationError creates a new validation error with a custom message
func NewValidationError(message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: http.StatusBadRequest,
		Code:       "VALIDATION_ERROR",
		Message:    message,
		Details:    details,
	}
}

// toAPIError maps service and binding errors onto HTTP errors.
// Anything unrecognised is an internal error and its message is not exposed.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		switch svcErr.Kind {
		case services.ErrNotFound:
			return &APIError{StatusCode: http.StatusNotFound, Code: "NOT_FOUND", Message: svcErr.Message}
		case services.ErrForbidden:
			return &APIError{StatusCode: http.StatusForbidden, Code: "FORBIDDEN", Message: svcErr.Message}
		case services.ErrValidation:
			return NewValidationError(svcErr.Message, nil)
		}
	}

	return ErrInternalError
}

// bindError classifies a failure to bind a request
func bindError(err error) *APIError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, FieldError{
				Field: fieldPath(fe.Namespace()),
				Rule:  fe.Tag(),
				Param: fe.Param(),
			})
		}
		return NewValidationError("Validation failed", details)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return NewValidationError("Validation failed", []FieldError{{Field: typeErr.Field, Rule: "type", Param: typeErr.Type.String()}})
	}

	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return NewValidationError("Invalid query parameter", nil)
	}

	if errors.Is(err, io.EOF) {
		return &APIError{StatusCode: http.StatusBadRequest, Code: "BAD_REQUEST", Message: "Request body is required"}
	}

	return ErrBadRequest
}

// fieldPath drops the struct name from a validator namespace
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func writeError(c *gin.Context, err error) {
	apiErr := toAPIError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		log.Error().Err(err).Str("request_id", middleware.RequestIDFrom(c)).Msg("Unhandled error")
	}
	_ = c.Error(err)

	c.AbortWithStatusJSON(apiErr.StatusCode, ErrorResponse{
		Error: ErrorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		},
	})
}
