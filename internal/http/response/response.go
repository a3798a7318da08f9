// Package response writes the JSON envelopes shared by all handlers.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/domain"
	"github.com/minhhungle-offical/chua-dieu-phap-server/pkg/logger"
)

// ErrorResponse is the structured JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// ListResponse wraps paginated collections.
type ListResponse struct {
	Data any             `json:"data"`
	Meta domain.ListMeta `json:"meta"`
}

const (
	CodeInvalidInput    = "INVALID_INPUT"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeRateLimit       = "RATE_LIMIT_EXCEEDED"
	CodeInternalError   = "INTERNAL_ERROR"
	CodeInvalidToken    = "INVALID_TOKEN"
	CodeEventFull       = "EVENT_FULL"
	CodeConsentRequired = "CONSENT_REQUIRED"
	CodeOTPInvalid      = "OTP_INVALID"
	CodeOTPExpired      = "OTP_EXPIRED"
	CodeEmailUnverified = "EMAIL_UNVERIFIED"
)

func WriteJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message, CodeForbidden)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

func Conflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, message, CodeConflict)
}

func RateLimit(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message, CodeRateLimit)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, CodeInternalError)
}

// FromError maps service sentinels onto status codes. Unknown errors
// are logged and reported as a generic 500 so internals never leak.
func FromError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrMissingFields),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrRobeSizeMissing),
		errors.Is(err, domain.ErrNoEmail):
		BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrConsentRequired):
		WriteError(w, http.StatusBadRequest, err.Error(), CodeConsentRequired)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrEventNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, domain.ErrEventFull):
		WriteError(w, http.StatusBadRequest, err.Error(), CodeEventFull)
	case errors.Is(err, domain.ErrDuplicate), errors.Is(err, domain.ErrAlreadyVerified):
		Conflict(w, err.Error())
	case errors.Is(err, domain.ErrNoValidCode), errors.Is(err, domain.ErrCodeMismatch):
		WriteError(w, http.StatusBadRequest, err.Error(), CodeOTPInvalid)
	case errors.Is(err, domain.ErrCodeExpired):
		WriteError(w, http.StatusBadRequest, err.Error(), CodeOTPExpired)
	case errors.Is(err, domain.ErrInvalidCredentials):
		Unauthorized(w, err.Error())
	case errors.Is(err, domain.ErrEmailNotVerified):
		WriteError(w, http.StatusUnauthorized, err.Error(), CodeEmailUnverified)
	case errors.Is(err, domain.ErrInvalidToken):
		WriteError(w, http.StatusUnauthorized, err.Error(), CodeInvalidToken)
	default:
		logger.Error("unhandled service error", "error", err)
		InternalError(w, "internal server error")
	}
}
