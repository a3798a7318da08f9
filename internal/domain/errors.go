package domain

import "errors"

// Sentinel errors returned by services and repositories. Handlers map
// them onto HTTP status codes; anything else is a 500.
var (
	ErrNotFound        = errors.New("not found")
	ErrEventNotFound   = errors.New("event not found")
	ErrEventFull       = errors.New("event has reached maximum participants")
	ErrConsentRequired = errors.New("you must agree to participate in the event")
	ErrRobeSizeMissing = errors.New("robe size is required for borrow/buy option")
	ErrMissingFields   = errors.New("missing required fields")
	ErrNoValidCode     = errors.New("no valid OTP found")
	ErrCodeExpired     = errors.New("OTP has expired")
	ErrCodeMismatch    = errors.New("incorrect OTP")
	ErrAlreadyVerified = errors.New("email already verified")
	ErrNoEmail         = errors.New("participant has no email address")
	ErrDuplicate       = errors.New("duplicate value for unique field")
	ErrInvalidInput    = errors.New("invalid input")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email is not verified")
	ErrInvalidToken       = errors.New("invalid or expired token")
)
