// Package respond shapes every HTTP response: the success envelope, the error
// taxonomy, and the central echo error handler that maps internal failures to
// client-safe bodies. Raw errors from repositories or collaborators never
// cross this boundary.
package respond

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/superonehealth/api/pkg/apitypes"
)

// Error is the internal error type every service returns for expected
// failures. The gateway maps it onto the envelope; anything that is not a
// *respond.Error becomes a generic 500.
type Error struct {
	Status      int
	Code        string
	Message     string
	UserMessage string
	Retryable   bool
	Actions     []string
	Fields      []apitypes.FieldError
	cause       error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// WithCause attaches an underlying error for logging. The cause is never
// serialized to the client.
func (e *Error) WithCause(err error) *Error {
	clone := *e
	clone.cause = err
	return &clone
}

// Validation builds a 400 carrying the complete list of field errors.
func Validation(fields []apitypes.FieldError) *Error {
	return &Error{
		Status:      http.StatusBadRequest,
		Code:        "validation_failed",
		Message:     "one or more request fields are invalid",
		UserMessage: "Please check the highlighted fields and try again.",
		Fields:      fields,
	}
}

// Unprocessable is validation that passed shape checks but violates a
// semantic rule (min > max, file too large).
func Unprocessable(message string, fields []apitypes.FieldError) *Error {
	return &Error{
		Status:      http.StatusUnprocessableEntity,
		Code:        "unprocessable",
		Message:     message,
		UserMessage: "The request could not be processed. Please review and try again.",
		Fields:      fields,
	}
}

// Authentication failures. The message is deliberately generic for
// credential mismatches so account existence is never revealed.
var (
	ErrInvalidCredentials = &Error{
		Status:      http.StatusUnauthorized,
		Code:        "invalid_credentials",
		Message:     "email or password is incorrect",
		UserMessage: "Email or password is incorrect.",
		Actions:     []string{"retry"},
	}
	ErrTokenExpired = &Error{
		Status:      http.StatusUnauthorized,
		Code:        "token_expired",
		Message:     "access token has expired",
		UserMessage: "Your session has expired. Please sign in again.",
		Actions:     []string{"login"},
	}
	ErrTokenInvalid = &Error{
		Status:      http.StatusUnauthorized,
		Code:        "token_invalid",
		Message:     "access token is malformed or unsigned",
		UserMessage: "Your session is no longer valid. Please sign in again.",
		Actions:     []string{"login"},
	}
	// ErrRefreshReused fires on rotation violations: the presented refresh
	// token was already consumed. The whole token family is revoked.
	ErrRefreshReused = &Error{
		Status:      http.StatusUnauthorized,
		Code:        "refresh_token_invalid_or_reused",
		Message:     "refresh token is invalid, expired, or already used",
		UserMessage: "Your session is no longer valid. Please sign in again.",
		Actions:     []string{"login"},
	}
)

// Forbidden is a 403 for a resource the caller may not touch.
func Forbidden(resource string) *Error {
	return &Error{
		Status:      http.StatusForbidden,
		Code:        "forbidden",
		Message:     fmt.Sprintf("access to %s denied", resource),
		UserMessage: "You don't have access to this resource.",
	}
}

// NotFound is a 404 for a missing resource.
func NotFound(resource, id string) *Error {
	return &Error{
		Status:      http.StatusNotFound,
		Code:        "not_found",
		Message:     fmt.Sprintf("%s %s not found", resource, id),
		UserMessage: "The requested item could not be found.",
	}
}

// Conflict errors. Exactly two cases exist in the contract.
var (
	ErrDuplicateEmail = &Error{
		Status:      http.StatusConflict,
		Code:        "duplicate_email",
		Message:     "an account with this email already exists",
		UserMessage: "An account with this email already exists. Try signing in.",
		Actions:     []string{"login"},
	}
	ErrSlotUnavailable = &Error{
		Status:      http.StatusConflict,
		Code:        "slot_unavailable",
		Message:     "the requested time slot has already been booked",
		UserMessage: "That time slot was just taken. Please pick another.",
		Retryable:   true,
		Actions:     []string{"retry"},
	}
)

// RateLimited is the 429 body.
var RateLimited = &Error{
	Status:      http.StatusTooManyRequests,
	Code:        "rate_limited",
	Message:     "request rate limit exceeded",
	UserMessage: "Too many requests. Please wait a moment and try again.",
	Retryable:   true,
	Actions:     []string{"retry"},
}

// Processing wraps an OCR/analysis pipeline failure with step context.
func Processing(step string, recoverable bool, cause error) *Error {
	e := &Error{
		Status:      http.StatusBadGateway,
		Code:        "processing_failed",
		Message:     fmt.Sprintf("document processing failed at step %q", step),
		UserMessage: "We couldn't process your document. Please try again.",
		Retryable:   recoverable,
		cause:       cause,
	}
	if recoverable {
		e.Actions = []string{"retry"}
	} else {
		e.Actions = []string{"contact_support"}
		e.UserMessage = "We couldn't process your document. Please contact support."
	}
	return e
}

// Internal hides an unexpected error behind a generic 500. The cause is kept
// for logging only.
func Internal(cause error) *Error {
	return &Error{
		Status:      http.StatusInternalServerError,
		Code:        "internal_error",
		Message:     "internal server error",
		UserMessage: "Something went wrong on our side. Please try again later.",
		Retryable:   true,
		Actions:     []string{"retry", "contact_support"},
		cause:       cause,
	}
}

// Unavailable is a 503 for downstream outages (database, pipeline).
func Unavailable(what string, cause error) *Error {
	return &Error{
		Status:      http.StatusServiceUnavailable,
		Code:        "service_unavailable",
		Message:     fmt.Sprintf("%s is unavailable", what),
		UserMessage: "The service is temporarily unavailable. Please try again shortly.",
		Retryable:   true,
		Actions:     []string{"retry"},
		cause:       cause,
	}
}

// AsError extracts a *respond.Error from err, or wraps it as Internal.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}
