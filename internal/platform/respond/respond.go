package respond

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/superonehealth/api/pkg/apitypes"
)

// OK writes a 200 envelope.
func OK(c echo.Context, data interface{}) error {
	return JSON(c, http.StatusOK, data, "", nil)
}

// OKMessage writes a 200 envelope with a human-readable message.
func OKMessage(c echo.Context, data interface{}, message string) error {
	return JSON(c, http.StatusOK, data, message, nil)
}

// Created writes a 201 envelope.
func Created(c echo.Context, data interface{}) error {
	return JSON(c, http.StatusCreated, data, "", nil)
}

// List writes a 200 envelope with a pagination block.
func List(c echo.Context, data interface{}, pg *apitypes.Pagination) error {
	return JSON(c, http.StatusOK, data, "", pg)
}

// JSON writes a success envelope with full control over the fields.
func JSON(c echo.Context, status int, data interface{}, message string, pg *apitypes.Pagination) error {
	return c.JSON(status, apitypes.Envelope{
		Success:    true,
		Data:       data,
		Message:    message,
		Timestamp:  time.Now().UTC(),
		Pagination: pg,
	})
}

// WriteError shapes any error into the envelope. Callers normally just return
// the error and let the central handler route here.
func WriteError(c echo.Context, err error) error {
	e := AsError(err)
	return c.JSON(e.Status, apitypes.Envelope{
		Success: false,
		Data:    nil,
		Error: &apitypes.APIError{
			Code:        e.Code,
			Message:     e.Message,
			UserMessage: e.UserMessage,
			Retryable:   e.Retryable,
			Actions:     e.Actions,
		},
		Timestamp: time.Now().UTC(),
	})
}

// HTTPErrorHandler is installed as echo's central error handler. It maps
// *respond.Error, *echo.HTTPError (from middleware and bind failures), and
// anything else onto the envelope, logging causes server-side only.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		e := toError(err)

		if e.Status >= http.StatusInternalServerError {
			logger.Error().
				Err(err).
				Str("path", c.Request().URL.Path).
				Str("code", e.Code).
				Msg("request failed")
		}

		body := apitypes.Envelope{
			Success:   false,
			Data:      nil,
			Timestamp: time.Now().UTC(),
		}
		if len(e.Fields) > 0 {
			// Field errors ride inside the error object.
			body.Error = &apitypes.APIError{
				Code:        e.Code,
				Message:     e.Message,
				UserMessage: e.UserMessage,
				Retryable:   e.Retryable,
				Actions:     e.Actions,
			}
			_ = c.JSON(e.Status, struct {
				apitypes.Envelope
				Fields []apitypes.FieldError `json:"fields"`
			}{body, e.Fields})
			return
		}
		body.Error = &apitypes.APIError{
			Code:        e.Code,
			Message:     e.Message,
			UserMessage: e.UserMessage,
			Retryable:   e.Retryable,
			Actions:     e.Actions,
		}
		_ = c.JSON(e.Status, body)
	}
}

func toError(err error) *Error {
	if e, ok := err.(*Error); ok {
		return e
	}
	if he, ok := err.(*echo.HTTPError); ok {
		msg, _ := he.Message.(string)
		if msg == "" {
			msg = http.StatusText(he.Code)
		}
		switch he.Code {
		case http.StatusUnauthorized:
			return ErrTokenInvalid
		case http.StatusNotFound:
			return &Error{Status: he.Code, Code: "not_found", Message: msg,
				UserMessage: "The requested item could not be found."}
		case http.StatusTooManyRequests:
			return RateLimited
		case http.StatusRequestEntityTooLarge:
			return &Error{Status: he.Code, Code: "file_too_large", Message: msg,
				UserMessage: "The file is too large. The limit is 10 MB."}
		case http.StatusGatewayTimeout:
			return &Error{Status: he.Code, Code: "timeout", Message: msg, Retryable: true,
				UserMessage: "The request took too long. Please try again.", Actions: []string{"retry"}}
		default:
			if he.Code >= 500 {
				return Internal(err)
			}
			return &Error{Status: he.Code, Code: "bad_request", Message: msg,
				UserMessage: "The request could not be handled."}
		}
	}
	return AsError(err)
}
