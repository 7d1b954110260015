package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/superonehealth/api/pkg/apitypes"
)

func newCtx() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tests", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestOKEnvelopeShape(t *testing.T) {
	c, rec := newCtx()
	if err := OK(c, map[string]string{"hello": "world"}); err != nil {
		t.Fatal(err)
	}
	var env apitypes.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if !env.Success || env.Error != nil || env.Timestamp.IsZero() {
		t.Fatalf("bad envelope: %+v", env)
	}
}

func TestErrorHandlerMapsTaxonomy(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	handler := HTTPErrorHandler(logger)

	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{ErrRefreshReused, http.StatusUnauthorized, "refresh_token_invalid_or_reused"},
		{ErrDuplicateEmail, http.StatusConflict, "duplicate_email"},
		{ErrSlotUnavailable, http.StatusConflict, "slot_unavailable"},
		{NotFound("appointment", "abc"), http.StatusNotFound, "not_found"},
		{RateLimited, http.StatusTooManyRequests, "rate_limited"},
		{errors.New("pgx: connection refused"), http.StatusInternalServerError, "internal_error"},
		{echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header"), http.StatusUnauthorized, "token_invalid"},
	}

	for _, tc := range cases {
		c, rec := newCtx()
		handler(tc.err, c)
		if rec.Code != tc.wantStatus {
			t.Errorf("%v: status %d, want %d", tc.err, rec.Code, tc.wantStatus)
		}
		var env apitypes.Envelope
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%v: invalid envelope: %v", tc.err, err)
		}
		if env.Success {
			t.Errorf("%v: success=true on error response", tc.err)
		}
		if env.Error == nil || env.Error.Code != tc.wantCode {
			t.Errorf("%v: code = %+v, want %s", tc.err, env.Error, tc.wantCode)
		}
	}
}

func TestInternalErrorNeverLeaksCause(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	handler := HTTPErrorHandler(logger)

	c, rec := newCtx()
	handler(errors.New("pq: password authentication failed for user \"superone\""), c)

	body := rec.Body.String()
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rec.Code)
	}
	for _, leak := range []string{"pq:", "password", "superone"} {
		if strings.Contains(strings.ToLower(body), leak) {
			t.Errorf("response leaked internal detail %q: %s", leak, body)
		}
	}
}

func TestValidationCarriesAllFields(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	handler := HTTPErrorHandler(logger)

	fields := []apitypes.FieldError{
		{Field: "price_min", Rule: "lte", Message: "price_min must not exceed price_max"},
		{Field: "email", Rule: "email", Message: "email must be a valid address"},
	}
	c, rec := newCtx()
	handler(Validation(fields), c)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
	var body struct {
		Fields []apitypes.FieldError `json:"fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Fields) != 2 {
		t.Fatalf("expected both field errors, got %d", len(body.Fields))
	}
}

