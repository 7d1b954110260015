// Package validate wraps go-playground/validator for request structs and adds
// cross-field rules. Failures are collected; every offending field is
// reported, never just the first.
package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/superonehealth/api/internal/platform/respond"
	"github.com/superonehealth/api/pkg/apitypes"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	// dateonly: YYYY-MM-DD strings.
	_ = val.RegisterValidation("dateonly", func(fl validator.FieldLevel) bool {
		_, err := apitypes.ParseDate(fl.Field().String())
		return err == nil
	})
	// timeslot: HH:MM, 24h.
	_ = val.RegisterValidation("timeslot", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if len(s) != 5 || s[2] != ':' {
			return false
		}
		h := (int(s[0]-'0'))*10 + int(s[1]-'0')
		m := (int(s[3]-'0'))*10 + int(s[4]-'0')
		return s[0] >= '0' && s[0] <= '2' && h < 24 && m < 60 && s[3] >= '0' && s[3] <= '5'
	})
	return val
}

// Struct validates a request struct, returning a *respond.Error carrying the
// complete field-error list, or nil.
func Struct(s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return respond.Internal(err)
	}
	fields := make([]apitypes.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apitypes.FieldError{
			Field:   snake(fe.Field()),
			Rule:    fe.Tag(),
			Message: message(fe),
		})
	}
	return respond.Validation(fields)
}

func message(fe validator.FieldError) string {
	field := snake(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "dateonly":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD form", field)
	case "timeslot":
		return fmt.Sprintf("%s must be a time in HH:MM form", field)
	default:
		return fmt.Sprintf("%s failed rule %q", field, fe.Tag())
	}
}

// snake converts a Go field name to its wire spelling.
func snake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// RangePair checks min <= max for optional numeric filter pairs. Violations
// are contract errors, never silently swapped.
func RangePair(minField, maxField string, min, max *float64) []apitypes.FieldError {
	if min == nil || max == nil || *min <= *max {
		return nil
	}
	return []apitypes.FieldError{{
		Field:   minField,
		Rule:    "lte",
		Message: fmt.Sprintf("%s must not exceed %s", minField, maxField),
	}}
}

// IntRangePair is RangePair for integer filters.
func IntRangePair(minField, maxField string, min, max *int) []apitypes.FieldError {
	if min == nil || max == nil || *min <= *max {
		return nil
	}
	return []apitypes.FieldError{{
		Field:   minField,
		Rule:    "lte",
		Message: fmt.Sprintf("%s must not exceed %s", minField, maxField),
	}}
}

// Upload constraints for lab report documents.
const (
	MaxUploadBytes = 10 * 1024 * 1024
	MaxBatchFiles  = 5
)

// AllowedUploadTypes lists the accepted document MIME types.
var AllowedUploadTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/heic":      true,
}

// Upload validates one file's metadata, returning the complete list of
// violations.
func Upload(fileName string, size int64, mimeType string) []apitypes.FieldError {
	var fields []apitypes.FieldError
	if fileName == "" {
		fields = append(fields, apitypes.FieldError{
			Field: "file_name", Rule: "required", Message: "file_name is required",
		})
	}
	if size <= 0 {
		fields = append(fields, apitypes.FieldError{
			Field: "file_size", Rule: "min", Message: "file is empty",
		})
	} else if size > MaxUploadBytes {
		fields = append(fields, apitypes.FieldError{
			Field: "file_size", Rule: "max",
			Message: fmt.Sprintf("file exceeds the %d MB limit", MaxUploadBytes/(1024*1024)),
		})
	}
	if !AllowedUploadTypes[strings.ToLower(mimeType)] {
		fields = append(fields, apitypes.FieldError{
			Field: "mime_type", Rule: "oneof",
			Message: "file type must be PDF, JPEG, PNG, or HEIC",
		})
	}
	return fields
}
