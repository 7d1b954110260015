package apitypes

import "time"

// Envelope is the standard wrapper around every API response, success or
// failure. Data is null on failure; Error is absent on success.
type Envelope struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message,omitempty"`
	Error      *APIError   `json:"error,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// APIError is the client-facing error body. Message is the technical
// description; UserMessage is safe to display verbatim in the app.
type APIError struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	UserMessage string   `json:"user_message"`
	Retryable   bool     `json:"retryable"`
	Actions     []string `json:"actions,omitempty"`
}

// Pagination is the list-response paging block.
// HasMore is always (offset + returned count) < total.
type Pagination struct {
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

// FieldError describes one invalid request field. Validation responses carry
// the complete list, not just the first failure.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}
