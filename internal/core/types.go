package core

import (
	"net/http"
	"strings"
)

// Method is an HTTP method accepted by the request pipeline.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodDelete Method = http.MethodDelete
	MethodPatch  Method = http.MethodPatch
)

// AllowedMethods lists the methods the pipeline will send.
var AllowedMethods = []Method{MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch}

// ParseMethod normalizes a method name and reports whether it is allowed.
func ParseMethod(value string) (Method, bool) {
	candidate := Method(strings.ToUpper(strings.TrimSpace(value)))
	for _, m := range AllowedMethods {
		if m == candidate {
			return m, true
		}
	}
	return candidate, false
}

// Mutating reports whether requests with this method carry a CSRF token.
func (m Method) Mutating() bool {
	switch m {
	case MethodPost, MethodPut, MethodDelete, MethodPatch:
		return true
	default:
		return false
	}
}

// Request is an outgoing API call as constructed by the caller.
//
// The pipeline never mutates a Request; it derives a sanitized copy.
type Request struct {
	URL     string            `json:"url"`
	Method  Method            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    any               `json:"body,omitempty"`
}

// Response is a decoded 2xx response.
type Response struct {
	StatusCode  int         `json:"status_code"`
	ContentType string      `json:"content_type,omitempty"`
	Data        any         `json:"data,omitempty"`
	Text        string      `json:"text,omitempty"`
	Header      http.Header `json:"-"`
	RequestID   string      `json:"request_id,omitempty"`
}

// IsJSON reports whether the response body was decoded as JSON.
func (r *Response) IsJSON() bool {
	return r != nil && strings.Contains(strings.ToLower(r.ContentType), "json")
}

// ValidationResult collects validation failures in the order they were found.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Valid returns a passing result.
func Valid() ValidationResult {
	return ValidationResult{Valid: true}
}

// Invalid returns a failing result with the given messages.
func Invalid(messages ...string) ValidationResult {
	return ValidationResult{Valid: false, Errors: messages}
}

// Merge appends the failures of other to r.
func (r *ValidationResult) Merge(other ValidationResult) {
	if other.Valid {
		return
	}
	r.Valid = false
	r.Errors = append(r.Errors, other.Errors...)
}
