// Package errors defines the failure taxonomy of the storefront request
// pipeline and its conversion into gofulmen error envelopes for logging.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gferrors "github.com/fulmenhq/gofulmen/errors"
)

// Kind classifies a RequestError. Values double as envelope codes.
type Kind string

const (
	KindValidation     Kind = "VALIDATION_FAILED"
	KindRateLimited    Kind = "RATE_LIMITED"
	KindAuthentication Kind = "UNAUTHORIZED"
	KindForbidden      Kind = "FORBIDDEN"
	KindTimeout        Kind = "TIMEOUT"
	KindServer         Kind = "SERVER_ERROR"
	KindClient         Kind = "CLIENT_ERROR"
	KindStorage        Kind = "STORAGE_ERROR"
	KindTransport      Kind = "EXTERNAL_SERVICE_ERROR"
)

// Sentinels for errors.Is. They match any RequestError of the same kind.
var (
	ErrValidation     = sentinel(KindValidation)
	ErrRateLimited    = sentinel(KindRateLimited)
	ErrAuthentication = sentinel(KindAuthentication)
	ErrForbidden      = sentinel(KindForbidden)
	ErrTimeout        = sentinel(KindTimeout)
	ErrServer         = sentinel(KindServer)
	ErrClient         = sentinel(KindClient)
	ErrStorage        = sentinel(KindStorage)
	ErrTransport      = sentinel(KindTransport)
)

// RequestError is the typed failure surfaced by the pipeline.
type RequestError struct {
	Kind       Kind
	Message    string
	Messages   []string
	StatusCode int
	// Local is set for rate limit denials produced by the client itself.
	Local      bool
	RetryAfter time.Duration
	RequestID  string
	Err        error

	sentinel bool
}

func sentinel(kind Kind) *RequestError {
	return &RequestError{Kind: kind, sentinel: true}
}

func (e *RequestError) Error() string {
	if e == nil {
		return "<nil>"
	}

	var b strings.Builder
	b.WriteString(strings.ToLower(strings.ReplaceAll(string(e.Kind), "_", " ")))
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Messages) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Messages, "; "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RequestError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches sentinels of the same kind.
func (e *RequestError) Is(target error) bool {
	t, ok := target.(*RequestError)
	if !ok || t == nil || e == nil {
		return false
	}
	return t.sentinel && t.Kind == e.Kind
}

// Retryable reports whether a caller may retry the request after backoff.
func (e *RequestError) Retryable() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case KindRateLimited, KindTimeout, KindServer, KindTransport:
		return true
	default:
		return false
	}
}

// WithRequestID attaches the correlation id of the failed call.
func (e *RequestError) WithRequestID(id string) *RequestError {
	if e != nil {
		e.RequestID = id
	}
	return e
}

func NewValidationError(messages []string) *RequestError {
	copied := append([]string(nil), messages...)
	return &RequestError{Kind: KindValidation, Message: "request validation failed", Messages: copied}
}

func NewLocalRateLimitError(identifier string, wait time.Duration) *RequestError {
	return &RequestError{
		Kind:       KindRateLimited,
		Message:    fmt.Sprintf("too many requests for %q", identifier),
		Local:      true,
		RetryAfter: wait,
	}
}

func NewServerRateLimitError(message string, retryAfter time.Duration) *RequestError {
	if message == "" {
		message = "server rate limit exceeded"
	}
	return &RequestError{
		Kind:       KindRateLimited,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
		RetryAfter: retryAfter,
	}
}

func NewAuthenticationError(message string, err error) *RequestError {
	if message == "" {
		message = "authentication required"
	}
	return &RequestError{Kind: KindAuthentication, Message: message, StatusCode: http.StatusUnauthorized, Err: err}
}

func NewForbiddenError(message string) *RequestError {
	if message == "" {
		message = "access forbidden"
	}
	return &RequestError{Kind: KindForbidden, Message: message, StatusCode: http.StatusForbidden}
}

func NewTimeoutError(timeout time.Duration, err error) *RequestError {
	return &RequestError{Kind: KindTimeout, Message: fmt.Sprintf("request exceeded %s", timeout), Err: err}
}

func NewServerError(status int, message string) *RequestError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &RequestError{Kind: KindServer, Message: message, StatusCode: status}
}

func NewClientError(status int, message string) *RequestError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &RequestError{Kind: KindClient, Message: message, StatusCode: status}
}

func NewStorageError(op string, err error) *RequestError {
	return &RequestError{Kind: KindStorage, Message: op, Err: err}
}

func NewTransportError(err error) *RequestError {
	return &RequestError{Kind: KindTransport, Message: "request failed", Err: err}
}

// FromStatus maps a non-2xx status that is not handled specially to a RequestError.
func FromStatus(status int, message string, retryAfter time.Duration) *RequestError {
	switch {
	case status == http.StatusUnauthorized:
		return NewAuthenticationError(message, nil)
	case status == http.StatusForbidden:
		return NewForbiddenError(message)
	case status == http.StatusTooManyRequests:
		return NewServerRateLimitError(message, retryAfter)
	case status >= http.StatusInternalServerError:
		return NewServerError(status, message)
	default:
		return NewClientError(status, message)
	}
}

// KindOf returns the kind of err, or "" when err is not a RequestError.
func KindOf(err error) Kind {
	var reqErr *RequestError
	if stderrors.As(err, &reqErr) && reqErr != nil {
		return reqErr.Kind
	}
	return ""
}

// IsRetryable reports whether err is a retryable RequestError.
func IsRetryable(err error) bool {
	var reqErr *RequestError
	if stderrors.As(err, &reqErr) {
		return reqErr.Retryable()
	}
	return false
}

// HTTPStatusFromKind resolves the HTTP status conventionally associated with a kind.
func HTTPStatusFromKind(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindTransport:
		return http.StatusBadGateway
	case KindClient:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Envelope converts the error into a gofulmen envelope for structured logging.
func (e *RequestError) Envelope() *gferrors.ErrorEnvelope {
	if e == nil {
		return EnsureEnvelope(nil)
	}

	envelope := gferrors.NewErrorEnvelope(string(e.Kind), e.Error())
	envelope = withSeverity(envelope, e.Kind)

	ctx := map[string]interface{}{
		"retryable": e.Retryable(),
	}
	if e.StatusCode != 0 {
		ctx["status_code"] = e.StatusCode
	}
	if len(e.Messages) > 0 {
		ctx["messages"] = e.Messages
	}
	if e.Kind == KindRateLimited {
		ctx["local"] = e.Local
		if e.RetryAfter > 0 {
			ctx["retry_after"] = e.RetryAfter.String()
		}
	}
	if e.Err != nil {
		ctx["wrapped_error"] = e.Err.Error()
	}
	if updated, err := envelope.WithContext(ctx); err == nil {
		envelope = updated
	}

	if e.RequestID != "" {
		envelope = envelope.WithCorrelationID(e.RequestID)
	}
	return envelope
}

// EnsureEnvelope normalizes any error into a gofulmen ErrorEnvelope.
func EnsureEnvelope(err error) *gferrors.ErrorEnvelope {
	if err == nil {
		env := gferrors.NewErrorEnvelope("INTERNAL_ERROR", "unexpected nil error")
		env, _ = env.WithSeverity(gferrors.SeverityCritical)
		return env
	}

	if envelope, ok := err.(*gferrors.ErrorEnvelope); ok && envelope != nil {
		return envelope
	}

	var reqErr *RequestError
	if stderrors.As(err, &reqErr) && reqErr != nil {
		return reqErr.Envelope()
	}

	env := gferrors.NewErrorEnvelope("INTERNAL_ERROR", "unexpected error")
	env, _ = env.WithContext(map[string]interface{}{
		"wrapped_error": err.Error(),
	})
	env, _ = env.WithSeverity(gferrors.SeverityHigh)
	return env
}

func withSeverity(envelope *gferrors.ErrorEnvelope, kind Kind) *gferrors.ErrorEnvelope {
	var (
		updated *gferrors.ErrorEnvelope
		err     error
	)
	switch kind {
	case KindStorage, KindServer, KindTransport:
		updated, err = envelope.WithSeverity(gferrors.SeverityHigh)
	default:
		updated, err = envelope.WithSeverity(gferrors.SeverityMedium)
	}
	if err != nil {
		return envelope
	}
	return updated
}
