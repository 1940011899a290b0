package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/digitalplanet/shopclient/internal/metrics"
	"github.com/digitalplanet/shopclient/internal/observability"
)

// HTTPErrorDetail captures the error body returned to gateway callers.
type HTTPErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// HTTPErrorResponse wraps HTTPErrorDetail in the standard envelope structure.
type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

// NewNotFoundError is returned for unknown gateway routes.
func NewNotFoundError(message string) *gferrors.ErrorEnvelope {
	return gferrors.NewErrorEnvelope("NOT_FOUND", message)
}

// NewMethodNotAllowedError is returned for unsupported methods.
func NewMethodNotAllowedError(message string) *gferrors.ErrorEnvelope {
	return gferrors.NewErrorEnvelope("METHOD_NOT_ALLOWED", message)
}

// HTTPStatus resolves the status a gateway reports for err. Upstream statuses
// pass through; local failures use the conventional status of their kind.
func HTTPStatus(err error) int {
	var reqErr *RequestError
	if stderrors.As(err, &reqErr) && reqErr != nil {
		if reqErr.StatusCode >= 400 {
			return reqErr.StatusCode
		}
		return HTTPStatusFromKind(reqErr.Kind)
	}

	var envelope *gferrors.ErrorEnvelope
	if stderrors.As(err, &envelope) && envelope != nil {
		return HTTPStatusFromCode(envelope.Code)
	}
	return http.StatusInternalServerError
}

// HTTPStatusFromCode resolves the HTTP status code corresponding to an envelope code.
func HTTPStatusFromCode(code string) int {
	switch code {
	case "NOT_FOUND":
		return http.StatusNotFound
	case "METHOD_NOT_ALLOWED":
		return http.StatusMethodNotAllowed
	case "SERVICE_UNAVAILABLE":
		return http.StatusServiceUnavailable
	case "INTERNAL_ERROR":
		return http.StatusInternalServerError
	default:
		return HTTPStatusFromKind(Kind(code))
	}
}

// ResponseDetails merges envelope details and context into an API-safe map.
func ResponseDetails(envelope *gferrors.ErrorEnvelope) map[string]interface{} {
	if envelope == nil {
		return nil
	}

	details := make(map[string]interface{})
	for key, value := range envelope.Details {
		details[key] = value
	}
	for key, value := range envelope.Context {
		if key == "wrapped_error" {
			continue
		}
		if _, exists := details[key]; !exists {
			details[key] = value
		}
	}

	if len(details) == 0 {
		return nil
	}
	return details
}

// RespondWithError normalizes err and writes a JSON error response.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	if w == nil {
		return
	}

	envelope := EnsureEnvelope(err)
	if envelope.CorrelationID == "" && r != nil {
		if id := r.Header.Get("X-Request-ID"); id != "" {
			envelope = envelope.WithCorrelationID(id)
		}
	}
	statusCode := HTTPStatus(err)

	var reqErr *RequestError
	if stderrors.As(err, &reqErr) && reqErr != nil && reqErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", retryAfterSeconds(reqErr))
	}

	response := HTTPErrorResponse{
		Error: HTTPErrorDetail{
			Code:      envelope.Code,
			Message:   envelope.Message,
			Details:   ResponseDetails(envelope),
			RequestID: envelope.CorrelationID,
		},
	}

	logHTTPError(envelope, statusCode)
	metrics.RecordError(envelope.Code, statusCode)
	if r != nil {
		metrics.RecordErrorByEndpoint(r.URL.Path, envelope.Code)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func retryAfterSeconds(e *RequestError) string {
	seconds := int64(e.RetryAfter.Seconds())
	if e.RetryAfter%time.Second != 0 {
		seconds++
	}
	if seconds < 1 {
		seconds = 1
	}
	return strconv.FormatInt(seconds, 10)
}

func logHTTPError(envelope *gferrors.ErrorEnvelope, statusCode int) {
	logger := observability.Logger()
	if logger == nil || envelope == nil {
		return
	}

	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
		zap.Int("http_status", statusCode),
	}
	if envelope.Severity != "" {
		fields = append(fields, zap.String("severity", string(envelope.Severity)))
	}
	if envelope.CorrelationID != "" {
		fields = append(fields, zap.String("request_id", envelope.CorrelationID))
	}

	switch envelope.Severity {
	case gferrors.SeverityCritical, gferrors.SeverityHigh:
		logger.Error(envelope.Message, fields...)
	case gferrors.SeverityMedium:
		logger.Warn(envelope.Message, fields...)
	default:
		logger.Info(envelope.Message, fields...)
	}
}
