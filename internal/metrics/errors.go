package metrics

import (
	"strconv"

	"github.com/digitalplanet/shopclient/internal/observability"
)

// Metric names
const (
	ErrorsTotalName      = "errors_total"
	ErrorsByEndpointName = "errors_by_endpoint"
	PanicsTotalName      = "panics_total"
)

// RecordError records an error with kind and status
func RecordError(kind string, httpStatus int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ErrorsTotalName,
			1,
			map[string]string{
				"error_kind":  kind,
				"http_status": strconv.Itoa(httpStatus),
			},
		)
	}
}

// RecordErrorByEndpoint records an error by request path
func RecordErrorByEndpoint(endpoint string, kind string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ErrorsByEndpointName,
			1,
			map[string]string{
				"endpoint":   endpoint,
				"error_kind": kind,
			},
		)
	}
}

// RecordPanic records a recovered gateway panic
func RecordPanic() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(PanicsTotalName, 1, nil)
	}
}
