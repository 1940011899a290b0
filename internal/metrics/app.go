package metrics

import (
	"strconv"
	"time"

	"github.com/digitalplanet/shopclient/internal/observability"
)

// Client-side request metrics following Prometheus conventions
var (
	// Request metrics
	RequestsTotal   = "client_requests_total"
	RequestDuration = "client_request_duration_ms"

	// Refresh metrics
	RefreshTotal = "client_token_refresh_total"

	// Local admission control
	RateLimitedTotal = "client_rate_limited_total"
	ValidationTotal  = "client_validation_rejections_total"

	// Token state
	AuthenticatedGauge = "client_authenticated"
)

// RecordRequest records a completed transport round trip.
func RecordRequest(method string, status int, duration time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RequestsTotal,
			1,
			map[string]string{
				"method": method,
				"status": strconv.Itoa(status),
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			RequestDuration,
			duration,
			map[string]string{
				"method": method,
			},
		)
	}
}

// RecordRefresh records the outcome of a single-flight refresh exchange.
func RecordRefresh(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RefreshTotal,
			1,
			map[string]string{
				"status": status,
			},
		)
	}
}

// RecordRateLimited records a denial; scope is "local" or "server".
func RecordRateLimited(scope string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RateLimitedTotal,
			1,
			map[string]string{
				"scope": scope,
			},
		)
	}
}

// RecordValidationRejection records a request rejected before transport.
func RecordValidationRejection(messages int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ValidationTotal,
			float64(messages),
			nil,
		)
	}
}

// SetAuthenticated records whether an access token is currently held.
func SetAuthenticated(authenticated bool) {
	value := 0.0
	if authenticated {
		value = 1
	}
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			AuthenticatedGauge,
			value,
			nil,
		)
	}
}
