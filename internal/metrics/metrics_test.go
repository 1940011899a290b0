package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/digitalplanet/shopclient/internal/observability"
)

func TestRecordersWithoutTelemetry(t *testing.T) {
	prev := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() { observability.TelemetrySystem = prev })

	require.NotPanics(t, func() {
		RecordRequest("GET", 200, time.Millisecond)
		RecordRefresh(true)
		RecordRateLimited("local")
		RecordValidationRejection(2)
		SetAuthenticated(true)
		RecordError("TIMEOUT", 0)
		RecordErrorByEndpoint("/orders", "SERVER_ERROR")
	})
}

func TestRecordersWithDisabledTelemetry(t *testing.T) {
	prev := observability.TelemetrySystem
	require.NoError(t, observability.InitDisabledTelemetry())
	t.Cleanup(func() { observability.TelemetrySystem = prev })

	require.NotPanics(t, func() {
		RecordRequest("POST", 401, 2*time.Millisecond)
		RecordRefresh(false)
		SetAuthenticated(false)
	})
}
