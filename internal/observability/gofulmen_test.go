package observability_test

import (
	"testing"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/digitalplanet/shopclient/internal/observability"
)

func TestGofulmenIntegration(t *testing.T) {
	t.Run("CLI logger creation", func(t *testing.T) {
		observability.InitCLILogger("test-service", false)

		if observability.CLILogger == nil {
			t.Fatal("CLI logger should not be nil after initialization")
		}

		observability.CLILogger.Info("Test CLI log message",
			zap.String("test", "value"))
	})

	t.Run("Structured logger creation", func(t *testing.T) {
		observability.InitStructuredLogger("test-service", "debug", "test")
		t.Cleanup(func() { observability.StructuredLogger = nil })

		if observability.StructuredLogger == nil {
			t.Fatal("Structured logger should not be nil after initialization")
		}
		if observability.Logger() != observability.StructuredLogger {
			t.Fatal("Logger should prefer the structured logger")
		}

		observability.StructuredLogger.Info("Test structured log message",
			zap.String("component", "test"),
			zap.String("request_id", "abc"))
	})

	t.Run("Logger falls back to CLI", func(t *testing.T) {
		observability.InitCLILogger("fallback", true)
		if observability.Logger() != observability.CLILogger {
			t.Fatal("Logger should return the CLI logger when no structured logger exists")
		}
	})

	t.Run("Logger with verbose mode", func(t *testing.T) {
		logger, err := logging.NewCLI("verbose-test")
		if err != nil {
			t.Fatalf("Failed to create verbose logger: %v", err)
		}

		logger.SetLevel(logging.DEBUG)

		logger.Debug("Debug message",
			zap.String("mode", "verbose"))
	})
}

func TestDisabledTelemetry(t *testing.T) {
	prev := observability.TelemetrySystem
	t.Cleanup(func() { observability.TelemetrySystem = prev })

	if err := observability.InitDisabledTelemetry(); err != nil {
		t.Fatalf("InitDisabledTelemetry: %v", err)
	}
	if observability.TelemetrySystem == nil {
		t.Fatal("TelemetrySystem should be set")
	}
	_ = observability.TelemetrySystem.Counter("noop_total", 1, nil)
}

func TestEmbeddedCrucible(t *testing.T) {
	version := crucible.GetVersion()

	if version.Gofulmen == "" {
		t.Error("Gofulmen version should not be empty")
	}

	t.Logf("Gofulmen version: %s", version.Gofulmen)
}
