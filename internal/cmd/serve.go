package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/digitalplanet/shopclient/internal/config"
	"github.com/digitalplanet/shopclient/internal/observability"
	"github.com/digitalplanet/shopclient/internal/server"
	"github.com/digitalplanet/shopclient/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// healthProbeKey is read by the store health check; it never exists.
const healthProbeKey = "__health_probe"

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errors.New("telemetry system not initialized")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local gateway that forwards /api/* through the pipeline",
	Long: `Run a local HTTP gateway. Requests to /api/<path> are sent to the
configured storefront through the request pipeline, using the stored session.
Local tools get screening, rate limiting, and token refresh for free.

Endpoints:
  /api/*          forwarded to the storefront
  /session        stored session, tokens masked
  /rate-limits    live limiter windows (DELETE to reset; see rate-limit reset)
  /health         aggregate health (also /health/live, /health/ready)
  /version        build metadata
  /metrics        Prometheus metrics (when metrics.enabled)

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload stored credentials (pick up a login from another shell)`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig(cmd)
		if err != nil {
			return err
		}
		serverCfg := cfg.Server
		if cmd.Flags().Changed("host") {
			serverCfg.Host = serverHost
		}
		if cmd.Flags().Changed("port") {
			serverCfg.Port = serverPort
		}

		observability.InitStructuredLogger(config.AppName, cfg.Logging.Level, cfg.Environment, config.AppName)
		logger := observability.StructuredLogger

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(config.AppName, cfg.Metrics.Port, config.AppName); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return err
			}
		}

		session, err := openSession(cmd)
		if err != nil {
			return err
		}

		hm := handlers.NewHealthManager(versionInfo.Version)
		hm.RegisterChecker("store", handlers.HealthCheckFunc(func(ctx context.Context) error {
			_, _, err := session.kv.Get(ctx, healthProbeKey)
			return err
		}))
		if cfg.Metrics.Enabled {
			hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		}

		srv := server.New(server.Options{
			Host:         serverCfg.Host,
			Port:         serverCfg.Port,
			ReadTimeout:  serverCfg.ReadTimeout,
			WriteTimeout: serverCfg.WriteTimeout,
			Health:       hm,
			Logger:       logger,
			Gateway: &handlers.Gateway{
				Sender:  session.pipeline,
				Session: session.tokens,
				Limiter: session.pipeline.Limiter,
			},
		})

		logger.Info("Initializing gateway",
			zap.String("version", versionInfo.Version),
			zap.String("upstream", cfg.Active().BaseURL),
			zap.String("addr", srv.Addr()),
			zap.Bool("metrics", cfg.Metrics.Enabled))

		shutdownTimeout := serverCfg.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// LIFO: the server stops first, then the store, then the logger flushes.
		done := make(chan struct{})
		signals.OnShutdown(func(ctx context.Context) error {
			defer close(done)
			if err := logger.Sync(); err != nil {
				logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			return session.Close(ctx)
		})

		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Shutting down gateway...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		signals.OnReload(func(ctx context.Context) error {
			if err := session.tokens.Load(ctx); err != nil {
				logger.Error("Failed to reload credentials", zap.Error(err))
				return err
			}
			logger.Info("Credentials reloaded", zap.String("identity", session.tokens.Identity(ctx)))
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		errChan := make(chan error, 2)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		select {
		case err := <-errChan:
			_ = session.Close(context.Background())
			return err
		case <-done:
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "127.0.0.1", "gateway host (overrides server.host)")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8787, "gateway port (overrides server.port)")
}
