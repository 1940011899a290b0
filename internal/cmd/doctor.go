package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/digitalplanet/shopclient/internal/config"
	"github.com/digitalplanet/shopclient/internal/core/tokens"
	"github.com/digitalplanet/shopclient/internal/observability"
)

var doctorOffline bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Check the toolchain, configuration, credential store, stored session,
and storefront reachability. Use --offline to skip the network probe.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := observability.CLILogger
		log.Info("=== shopclient doctor ===")
		log.Info("")

		const totalChecks = 6
		failed := 0
		step := 0
		pass := func(msg string, fields ...zap.Field) {
			step++
			log.Info(fmt.Sprintf("[%d/%d] %s", step, totalChecks, msg), fields...)
		}
		warn := func(msg string, fields ...zap.Field) {
			step++
			log.Warn(fmt.Sprintf("[%d/%d] %s", step, totalChecks, msg), fields...)
		}
		fail := func(msg string, fields ...zap.Field) {
			step++
			failed++
			log.Error(fmt.Sprintf("[%d/%d] %s", step, totalChecks, msg), fields...)
		}

		version := crucible.GetVersion()
		pass(fmt.Sprintf("Checking runtime... ✅ %s %s/%s, gofulmen %s", runtime.Version(), runtime.GOOS, runtime.GOARCH, version.Gofulmen))

		if path := config.DefaultConfigPath(); path == "" {
			warn("Checking config directory... ⚠️  cannot resolve XDG config directory")
		} else {
			pass("Checking config directory... ✅ "+filepath.Dir(path), zap.String("config_dir", filepath.Dir(path)))
		}

		cfg, err := currentConfig(cmd)
		if err != nil {
			fail("Checking configuration... ❌ "+err.Error(), zap.Error(err))
			return err
		}
		pass(fmt.Sprintf("Checking configuration... ✅ %s (%s)", cfg.Environment, cfg.Active().BaseURL))

		session, err := openSession(cmd)
		if err != nil {
			fail("Checking credential store... ❌ "+err.Error(), zap.Error(err))
			return err
		}
		ctx := commandContext(cmd)
		defer session.Close(ctx) // nolint:errcheck // best-effort cleanup
		pass("Checking credential store... ✅ "+cfg.Store.Driver, zap.String("driver", cfg.Store.Driver))

		creds := session.tokens.Credentials()
		switch exp, ok := tokens.ExpiryOf(creds.AccessToken); {
		case !creds.HasAccess():
			warn("Checking session... ⚠️  not logged in (run 'shopclient login')")
		case ok && exp.Before(time.Now()):
			if creds.RefreshToken != "" {
				warn(fmt.Sprintf("Checking session... ⚠️  access token expired %s ago; it will be refreshed on next call", time.Since(exp).Round(time.Second)))
			} else {
				fail("Checking session... ❌ access token expired and no refresh token is stored")
			}
		case ok:
			pass(fmt.Sprintf("Checking session... ✅ %s, expires in %s", session.tokens.Identity(ctx), time.Until(exp).Round(time.Second)))
		default:
			pass("Checking session... ✅ " + session.tokens.Identity(ctx))
		}

		if doctorOffline {
			pass("Checking storefront... skipped (--offline)")
		} else if err := probeStorefront(ctx, session); err != nil {
			fail("Checking storefront... ❌ "+err.Error(), zap.Error(err))
		} else {
			pass("Checking storefront... ✅ reachable")
		}

		log.Info("")
		if failed > 0 {
			return fmt.Errorf("%d check(s) failed", failed)
		}
		log.Info("All checks passed")
		return nil
	},
}

// probeStorefront fetches the public category list through the pipeline.
func probeStorefront(ctx context.Context, s *clientSession) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout())
	defer cancel()
	_, err := s.client.Products.Categories(ctx)
	return err
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorOffline, "offline", false, "Skip the storefront reachability probe")
	rootCmd.AddCommand(doctorCmd)
}
