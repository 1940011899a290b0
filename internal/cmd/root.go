package cmd

import (
	"context"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/digitalplanet/shopclient/internal/config"
	"github.com/digitalplanet/shopclient/internal/observability"
)

var (
	cfgFile      string
	envFile      string
	verbose      bool
	baseURL      string
	environment  string
	outputFormat string

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Storefront API client",
	Long: `shopclient talks to the storefront API through a hardened request pipeline:
input screening, HTML escaping, client-side rate limiting, CSRF tokens,
and transparent access token refresh.

Credentials persist in a local libsql database (or Redis) between runs.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/shopclient/config.yaml)")
	flags.StringVar(&envFile, "env-file", "", "dotenv file to load (default ./.env when present)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	flags.StringVar(&baseURL, "base-url", "", "override the API base URL")
	flags.StringVar(&environment, "env", "", "API profile: development|staging|production (default detected from base URL)")
	flags.StringVarP(&outputFormat, "output-format", "o", "table", "Output format: table|json|yaml|markdown")
}

// initConfig loads configuration and initializes logging and telemetry.
func initConfig() {
	observability.InitCLILogger(config.AppName, verbose)

	cfg, err := config.Load(rootCmd.Context(), config.Options{
		ConfigFile: cfgFile,
		EnvFile:    envFile,
	}, flagOverrides())
	if err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Failed to load configuration", err)
	}

	if strings.EqualFold(strings.TrimSpace(cfg.Logging.Format), "json") {
		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		observability.InitStructuredLogger(config.AppName, level, cfg.Environment, config.AppName)
	}

	if err := observability.InitDisabledTelemetry(); err != nil {
		observability.CLILogger.Warn("Failed to initialize telemetry", zap.Error(err))
	}

	observability.Logger().Debug("Configuration loaded",
		zap.String("environment", cfg.Environment),
		zap.String("base_url", cfg.Active().BaseURL),
		zap.String("store_driver", cfg.Store.Driver))
}

// flagOverrides maps global flags onto config keys. Unset flags are omitted
// so file and environment values still apply.
func flagOverrides() map[string]any {
	overrides := map[string]any{}
	if v := strings.TrimSpace(baseURL); v != "" {
		overrides["base_url"] = v
	}
	if v := strings.TrimSpace(environment); v != "" {
		overrides["environment"] = strings.ToLower(v)
	}
	if verbose {
		overrides["debug"] = true
		overrides["logging"] = map[string]any{"level": "debug"}
	}
	return overrides
}

// currentConfig returns the loaded configuration, loading it on demand when a
// command runs outside cobra initialization (tests).
func currentConfig(cmd *cobra.Command) (*config.Config, error) {
	if cfg := config.GetConfig(); cfg != nil {
		return cfg, nil
	}
	return config.Load(cmd.Context(), config.Options{ConfigFile: cfgFile, EnvFile: envFile}, flagOverrides())
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
