package cmd

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"

	"github.com/digitalplanet/shopclient/internal/config"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display version, runtime, and resolved configuration. Secrets are never printed.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig(cmd)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), ascii.DrawBox(strings.Join(envInfoLines(cfg), "\n"), 0))
		return err
	},
}

func envInfoLines(cfg *config.Config) []string {
	version := crucible.GetVersion()
	active := cfg.Active()

	lines := []string{
		"shopclient Environment",
		"",
		"Application:",
		"  Version:      " + versionInfo.Version,
		"  Commit:       " + versionInfo.Commit,
		"  Built:        " + versionInfo.BuildDate,
		"  Gofulmen:     " + version.Gofulmen,
		"  Crucible:     " + version.Crucible,
		"",
		"Runtime:",
		"  Go:           " + runtime.Version(),
		"  Platform:     " + runtime.GOOS + "/" + runtime.GOARCH,
		"",
		"API:",
		"  Environment:  " + cfg.Environment,
		"  Base URL:     " + active.BaseURL,
		"  Timeout:      " + cfg.RequestTimeout().String(),
		fmt.Sprintf("  Rate Limit:   %d per %s (margin %.2f)", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, cfg.RateLimit.Margin),
		fmt.Sprintf("  Strict HTML:  %t", cfg.Security.StrictMarkup),
		"  Raw Fields:   " + strings.Join(cfg.Security.RawFields, ", "),
		"",
		"Store:",
		"  Driver:       " + cfg.Store.Driver,
	}

	switch {
	case cfg.Store.Driver == "redis":
		lines = append(lines, "  Redis:        "+cfg.Store.RedisAddr)
	case strings.TrimSpace(cfg.Store.URL) != "":
		lines = append(lines, "  URL:          "+cfg.Store.URL)
	default:
		lines = append(lines, "  Path:         "+cfg.Store.Path)
	}
	if cfg.Store.AuthToken != "" {
		lines = append(lines, "  Auth Token:   (set)")
	}

	lines = append(lines,
		"",
		"Gateway:",
		fmt.Sprintf("  Listen:       %s:%d", cfg.Server.Host, cfg.Server.Port),
		fmt.Sprintf("  Metrics:      %t (port %d)", cfg.Metrics.Enabled, cfg.Metrics.Port),
		"",
		"Logging:",
		"  Level:        "+cfg.Logging.Level,
		"  Format:       "+cfg.Logging.Format,
		"  Config File:  "+config.DefaultConfigPath(),
	)

	if len(cfg.SocialLogin) > 0 {
		providers := make([]string, 0, len(cfg.SocialLogin))
		for name := range cfg.SocialLogin {
			providers = append(providers, name)
		}
		sort.Strings(providers)
		lines = append(lines, "", "Social Login:", "  Providers:    "+strings.Join(providers, ", "))
	}
	return lines
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
