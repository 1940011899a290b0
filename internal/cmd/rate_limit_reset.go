package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/digitalplanet/shopclient/internal/output"
	"github.com/digitalplanet/shopclient/internal/server/handlers"
)

var (
	rateLimitResetAll        bool
	rateLimitResetIdentifier string
	rateLimitResetPrefix     string
	rateLimitResetYes        bool
	rateLimitResetDryRun     bool
)

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the gateway's rate limit windows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		query, err := resetQuery(rateLimitResetAll, rateLimitResetIdentifier, rateLimitResetPrefix, rateLimitResetYes, rateLimitResetDryRun)
		if err != nil {
			return err
		}

		gw, err := gatewayFor(cmd)
		if err != nil {
			return err
		}
		var result handlers.RateLimitReset
		if err := gw.do(commandContext(cmd), http.MethodDelete, "/rate-limits", query, &result); err != nil {
			return err
		}

		action := "reset"
		if result.DryRun {
			action = "would reset"
		}
		entries := make([]output.KeyValue, 0, len(result.Matched))
		for _, id := range result.Matched {
			entries = append(entries, output.KeyValue{Key: id, Value: action})
		}
		view := output.EntriesView("Rate Limit Reset", entries)
		view.Footer = fmt.Sprintf("%d window(s) matched", len(result.Matched))
		return render(cmd, "rate-limit.reset", view)
	},
}

// resetQuery validates the selector flags and encodes them for the gateway.
func resetQuery(all bool, identifier, prefix string, yes, dryRun bool) (url.Values, error) {
	identifier = strings.TrimSpace(identifier)
	prefix = strings.TrimSpace(prefix)

	selectors := 0
	for _, set := range []bool{all, identifier != "", prefix != ""} {
		if set {
			selectors++
		}
	}
	if selectors != 1 {
		return nil, errors.New("specify exactly one of --all, --identifier, or --prefix")
	}
	if all && !yes && !dryRun {
		return nil, errors.New("--all requires --yes (or use --dry-run)")
	}

	query := url.Values{}
	switch {
	case all:
		query.Set("all", "true")
	case identifier != "":
		query.Set("identifier", identifier)
	default:
		query.Set("prefix", prefix)
	}
	if dryRun {
		query.Set("dry_run", "true")
	}
	return query, nil
}

func init() {
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetAll, "all", false, "Reset every identifier")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetIdentifier, "identifier", "", "Reset one identifier (exact match)")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetPrefix, "prefix", "", "Reset identifiers with matching prefix")
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetYes, "yes", false, "Confirm destructive reset")
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetDryRun, "dry-run", false, "Show what would be reset")
	addGatewayFlag(rateLimitResetCmd)
	addOutputFlags(rateLimitResetCmd)
}
