package cmd

import (
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/digitalplanet/shopclient/internal/core"
	"github.com/digitalplanet/shopclient/internal/output"
)

var rateLimitListPrefix string

var rateLimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List live rate limit windows",
	Long: `List the sliding windows held by the running gateway. Entries older than
the configured window are pruned before display.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := gatewayFor(cmd)
		if err != nil {
			return err
		}

		var states []core.RateLimitState
		if err := gw.do(commandContext(cmd), http.MethodGet, "/rate-limits", nil, &states); err != nil {
			return err
		}
		return render(cmd, "rate-limit.list", output.RateLimitView(filterStates(states, rateLimitListPrefix)))
	},
}

// filterStates keeps non-empty windows whose identifier has prefix.
func filterStates(states []core.RateLimitState, prefix string) []core.RateLimitState {
	prefix = strings.TrimSpace(prefix)
	out := make([]core.RateLimitState, 0, len(states))
	for _, state := range states {
		if state.Count == 0 {
			continue
		}
		if prefix != "" && !strings.HasPrefix(state.Identifier, prefix) {
			continue
		}
		out = append(out, state)
	}
	return out
}

func init() {
	rateLimitListCmd.Flags().StringVar(&rateLimitListPrefix, "prefix", "", "List identifiers with matching prefix (e.g. user:)")
	addGatewayFlag(rateLimitListCmd)
	addOutputFlags(rateLimitListCmd)
}
