package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/digitalplanet/shopclient/internal/core"
	"github.com/digitalplanet/shopclient/internal/core/store"
	"github.com/digitalplanet/shopclient/internal/output"
)

var (
	storeListKey    string
	storeListPrefix string
	storeListReveal bool
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect the local credential store",
}

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored keys (token values are masked)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig(cmd)
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		kv, err := openKV(ctx, cfg)
		if err != nil {
			return err
		}
		defer kv.Close() // nolint:errcheck // best-effort cleanup

		query := store.Query{Key: strings.TrimSpace(storeListKey), Prefix: strings.TrimSpace(storeListPrefix)}
		if query.Key == "" && query.Prefix == "" {
			query.All = true
		}
		entries, err := kv.List(ctx, query)
		if err != nil {
			return err
		}
		return render(cmd, "store.list", output.EntriesView("Stored Keys", displayEntries(entries, storeListReveal)))
	},
}

// secretKeys hold credentials that are masked unless --reveal is set.
var secretKeys = map[string]struct{}{
	core.KeyAccessToken:  {},
	core.KeyRefreshToken: {},
	core.KeyCSRFToken:    {},
}

func displayEntries(entries []store.Entry, reveal bool) []output.KeyValue {
	out := make([]output.KeyValue, 0, len(entries))
	for _, entry := range entries {
		value := entry.Value
		if _, secret := secretKeys[entry.Key]; secret && !reveal {
			value = output.MaskToken(value)
		}
		out = append(out, output.KeyValue{Key: entry.Key, Value: value, UpdatedAt: entry.UpdatedAt})
	}
	return out
}

func init() {
	storeListCmd.Flags().StringVar(&storeListKey, "key", "", "Show one key")
	storeListCmd.Flags().StringVar(&storeListPrefix, "prefix", "", "List keys with matching prefix")
	storeListCmd.Flags().BoolVar(&storeListReveal, "reveal", false, "Print token values unmasked")
	addOutputFlags(storeListCmd)
	storeCmd.AddCommand(storeListCmd)
	rootCmd.AddCommand(storeCmd)
}
