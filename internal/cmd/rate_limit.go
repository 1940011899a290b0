package cmd

import (
	"github.com/spf13/cobra"
)

var rateLimitCmd = &cobra.Command{
	Use:   "rate-limit",
	Short: "Inspect or reset the gateway's rate limit windows",
	Long: `Rate limit windows live in memory for the lifetime of one process and are
never persisted. These commands query the long-running gateway started with
'shopclient serve'.`,
}

func init() {
	rateLimitCmd.AddCommand(rateLimitListCmd)
	rateLimitCmd.AddCommand(rateLimitResetCmd)
	rootCmd.AddCommand(rateLimitCmd)
}
