package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Inspect or manage stored credentials",
}

var tokenShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored session with tokens masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *clientSession) error {
			return render(cmd, "token", sessionView(ctx, s))
		})
	},
}

var tokenSetCmd = &cobra.Command{
	Use:   "set <access-token> [refresh-token]",
	Short: "Store tokens obtained elsewhere",
	Long: `Store an access token, and optionally a refresh token. Omitting the
refresh token keeps the stored one.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		access := strings.TrimSpace(args[0])
		if access == "" {
			return fmt.Errorf("access token is required")
		}
		refresh := ""
		if len(args) == 2 {
			refresh = strings.TrimSpace(args[1])
		}

		return withSession(cmd, func(ctx context.Context, s *clientSession) error {
			if err := s.tokens.SetTokens(ctx, access, refresh); err != nil {
				return err
			}
			return render(cmd, "token", sessionView(ctx, s))
		})
	},
}

var tokenClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove stored tokens without calling the storefront",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *clientSession) error {
			if err := s.tokens.ClearTokens(ctx); err != nil {
				return err
			}
			if err := s.tokens.ResetSession(ctx); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Credentials cleared")
			return nil
		})
	},
}

func init() {
	addOutputFlags(tokenShowCmd)
	tokenCmd.AddCommand(tokenShowCmd)
	tokenCmd.AddCommand(tokenSetCmd)
	tokenCmd.AddCommand(tokenClearCmd)
	rootCmd.AddCommand(tokenCmd)
}
