package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/digitalplanet/shopclient/internal/core"
	"github.com/digitalplanet/shopclient/internal/output"
)

// sendAndRender runs call in a session and renders its response as name.
func sendAndRender(cmd *cobra.Command, name string, call func(ctx context.Context, s *clientSession) (*core.Response, error)) error {
	return withSession(cmd, func(ctx context.Context, s *clientSession) error {
		resp, err := call(ctx, s)
		if err != nil {
			return err
		}
		return render(cmd, name, output.ResponseView(resp))
	})
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or manage the signed-in user's profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAndRender(cmd, "profile", func(ctx context.Context, s *clientSession) (*core.Response, error) {
			return s.client.User.Profile(ctx)
		})
	},
}

var (
	profileUpdateData string
	profileUpdateFile string
)

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Replace profile fields from a JSON object",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := readObject(profileUpdateData, profileUpdateFile)
		if err != nil {
			return err
		}
		return sendAndRender(cmd, "profile-update", func(ctx context.Context, s *clientSession) (*core.Response, error) {
			return s.client.User.UpdateProfile(ctx, fields)
		})
	},
}

var (
	changeOldPassword string
	changeNewPassword string
)

var profilePasswordCmd = &cobra.Command{
	Use:   "change-password",
	Short: "Change the account password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAndRender(cmd, "change-password", func(ctx context.Context, s *clientSession) (*core.Response, error) {
			return s.client.User.ChangePassword(ctx, changeOldPassword, changeNewPassword)
		})
	},
}

var profileOrdersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List the user's order history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAndRender(cmd, "profile-orders", func(ctx context.Context, s *clientSession) (*core.Response, error) {
			return s.client.User.Orders(ctx)
		})
	},
}

var profileFavoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "List favourite products",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAndRender(cmd, "favorites", func(ctx context.Context, s *clientSession) (*core.Response, error) {
			return s.client.User.Favorites(ctx)
		})
	},
}

// readObject decodes a JSON object from --data or --data-file.
func readObject(data, file string) (map[string]any, error) {
	raw, err := readRequestBody(data, file)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("a JSON object is required (--data or --data-file)")
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("body must be a JSON object: %w", err)
	}
	return obj, nil
}

func addDataFlags(cmd *cobra.Command, data, file *string) {
	cmd.Flags().StringVarP(data, "data", "d", "", "JSON object")
	cmd.Flags().StringVar(file, "data-file", "", "Read the JSON object from a file (- for stdin)")
}

func init() {
	addDataFlags(profileUpdateCmd, &profileUpdateData, &profileUpdateFile)

	profilePasswordCmd.Flags().StringVar(&changeOldPassword, "old", "", "Current password")
	profilePasswordCmd.Flags().StringVar(&changeNewPassword, "new", "", "New password")

	for _, c := range []*cobra.Command{profileCmd, profileUpdateCmd, profilePasswordCmd, profileOrdersCmd, profileFavoritesCmd} {
		addOutputFlags(c)
	}
	profileCmd.AddCommand(profileUpdateCmd)
	profileCmd.AddCommand(profilePasswordCmd)
	profileCmd.AddCommand(profileOrdersCmd)
	profileCmd.AddCommand(profileFavoritesCmd)
	rootCmd.AddCommand(profileCmd)
}
