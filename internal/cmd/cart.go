package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/digitalplanet/shopclient/internal/core"
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Show or change the server-side cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAndRender(cmd, "cart", func(ctx context.Context, s *clientSession) (*core.Response, error) {
			return s.client.Cart.Get(ctx)
		})
	},
}

var cartAddCmd = &cobra.Command{
	Use:   "add <product-id> [quantity]",
	Short: "Add a product (quantity defaults to 1)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		quantity := 1
		if len(args) == 2 {
			q, err := parseQuantity(args[1])
			if err != nil {
				return err
			}
			quantity = q
		}
		return sendAndRender(cmd, "cart-add", func(ctx context.Context, s *clientSession) (*core.Response, error) {
			return s.client.Cart.Add(ctx, args[0], quantity)
		})
	},
}

var cartUpdateCmd = &cobra.Command{
	Use:   "update <item-id> <quantity>",
	Short: "Set an item's quantity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		quantity, err := parseQuantity(args[1])
		if err != nil {
			return err
		}
		return sendAndRender(cmd, "cart-update", func(ctx context.Context, s *clientSession) (*core.Response, error) {
			return s.client.Cart.Update(ctx, args[0], quantity)
		})
	},
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove <item-id>",
	Short: "Remove an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAndRender(cmd, "cart-remove", func(ctx context.Context, s *clientSession) (*core.Response, error) {
			return s.client.Cart.Remove(ctx, args[0])
		})
	},
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAndRender(cmd, "cart-clear", func(ctx context.Context, s *clientSession) (*core.Response, error) {
			return s.client.Cart.Clear(ctx)
		})
	},
}

func parseQuantity(raw string) (int, error) {
	q, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("quantity must be an integer: %q", raw)
	}
	return q, nil
}

func init() {
	for _, c := range []*cobra.Command{cartCmd, cartAddCmd, cartUpdateCmd, cartRemoveCmd, cartClearCmd} {
		addOutputFlags(c)
	}
	cartCmd.AddCommand(cartAddCmd)
	cartCmd.AddCommand(cartUpdateCmd)
	cartCmd.AddCommand(cartRemoveCmd)
	cartCmd.AddCommand(cartClearCmd)
	rootCmd.AddCommand(cartCmd)
}
