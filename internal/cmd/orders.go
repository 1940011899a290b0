package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/digitalplanet/shopclient/internal/core"
)

var ordersCmd = &cobra.Command{
	Use:     "orders",
	Aliases: []string{"order"},
	Short:   "Place and track orders",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAndRender(cmd, "orders", func(ctx context.Context, s *clientSession) (*core.Response, error) {
			return s.client.Orders.List(ctx)
		})
	},
}

var (
	orderCreateData  string
	orderCreateFile  string
	orderCreateItems []string
)

var ordersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Place an order from a JSON object or --item pairs",
	Long: `Place an order. Pass the full order as JSON, or list items as
product-id:quantity pairs which become {"items":[{"productId","quantity"}]}.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		order, err := buildOrder(orderCreateData, orderCreateFile, orderCreateItems)
		if err != nil {
			return err
		}
		return sendAndRender(cmd, "order-create", func(ctx context.Context, s *clientSession) (*core.Response, error) {
			return s.client.Orders.Create(ctx, order)
		})
	},
}

var ordersShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAndRender(cmd, "order-"+args[0], func(ctx context.Context, s *clientSession) (*core.Response, error) {
			return s.client.Orders.Detail(ctx, args[0])
		})
	},
}

var ordersCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel an order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAndRender(cmd, "order-cancel", func(ctx context.Context, s *clientSession) (*core.Response, error) {
			return s.client.Orders.Cancel(ctx, args[0])
		})
	},
}

// buildOrder returns the JSON object when given, else an items list.
func buildOrder(data, file string, items []string) (map[string]any, error) {
	if strings.TrimSpace(data) != "" || strings.TrimSpace(file) != "" {
		if len(items) > 0 {
			return nil, fmt.Errorf("--item cannot be combined with --data or --data-file")
		}
		return readObject(data, file)
	}

	lines := make([]any, 0, len(items))
	for _, raw := range items {
		id, qty, ok := strings.Cut(raw, ":")
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("invalid item %q (use product-id:quantity)", raw)
		}
		quantity := 1
		if ok {
			q, err := parseQuantity(strings.TrimSpace(qty))
			if err != nil {
				return nil, err
			}
			quantity = q
		}
		lines = append(lines, map[string]any{"productId": id, "quantity": quantity})
	}
	if len(lines) == 0 {
		return map[string]any{}, nil
	}
	return map[string]any{"items": lines}, nil
}

var paymentCmd = &cobra.Command{
	Use:   "payment",
	Short: "Create and verify payments",
}

var paymentCreateCmd = &cobra.Command{
	Use:   "create <order-id> <amount> <method>",
	Short: "Start a payment; amount has at most two decimals",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAndRender(cmd, "payment-create", func(ctx context.Context, s *clientSession) (*core.Response, error) {
			return s.client.Payment.Create(ctx, args[0], args[1], args[2])
		})
	},
}

var paymentVerifyCmd = &cobra.Command{
	Use:   "verify <payment-id>",
	Short: "Verify a payment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAndRender(cmd, "payment-verify", func(ctx context.Context, s *clientSession) (*core.Response, error) {
			return s.client.Payment.Verify(ctx, args[0])
		})
	},
}

var paymentMethodsCmd = &cobra.Command{
	Use:   "methods",
	Short: "List payment methods",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAndRender(cmd, "payment-methods", func(ctx context.Context, s *clientSession) (*core.Response, error) {
			return s.client.Payment.Methods(ctx)
		})
	},
}

func init() {
	addDataFlags(ordersCreateCmd, &orderCreateData, &orderCreateFile)
	ordersCreateCmd.Flags().StringArrayVar(&orderCreateItems, "item", nil, "Order line as product-id:quantity (repeatable)")

	for _, c := range []*cobra.Command{ordersCmd, ordersCreateCmd, ordersShowCmd, ordersCancelCmd, paymentCreateCmd, paymentVerifyCmd, paymentMethodsCmd} {
		addOutputFlags(c)
	}
	ordersCmd.AddCommand(ordersCreateCmd)
	ordersCmd.AddCommand(ordersShowCmd)
	ordersCmd.AddCommand(ordersCancelCmd)
	rootCmd.AddCommand(ordersCmd)

	paymentCmd.AddCommand(paymentCreateCmd)
	paymentCmd.AddCommand(paymentVerifyCmd)
	paymentCmd.AddCommand(paymentMethodsCmd)
	rootCmd.AddCommand(paymentCmd)
}
