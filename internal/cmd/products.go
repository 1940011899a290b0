package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/digitalplanet/shopclient/internal/core"
)

var (
	productsCategory string
	productsPage     int
	productsLimit    int
	productsSort     string
	productsParams   []string
)

var productsCmd = &cobra.Command{
	Use:     "products",
	Aliases: []string{"product"},
	Short:   "Browse the catalogue",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := productParams()
		if err != nil {
			return err
		}
		return sendAndRender(cmd, "products", func(ctx context.Context, s *clientSession) (*core.Response, error) {
			return s.client.Products.List(ctx, params)
		})
	},
}

var productsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAndRender(cmd, "product-"+args[0], func(ctx context.Context, s *clientSession) (*core.Response, error) {
			return s.client.Products.Detail(ctx, args[0])
		})
	},
}

var productsCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List product categories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAndRender(cmd, "categories", func(ctx context.Context, s *clientSession) (*core.Response, error) {
			return s.client.Products.Categories(ctx)
		})
	},
}

var productsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search products",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return sendAndRender(cmd, "search", func(ctx context.Context, s *clientSession) (*core.Response, error) {
			return s.client.Products.Search(ctx, query)
		})
	},
}

// productParams merges the typed list flags with free-form --param pairs.
func productParams() (map[string]string, error) {
	params := map[string]string{}
	if v := strings.TrimSpace(productsCategory); v != "" {
		params["category"] = v
	}
	if productsPage > 0 {
		params["page"] = strconv.Itoa(productsPage)
	}
	if productsLimit > 0 {
		params["limit"] = strconv.Itoa(productsLimit)
	}
	if v := strings.TrimSpace(productsSort); v != "" {
		params["sort"] = v
	}
	extra, err := parseParams(productsParams)
	if err != nil {
		return nil, err
	}
	for k, v := range extra {
		params[k] = v
	}
	return params, nil
}

func parseParams(values []string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, raw := range values {
		key, value, ok := strings.Cut(raw, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q (use key=value)", raw)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}

func init() {
	productsCmd.Flags().StringVar(&productsCategory, "category", "", "Filter by category")
	productsCmd.Flags().IntVar(&productsPage, "page", 0, "Page number")
	productsCmd.Flags().IntVar(&productsLimit, "limit", 0, "Page size")
	productsCmd.Flags().StringVar(&productsSort, "sort", "", "Sort order")
	productsCmd.Flags().StringArrayVar(&productsParams, "param", nil, "Extra query parameter (key=value)")

	for _, c := range []*cobra.Command{productsCmd, productsShowCmd, productsCategoriesCmd, productsSearchCmd} {
		addOutputFlags(c)
	}
	productsCmd.AddCommand(productsShowCmd)
	productsCmd.AddCommand(productsCategoriesCmd)
	productsCmd.AddCommand(productsSearchCmd)
	rootCmd.AddCommand(productsCmd)
}
