package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/digitalplanet/shopclient/internal/core"
	"github.com/digitalplanet/shopclient/internal/output"
)

var (
	requestData     string
	requestDataFile string
	requestHeaders  []string
)

var requestCmd = &cobra.Command{
	Use:   "request <method> <path>",
	Short: "Send a raw request through the pipeline",
	Long: `Send an arbitrary request to the storefront API.

The body is screened, escaped, rate limited, and authenticated exactly like
the typed commands.

Examples:
  shopclient request GET /products?page=2
  shopclient request POST /cart/add --data '{"productId":"p1","quantity":1}'
  shopclient request PUT /user/profile --data-file profile.json -o json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		method, ok := core.ParseMethod(args[0])
		if !ok {
			return fmt.Errorf("unsupported method %q (use GET, POST, PUT, DELETE, PATCH)", args[0])
		}

		body, err := readRequestBody(requestData, requestDataFile)
		if err != nil {
			return err
		}
		headers, err := parseHeaders(requestHeaders)
		if err != nil {
			return err
		}

		req := core.Request{URL: args[1], Method: method, Headers: headers}
		if body != nil {
			req.Body = body
		}

		return withSession(cmd, func(ctx context.Context, s *clientSession) error {
			resp, err := s.pipeline.Send(ctx, req)
			if err != nil {
				return err
			}
			return render(cmd, "request", output.ResponseView(resp))
		})
	},
}

// readRequestBody returns the JSON body from --data or --data-file ("-" reads stdin).
func readRequestBody(data, file string) (json.RawMessage, error) {
	data, file = strings.TrimSpace(data), strings.TrimSpace(file)
	if data != "" && file != "" {
		return nil, fmt.Errorf("--data and --data-file are mutually exclusive")
	}

	var raw []byte
	switch {
	case data != "":
		raw = []byte(data)
	case file == "-":
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = content
	case file != "":
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read body file: %w", err)
		}
		raw = content
	default:
		return nil, nil
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("request body is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

// parseHeaders turns "Name: value" or "Name=value" pairs into a header map.
func parseHeaders(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(values))
	for _, raw := range values {
		name, value, ok := strings.Cut(raw, ":")
		if !ok {
			name, value, ok = strings.Cut(raw, "=")
		}
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q (use Name: value)", raw)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

func init() {
	requestCmd.Flags().StringVarP(&requestData, "data", "d", "", "JSON request body")
	requestCmd.Flags().StringVar(&requestDataFile, "data-file", "", "Read the JSON body from a file (- for stdin)")
	requestCmd.Flags().StringArrayVarP(&requestHeaders, "header", "H", nil, "Extra header (Name: value); hardening headers cannot be overridden")
	addOutputFlags(requestCmd)
	rootCmd.AddCommand(requestCmd)
}
