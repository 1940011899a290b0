package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/digitalplanet/shopclient/internal/config"
	apperrors "github.com/digitalplanet/shopclient/internal/errors"
)

// gatewayClient talks to a running `shopclient serve` process.
type gatewayClient struct {
	baseURL string
	client  *http.Client
}

func newGatewayClient(addr string) *gatewayClient {
	baseURL := strings.TrimRight(strings.TrimSpace(addr), "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &gatewayClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// gatewayFor resolves --gateway, falling back to the configured server address.
func gatewayFor(cmd *cobra.Command) (*gatewayClient, error) {
	if addr, _ := cmd.Flags().GetString("gateway"); strings.TrimSpace(addr) != "" {
		return newGatewayClient(addr), nil
	}
	cfg, err := currentConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newGatewayClient(gatewayAddr(cfg.Server)), nil
}

func gatewayAddr(cfg config.ServerConfig) string {
	host := strings.TrimSpace(cfg.Host)
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(cfg.Port))
}

func (c *gatewayClient) do(ctx context.Context, method, path string, query url.Values, target any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.NewTransportError(fmt.Errorf("gateway %s unreachable (is `shopclient serve` running?): %w", c.baseURL, err))
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode >= 400 {
		var errResp apperrors.HTTPErrorResponse
		message := ""
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			message = errResp.Error.Message
		}
		return apperrors.FromStatus(resp.StatusCode, message, 0)
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("parse gateway response: %w", err)
		}
	}
	return nil
}

func addGatewayFlag(cmd *cobra.Command) {
	cmd.Flags().String("gateway", "", "Gateway address (default from server.host/server.port)")
}
