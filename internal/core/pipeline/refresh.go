package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/digitalplanet/shopclient/internal/errors"
	"github.com/digitalplanet/shopclient/internal/metrics"
)

// RefreshPath is the token exchange endpoint relative to the base URL.
const RefreshPath = "/auth/refresh"

const refreshKey = "refresh"

// recover401 returns the access token to retry with after a 401.
//
// If another caller already replaced usedToken, the current token is
// returned without a new exchange. Otherwise the caller joins the single
// in-flight refresh, starting it if none is running.
func (p *Pipeline) recover401(ctx context.Context, usedToken, requestID string) (string, error) {
	current := p.accessToken()
	if current != "" && current != usedToken {
		return current, nil
	}

	if p.Tokens == nil || p.Tokens.RefreshToken() == "" {
		return "", p.authFailure(ctx, apperrors.NewAuthenticationError("access token rejected and no refresh token is available", nil).WithRequestID(requestID))
	}

	// The exchange runs detached from this caller's cancellation so that
	// every waiter observes the same outcome.
	detached := context.WithoutCancel(ctx)
	results := p.refresh.DoChan(refreshKey, func() (any, error) {
		return p.exchange(detached)
	})

	select {
	case res := <-results:
		if res.Err != nil {
			return "", res.Err
		}
		token, _ := res.Val.(string)
		return token, nil
	case <-ctx.Done():
		return "", apperrors.NewTransportError(ctx.Err()).WithRequestID(requestID)
	}
}

// exchange performs the refresh call. It runs at most once at a time.
func (p *Pipeline) exchange(ctx context.Context) (string, error) {
	refreshToken := ""
	if p.Tokens != nil {
		refreshToken = p.Tokens.RefreshToken()
	}
	if refreshToken == "" {
		return "", p.refreshFailed(ctx, "no refresh token is available", nil)
	}

	target, _, err := p.resolveURL(RefreshPath)
	if err != nil {
		return "", p.refreshFailed(ctx, "refresh endpoint unavailable", err)
	}

	payload, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return "", p.refreshFailed(ctx, "encode refresh request", err)
	}

	timeout := p.Config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	callCtx, cancel := withTimeout(ctx, timeout)
	if cancel != nil {
		defer cancel()
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return "", p.refreshFailed(ctx, "build refresh request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("X-Request-ID", p.requestID())

	p.info("Refreshing access token")

	resp, err := p.client().Do(req)
	if err != nil {
		return "", p.refreshFailed(ctx, "refresh request failed", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", p.refreshFailed(ctx, "read refresh response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", p.refreshFailed(ctx, serverMessage(body, fmt.Sprintf("refresh rejected with status %d", resp.StatusCode)), nil)
	}

	access, refresh := parseTokenPair(body)
	if access == "" {
		return "", p.refreshFailed(ctx, "refresh response carried no access token", nil)
	}

	if err := p.Tokens.SetTokens(ctx, access, refresh); err != nil {
		p.warn("Refreshed tokens could not be persisted", zap.Error(err))
	}
	metrics.SetAuthenticated(true)
	metrics.RecordRefresh(true)
	p.info("Access token refreshed")
	return access, nil
}

func (p *Pipeline) refreshFailed(ctx context.Context, message string, cause error) error {
	metrics.RecordRefresh(false)
	p.warn("Token refresh failed", zap.String("reason", message), zap.Error(cause))
	return p.authFailure(ctx, apperrors.NewAuthenticationError("token refresh failed: "+message, cause))
}

// parseTokenPair reads token/accessToken and refreshToken from the top level
// or from a "data" envelope.
func parseTokenPair(body []byte) (string, string) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", ""
	}
	if data, ok := payload["data"].(map[string]any); ok {
		if access, refresh := tokenFields(data); access != "" {
			return access, refresh
		}
	}
	return tokenFields(payload)
}

func tokenFields(m map[string]any) (string, string) {
	access := stringField(m, "token")
	if access == "" {
		access = stringField(m, "accessToken")
	}
	return access, stringField(m, "refreshToken")
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
