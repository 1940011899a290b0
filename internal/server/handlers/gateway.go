package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/digitalplanet/shopclient/internal/core"
	"github.com/digitalplanet/shopclient/internal/core/tokens"
	apperrors "github.com/digitalplanet/shopclient/internal/errors"
	"github.com/digitalplanet/shopclient/internal/output"
)

const maxGatewayBody = 1 << 20

// Sender forwards one request through the request pipeline.
type Sender interface {
	Send(ctx context.Context, req core.Request) (*core.Response, error)
}

// SessionReader exposes the stored credential state.
type SessionReader interface {
	Credentials() core.Credentials
	UserID() string
	Identity(ctx context.Context) string
}

// LimiterControl lists and resets the live rate limit windows.
type LimiterControl interface {
	Snapshot() []core.RateLimitState
	Reset(identifier string)
}

// RateLimitReset reports the windows cleared by ResetRateLimitsHandler.
type RateLimitReset struct {
	Matched []string `json:"matched"`
	DryRun  bool     `json:"dry_run"`
}

// Gateway forwards /api/* calls to the storefront through the pipeline, so
// local callers get screening, rate limiting, and token refresh without
// handling credentials themselves.
type Gateway struct {
	Sender  Sender
	Session SessionReader
	Limiter LimiterControl
}

// Forward relays the request below the /api prefix.
func (g *Gateway) Forward(w http.ResponseWriter, r *http.Request) {
	method, ok := core.ParseMethod(r.Method)
	if !ok {
		respondWithError(w, r, apperrors.NewMethodNotAllowedError(fmt.Sprintf("method %s is not forwarded", r.Method)))
		return
	}

	target := "/" + strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxGatewayBody+1))
	if err != nil {
		respondWithError(w, r, apperrors.NewValidationError([]string{"request body could not be read"}))
		return
	}
	if len(body) > maxGatewayBody {
		respondWithError(w, r, apperrors.NewValidationError([]string{"request body exceeds 1 MiB"}))
		return
	}

	req := core.Request{URL: target, Method: method}
	if len(strings.TrimSpace(string(body))) > 0 {
		req.Body = json.RawMessage(body)
	}

	resp, err := g.Sender.Send(r.Context(), req)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	if resp.RequestID != "" {
		w.Header().Set("X-Upstream-Request-ID", resp.RequestID)
	}
	if !resp.IsJSON() {
		contentType := resp.ContentType
		if contentType == "" {
			contentType = "text/plain; charset=utf-8"
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(resp.StatusCode)
		_, _ = io.WriteString(w, resp.Text)
		return
	}
	writeJSON(w, resp.StatusCode, resp.Data)
}

// SessionHandler reports the stored session with tokens masked.
func (g *Gateway) SessionHandler(w http.ResponseWriter, r *http.Request) {
	if g.Session == nil {
		writeJSON(w, http.StatusOK, output.CredentialStatus{Identity: core.AnonymousIdentity})
		return
	}

	creds := g.Session.Credentials()
	status := output.NewCredentialStatus(creds, g.Session.UserID(), tokens.SubjectOf(creds.AccessToken), g.Session.Identity(r.Context()))
	writeJSON(w, http.StatusOK, status)
}

// RateLimitsHandler reports the live limiter windows.
func (g *Gateway) RateLimitsHandler(w http.ResponseWriter, r *http.Request) {
	states := []core.RateLimitState{}
	if g.Limiter != nil {
		if snapshot := g.Limiter.Snapshot(); snapshot != nil {
			states = snapshot
		}
	}
	writeJSON(w, http.StatusOK, states)
}

// ResetRateLimitsHandler clears the windows selected by exactly one of
// ?identifier=, ?prefix=, or ?all=true. With ?dry_run=true nothing is cleared.
func (g *Gateway) ResetRateLimitsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	identifier := strings.TrimSpace(q.Get("identifier"))
	prefix := strings.TrimSpace(q.Get("prefix"))
	all := q.Get("all") == "true"

	selectors := 0
	for _, set := range []bool{all, identifier != "", prefix != ""} {
		if set {
			selectors++
		}
	}
	if selectors != 1 {
		respondWithError(w, r, apperrors.NewValidationError([]string{"specify exactly one of identifier, prefix, or all"}))
		return
	}

	result := RateLimitReset{Matched: []string{}, DryRun: q.Get("dry_run") == "true"}
	if g.Limiter == nil {
		writeJSON(w, http.StatusOK, result)
		return
	}
	for _, state := range g.Limiter.Snapshot() {
		switch {
		case all,
			identifier != "" && state.Identifier == identifier,
			prefix != "" && strings.HasPrefix(state.Identifier, prefix):
			result.Matched = append(result.Matched, state.Identifier)
		}
	}
	if !result.DryRun {
		for _, id := range result.Matched {
			g.Limiter.Reset(id)
		}
	}
	writeJSON(w, http.StatusOK, result)
}
