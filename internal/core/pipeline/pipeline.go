// Package pipeline sends storefront API requests: pre-flight screening,
// sanitization, client-side rate limiting, header hardening, a bounded
// transport call, and a single refresh-and-retry on 401.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/digitalplanet/shopclient/internal/core"
	"github.com/digitalplanet/shopclient/internal/core/engine"
	"github.com/digitalplanet/shopclient/internal/core/validate"
	apperrors "github.com/digitalplanet/shopclient/internal/errors"
	"github.com/digitalplanet/shopclient/internal/metrics"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 10 << 20
)

// Config is supplied by the host application.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RetryAttempts is accepted for parity only. The pipeline performs no
	// retries beyond the single post-refresh retry.
	RetryAttempts int
	Debug         bool
}

// Doer performs HTTP round trips. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Credentials is the token state the pipeline reads and updates.
type Credentials interface {
	AccessToken() string
	RefreshToken() string
	SetTokens(ctx context.Context, access, refresh string) error
	ClearTokens(ctx context.Context) error
	CSRFToken(ctx context.Context) (string, error)
}

// IdentityResolver yields the rate limiting identifier for the current caller.
type IdentityResolver func(ctx context.Context) string

// AuthFailureFunc is notified when credentials are terminally rejected, so
// the host can send the user back to login.
type AuthFailureFunc func(ctx context.Context, err error)

// Pipeline is safe for concurrent use. Construct one per process and share it.
type Pipeline struct {
	Config  Config
	HTTP    Doer
	Tokens  Credentials
	Limiter *engine.RateLimiter
	// Filter screens body strings. Nil means validate.NopFilter.
	Filter validate.Filter
	// RawFields name body keys sent verbatim, such as passwords.
	RawFields     []string
	Identity      IdentityResolver
	OnAuthFailure AuthFailureFunc
	Logger        *logging.Logger
	Clock         func() time.Time
	NewRequestID  func() string

	refresh singleflight.Group
}

// New returns a pipeline with the default heuristic filter and a limiter of
// 100 requests per minute. Fields may be adjusted before first use.
func New(cfg Config, tokens Credentials) *Pipeline {
	return &Pipeline{
		Config:  cfg,
		Tokens:  tokens,
		Limiter: engine.NewRateLimiter(engine.DefaultLimit),
		Filter:  validate.HeuristicFilter{AllowEscapableMarkup: true},
	}
}

// hardeningHeaders are always sent and cannot be overridden by callers.
var hardeningHeaders = map[string]string{
	"Content-Type":           "application/json",
	"Accept":                 "application/json",
	"X-Requested-With":       "XMLHttpRequest",
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "DENY",
	"X-XSS-Protection":       "1; mode=block",
}

// Send runs req through the pipeline and returns the decoded 2xx response.
// Failures are *errors.RequestError values.
func (p *Pipeline) Send(ctx context.Context, req core.Request) (*core.Response, error) {
	if p == nil {
		return nil, errors.New("request pipeline is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	requestID := p.requestID()

	prepared, err := p.prepare(req)
	if err != nil {
		var reqErr *apperrors.RequestError
		if errors.As(err, &reqErr) {
			metrics.RecordValidationRejection(len(reqErr.Messages))
			return nil, reqErr.WithRequestID(requestID)
		}
		return nil, err
	}

	identity := p.identity(ctx)
	if allowed, wait := p.Limiter.Allow(identity); !allowed {
		metrics.RecordRateLimited("local")
		p.debug("Request rejected by local rate limiter",
			zap.String("identity", identity),
			zap.Duration("wait", wait),
			zap.String("request_id", requestID))
		return nil, apperrors.NewLocalRateLimitError(identity, wait).WithRequestID(requestID)
	}

	usedToken := p.accessToken()
	resp, err := p.do(ctx, prepared, usedToken, requestID)
	if err != nil {
		return nil, err
	}

	if resp.status == http.StatusUnauthorized {
		newToken, err := p.recover401(ctx, usedToken, requestID)
		if err != nil {
			return nil, err
		}

		resp, err = p.do(ctx, prepared, newToken, requestID)
		if err != nil {
			return nil, err
		}
		if resp.status == http.StatusUnauthorized {
			return nil, p.authFailure(ctx, apperrors.NewAuthenticationError(serverMessage(resp.body, "credentials rejected after refresh"), nil).WithRequestID(requestID))
		}
	}

	return p.handle(resp, identity, prepared, requestID)
}

// preparedRequest is the sanitized, validated copy of a caller request.
type preparedRequest struct {
	method  core.Method
	target  string
	path    string
	headers map[string]string
	payload []byte
}

func (p *Pipeline) prepare(req core.Request) (*preparedRequest, error) {
	result := core.Valid()

	method, ok := core.ParseMethod(string(req.Method))
	if strings.TrimSpace(string(req.Method)) == "" {
		method, ok = core.MethodGet, true
	}
	if !ok {
		result.Merge(core.Invalid(fmt.Sprintf("method %s is not allowed", method)))
	}

	target, path, err := p.resolveURL(req.URL)
	if err != nil {
		result.Merge(core.Invalid(err.Error()))
	}

	raw := p.rawFields()
	result.Merge(screenBody(p.filter(), req.Body, raw))

	if !result.Valid {
		return nil, apperrors.NewValidationError(result.Errors)
	}

	body, err := sanitizeBody(req.Body, raw)
	if err != nil {
		p.warn("Request body could not be sanitized, sending it unmodified",
			zap.String("url", target),
			zap.Error(err))
		body = req.Body
	}

	payload, err := encodeBody(body)
	if err != nil {
		return nil, apperrors.NewValidationError([]string{"request body is not JSON serializable: " + err.Error()})
	}

	return &preparedRequest{
		method:  method,
		target:  target,
		path:    path,
		headers: req.Headers,
		payload: payload,
	}, nil
}

func (p *Pipeline) resolveURL(raw string) (string, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", errors.New("url is required")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("url %q is not parseable", raw)
	}
	if parsed.IsAbs() {
		if parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return "", "", fmt.Errorf("url %q must be http or https", raw)
		}
		return parsed.String(), parsed.Path, nil
	}

	base := strings.TrimRight(strings.TrimSpace(p.Config.BaseURL), "/")
	if base == "" {
		return "", "", fmt.Errorf("relative url %q requires a base url", raw)
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	joined, err := url.Parse(base + raw)
	if err != nil || joined.Host == "" {
		return "", "", fmt.Errorf("url %q is not parseable", base+raw)
	}
	return joined.String(), parsed.Path, nil
}

// rawResponse is a fully read HTTP response.
type rawResponse struct {
	status int
	header http.Header
	body   []byte
}

func (p *Pipeline) do(ctx context.Context, prepared *preparedRequest, token, requestID string) (*rawResponse, error) {
	timeout := p.Config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	callCtx, cancel := withTimeout(ctx, timeout)
	if cancel != nil {
		defer cancel()
	}

	var body io.Reader
	if prepared.payload != nil {
		body = bytes.NewReader(prepared.payload)
	}
	httpReq, err := http.NewRequestWithContext(callCtx, string(prepared.method), prepared.target, body)
	if err != nil {
		return nil, apperrors.NewTransportError(err).WithRequestID(requestID)
	}

	for key, value := range prepared.headers {
		httpReq.Header.Set(key, value)
	}
	for key, value := range hardeningHeaders {
		httpReq.Header.Set(key, value)
	}
	httpReq.Header.Set("X-Request-ID", requestID)
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	} else {
		httpReq.Header.Del("Authorization")
	}
	if prepared.method.Mutating() && p.Tokens != nil {
		csrf, err := p.Tokens.CSRFToken(ctx)
		if err != nil {
			p.warn("CSRF token unavailable", zap.Error(err), zap.String("request_id", requestID))
		} else {
			httpReq.Header.Set("X-CSRF-Token", csrf)
		}
	}

	started := p.now()
	p.debug("Sending request",
		zap.String("method", string(prepared.method)),
		zap.String("url", prepared.target),
		zap.String("request_id", requestID))

	resp, err := p.client().Do(httpReq)
	if err != nil {
		return nil, p.transportError(ctx, callCtx, timeout, err, requestID)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, p.transportError(ctx, callCtx, timeout, err, requestID)
	}

	elapsed := p.now().Sub(started)
	metrics.RecordRequest(string(prepared.method), resp.StatusCode, elapsed)
	p.debug("Received response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed),
		zap.String("request_id", requestID))

	return &rawResponse{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

func (p *Pipeline) transportError(parent, callCtx context.Context, timeout time.Duration, err error, requestID string) error {
	timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded)
	if timedOut && parent.Err() == nil {
		metrics.RecordError(string(apperrors.KindTimeout), 0)
		return apperrors.NewTimeoutError(timeout, err).WithRequestID(requestID)
	}
	metrics.RecordError(string(apperrors.KindTransport), 0)
	return apperrors.NewTransportError(err).WithRequestID(requestID)
}

func (p *Pipeline) handle(resp *rawResponse, identity string, prepared *preparedRequest, requestID string) (*core.Response, error) {
	if resp.status >= 200 && resp.status < 300 {
		return decodeResponse(resp, requestID)
	}

	var retryAfter time.Duration
	if resp.status == http.StatusTooManyRequests {
		retryAfter = retryAfterHeader(resp.header, p.now())
		p.Limiter.Record429(identity, retryAfter)
		metrics.RecordRateLimited("server")
	}

	reqErr := apperrors.FromStatus(resp.status, serverMessage(resp.body, http.StatusText(resp.status)), retryAfter).WithRequestID(requestID)
	metrics.RecordError(string(reqErr.Kind), resp.status)
	metrics.RecordErrorByEndpoint(prepared.path, string(reqErr.Kind))
	return nil, reqErr
}

func decodeResponse(resp *rawResponse, requestID string) (*core.Response, error) {
	out := &core.Response{
		StatusCode:  resp.status,
		ContentType: resp.header.Get("Content-Type"),
		Header:      resp.header,
		RequestID:   requestID,
	}

	if len(bytes.TrimSpace(resp.body)) == 0 {
		return out, nil
	}
	if !out.IsJSON() {
		out.Text = string(resp.body)
		return out, nil
	}

	var data any
	if err := json.Unmarshal(resp.body, &data); err != nil {
		return nil, apperrors.NewTransportError(fmt.Errorf("decode json response: %w", err)).WithRequestID(requestID)
	}
	out.Data = data
	return out, nil
}

func (p *Pipeline) authFailure(ctx context.Context, err *apperrors.RequestError) error {
	if p.Tokens != nil {
		_ = p.Tokens.ClearTokens(ctx)
	}
	metrics.SetAuthenticated(false)
	metrics.RecordError(string(apperrors.KindAuthentication), http.StatusUnauthorized)
	p.info("Credentials rejected, tokens cleared", zap.String("request_id", err.RequestID))
	if p.OnAuthFailure != nil {
		p.OnAuthFailure(ctx, err)
	}
	return err
}

func (p *Pipeline) client() Doer {
	if p.HTTP != nil {
		return p.HTTP
	}
	return http.DefaultClient
}

func (p *Pipeline) filter() validate.Filter {
	if p.Filter != nil {
		return p.Filter
	}
	return validate.NopFilter{}
}

func (p *Pipeline) rawFields() map[string]struct{} {
	if len(p.RawFields) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(p.RawFields))
	for _, field := range p.RawFields {
		set[field] = struct{}{}
	}
	return set
}

func (p *Pipeline) identity(ctx context.Context) string {
	if p.Identity != nil {
		if id := strings.TrimSpace(p.Identity(ctx)); id != "" {
			return id
		}
	}
	return core.AnonymousIdentity
}

func (p *Pipeline) accessToken() string {
	if p.Tokens == nil {
		return ""
	}
	return p.Tokens.AccessToken()
}

func (p *Pipeline) requestID() string {
	if p.NewRequestID != nil {
		return p.NewRequestID()
	}
	return uuid.New().String()
}

func (p *Pipeline) now() time.Time {
	if p.Clock != nil {
		return p.Clock()
	}
	return time.Now().UTC()
}

func (p *Pipeline) debug(msg string, fields ...zap.Field) {
	if p.Logger != nil && p.Config.Debug {
		p.Logger.Debug(msg, fields...)
	}
}

func (p *Pipeline) info(msg string, fields ...zap.Field) {
	if p.Logger != nil {
		p.Logger.Info(msg, fields...)
	}
}

func (p *Pipeline) warn(msg string, fields ...zap.Field) {
	if p.Logger != nil {
		p.Logger.Warn(msg, fields...)
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, timeout)
}
