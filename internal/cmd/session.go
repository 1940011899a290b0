package cmd

import (
	"context"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/digitalplanet/shopclient/internal/config"
	"github.com/digitalplanet/shopclient/internal/core/engine"
	"github.com/digitalplanet/shopclient/internal/core/pipeline"
	"github.com/digitalplanet/shopclient/internal/core/shop"
	"github.com/digitalplanet/shopclient/internal/core/store"
	"github.com/digitalplanet/shopclient/internal/core/tokens"
	"github.com/digitalplanet/shopclient/internal/core/validate"
	apperrors "github.com/digitalplanet/shopclient/internal/errors"
	"github.com/digitalplanet/shopclient/internal/observability"
)

// clientSession is everything a command needs to talk to the storefront.
type clientSession struct {
	cfg      *config.Config
	kv       store.KV
	tokens   *tokens.Store
	pipeline *pipeline.Pipeline
	client   *shop.Client
	logger   *logging.Logger
}

func openKV(ctx context.Context, cfg *config.Config) (store.KV, error) {
	kv, err := store.OpenKV(ctx, cfg.Store)
	if err != nil {
		return nil, apperrors.NewStorageError("open", err)
	}
	return kv, nil
}

// openSession wires the store, token store, pipeline, and API client from config.
func openSession(cmd *cobra.Command) (*clientSession, error) {
	ctx := commandContext(cmd)

	cfg, err := currentConfig(cmd)
	if err != nil {
		return nil, err
	}
	kv, err := openKV(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger := observability.Logger()
	s := &clientSession{cfg: cfg, kv: kv, logger: logger}

	s.tokens = tokens.New(kv, logger)
	if err := s.tokens.Load(ctx); err != nil {
		logger.Warn("Stored credentials could not be read; continuing unauthenticated", zap.Error(err))
	}

	active := cfg.Active()
	p := pipeline.New(pipeline.Config{
		BaseURL:       active.BaseURL,
		Timeout:       cfg.RequestTimeout(),
		RetryAttempts: active.RetryAttempts,
		Debug:         cfg.Debug,
	}, s.tokens)
	p.Limiter = newLimiter(cfg.RateLimit)
	p.Filter = newFilter(cfg.Security)
	p.RawFields = cfg.Security.RawFields
	p.Identity = s.tokens.Identity
	p.Logger = logger
	p.OnAuthFailure = func(ctx context.Context, err error) {
		logger.Warn("Session expired; run login again", zap.Error(err))
	}
	s.pipeline = p

	s.client = shop.New(p, s.tokens, shop.Options{
		BaseURL:     active.BaseURL,
		SocialLogin: socialProviders(cfg.SocialLogin),
		Logger:      logger,
	})
	return s, nil
}

// Close releases the store. Limiter windows are process-local and are
// dropped with the session.
func (s *clientSession) Close(ctx context.Context) error {
	if s == nil || s.kv == nil {
		return nil
	}
	if err := s.kv.Close(); err != nil {
		return apperrors.NewStorageError("close", err)
	}
	return nil
}

func newLimiter(cfg config.RateLimitConfig) *engine.RateLimiter {
	limit := engine.DefaultLimit
	if cfg.MaxRequests > 0 {
		limit.RequestsPerWindow = cfg.MaxRequests
	}
	if cfg.Window > 0 {
		limit.WindowDuration = cfg.Window
	}
	limiter := engine.NewRateLimiter(limit)
	limiter.ApplySafetyMargin(cfg.Margin)
	limiter.ApplyOverrides(cfg.Overrides)
	return limiter
}

func newFilter(cfg config.SecurityConfig) validate.HeuristicFilter {
	return validate.HeuristicFilter{
		DisableSQL:           cfg.DisableSQLHeuristics,
		DisableXSS:           cfg.DisableXSSHeuristics,
		AllowEscapableMarkup: !cfg.StrictMarkup,
	}
}

func socialProviders(in map[string]config.SocialProviderConfig) map[string]shop.SocialProvider {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]shop.SocialProvider, len(in))
	for name, p := range in {
		out[strings.ToLower(name)] = shop.SocialProvider{
			ClientID:    p.ClientID,
			RedirectURI: p.RedirectURI,
			Scope:       p.Scope,
		}
	}
	return out
}

// withSession opens a session, runs fn, and closes it.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *clientSession) error) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	runErr := fn(ctx, s)
	closeErr := s.Close(ctx)
	if runErr != nil {
		return runErr
	}
	return closeErr
}
