// Package shop exposes the storefront endpoints as typed calls on top of the
// request pipeline.
package shop

import (
	"context"
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"

	"github.com/digitalplanet/shopclient/internal/core"
	apperrors "github.com/digitalplanet/shopclient/internal/errors"
)

// Sender sends one request. *pipeline.Pipeline satisfies it.
type Sender interface {
	Send(ctx context.Context, req core.Request) (*core.Response, error)
}

// Session is the credential state updated by login and logout.
type Session interface {
	SetTokens(ctx context.Context, access, refresh string) error
	ClearTokens(ctx context.Context) error
	ResetSession(ctx context.Context) error
	SetUserID(ctx context.Context, id string) error
}

// SocialProvider adds OAuth parameters to a social login URL.
type SocialProvider struct {
	ClientID    string
	RedirectURI string
	Scope       string
}

// Client groups the storefront APIs.
type Client struct {
	Auth     *AuthAPI
	User     *UserAPI
	Products *ProductAPI
	Cart     *CartAPI
	Orders   *OrderAPI
	Payment  *PaymentAPI
}

// Options configures New.
type Options struct {
	// BaseURL is used to build absolute social login URLs.
	BaseURL     string
	SocialLogin map[string]SocialProvider
	Logger      *logging.Logger
}

// New wires every API to sender and session.
func New(sender Sender, session Session, opts Options) *Client {
	base := &api{sender: sender}
	return &Client{
		Auth: &AuthAPI{
			api:     base,
			session: session,
			baseURL: strings.TrimRight(opts.BaseURL, "/"),
			social:  opts.SocialLogin,
			logger:  opts.Logger,
		},
		User:     &UserAPI{api: base},
		Products: &ProductAPI{api: base},
		Cart:     &CartAPI{api: base},
		Orders:   &OrderAPI{api: base},
		Payment:  &PaymentAPI{api: base},
	}
}

type api struct {
	sender Sender
}

func (a *api) send(ctx context.Context, method core.Method, path string, body any) (*core.Response, error) {
	if a == nil || a.sender == nil {
		return nil, fmt.Errorf("storefront client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return a.sender.Send(ctx, core.Request{URL: path, Method: method, Body: body})
}

func (a *api) get(ctx context.Context, path string) (*core.Response, error) {
	return a.send(ctx, core.MethodGet, path, nil)
}

func (a *api) post(ctx context.Context, path string, body any) (*core.Response, error) {
	return a.send(ctx, core.MethodPost, path, body)
}

func (a *api) put(ctx context.Context, path string, body any) (*core.Response, error) {
	return a.send(ctx, core.MethodPut, path, body)
}

func (a *api) delete(ctx context.Context, path string) (*core.Response, error) {
	return a.send(ctx, core.MethodDelete, path, nil)
}

// check turns a failed local validation into a ValidationError.
func check(results ...core.ValidationResult) error {
	merged := core.Valid()
	for _, r := range results {
		merged.Merge(r)
	}
	if merged.Valid {
		return nil
	}
	return apperrors.NewValidationError(merged.Errors)
}

func requireID(name, id string) core.ValidationResult {
	if strings.TrimSpace(id) == "" {
		return core.Invalid(name + " is required")
	}
	return core.Valid()
}
