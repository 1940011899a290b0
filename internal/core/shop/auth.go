package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/digitalplanet/shopclient/internal/core"
	"github.com/digitalplanet/shopclient/internal/core/validate"
	apperrors "github.com/digitalplanet/shopclient/internal/errors"
)

// AuthAPI covers login, registration, logout, and password recovery.
type AuthAPI struct {
	*api
	session Session
	baseURL string
	social  map[string]SocialProvider
	logger  *logging.Logger
}

// Login validates the credentials locally, then stores the issued tokens.
func (a *AuthAPI) Login(ctx context.Context, email, password string, rememberMe bool) (*core.Response, error) {
	email = strings.TrimSpace(email)
	if err := check(validate.Email(email), validate.Password(password)); err != nil {
		return nil, err
	}

	resp, err := a.post(ctx, PathLogin, map[string]any{
		"email":      email,
		"password":   password,
		"rememberMe": rememberMe,
	})
	if err != nil {
		return nil, err
	}
	if err := a.storeSession(ctx, resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// Register validates all three fields locally. Tokens in the response, if
// any, start a session.
func (a *AuthAPI) Register(ctx context.Context, username, email, password string) (*core.Response, error) {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if err := check(validate.Username(username), validate.Email(email), validate.Password(password)); err != nil {
		return nil, err
	}

	resp, err := a.post(ctx, PathRegister, map[string]any{
		"username": username,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	if tokenFrom(resp) == "" {
		return resp, nil
	}
	if err := a.storeSession(ctx, resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// Logout notifies the server and always clears local credentials. The
// server error, if any, is returned after the local state is gone.
func (a *AuthAPI) Logout(ctx context.Context) error {
	_, sendErr := a.post(ctx, PathLogout, nil)
	if sendErr != nil && a.logger != nil {
		a.logger.Warn("Logout request failed, clearing local session anyway", zap.Error(sendErr))
	}

	var clearErr error
	if a.session != nil {
		clearErr = errors.Join(a.session.ClearTokens(ctx), a.session.ResetSession(ctx))
	}
	if sendErr != nil {
		return sendErr
	}
	return clearErr
}

// SocialLoginURL returns the absolute URL that starts provider's login flow.
func (a *AuthAPI) SocialLoginURL(provider string) (string, error) {
	path, ok := SocialLoginPath(provider)
	if !ok {
		return "", apperrors.NewValidationError([]string{fmt.Sprintf("unsupported login provider %q", provider)})
	}

	target := a.baseURL + path
	cfg, ok := a.social[strings.ToLower(strings.TrimSpace(provider))]
	if !ok {
		return target, nil
	}

	params := map[string]string{}
	if cfg.ClientID != "" {
		params["client_id"] = cfg.ClientID
	}
	if cfg.RedirectURI != "" {
		params["redirect_uri"] = cfg.RedirectURI
	}
	if cfg.Scope != "" {
		params["scope"] = cfg.Scope
	}
	return withQuery(target, params), nil
}

// ForgotPassword requests a reset email.
func (a *AuthAPI) ForgotPassword(ctx context.Context, email string) (*core.Response, error) {
	email = strings.TrimSpace(email)
	if err := check(validate.Email(email)); err != nil {
		return nil, err
	}
	return a.post(ctx, PathForgotPassword, map[string]any{"email": email})
}

// ResetPassword completes a reset with the emailed token.
func (a *AuthAPI) ResetPassword(ctx context.Context, token, newPassword string) (*core.Response, error) {
	if err := check(requireID("reset token", token), validate.Password(newPassword)); err != nil {
		return nil, err
	}
	return a.post(ctx, PathResetPassword, map[string]any{
		"token":       strings.TrimSpace(token),
		"newPassword": newPassword,
	})
}

func (a *AuthAPI) storeSession(ctx context.Context, resp *core.Response) error {
	if a.session == nil {
		return nil
	}
	access := tokenFrom(resp)
	if access == "" {
		return nil
	}

	payload := dataOf(resp)
	refresh, _ := payload["refreshToken"].(string)
	if err := a.session.SetTokens(ctx, access, refresh); err != nil {
		return err
	}

	if user, ok := payload["user"].(map[string]any); ok {
		if id := idString(user["id"]); id != "" {
			return a.session.SetUserID(ctx, id)
		}
	}
	return nil
}

// dataOf returns the response object, unwrapping a "data" envelope.
func dataOf(resp *core.Response) map[string]any {
	if resp == nil {
		return nil
	}
	payload, ok := resp.Data.(map[string]any)
	if !ok {
		return nil
	}
	if inner, ok := payload["data"].(map[string]any); ok {
		return inner
	}
	return payload
}

func tokenFrom(resp *core.Response) string {
	payload := dataOf(resp)
	if token, ok := payload["token"].(string); ok && token != "" {
		return token
	}
	if token, ok := payload["accessToken"].(string); ok {
		return token
	}
	return ""
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return fmt.Sprintf("%.0f", id)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(id))
	}
}
