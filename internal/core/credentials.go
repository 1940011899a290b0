package core

// Storage keys shared with the storefront UI layer.
const (
	KeyAccessToken  = "auth_token"
	KeyRefreshToken = "refresh_token"
	KeyCSRFToken    = "csrfToken"
	KeyUserID       = "user_id"
	// KeyCart is owned by the UI layer and never touched by the client.
	KeyCart = "cart"
)

// Credentials holds the current token pair. Empty strings mean "no token".
type Credentials struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// HasAccess reports whether an access token is present.
func (c Credentials) HasAccess() bool {
	return c.AccessToken != ""
}

// HasRefresh reports whether a refresh token is present.
func (c Credentials) HasRefresh() bool {
	return c.RefreshToken != ""
}
