// Package tokens owns the client's credentials: the access/refresh token pair,
// the per-session CSRF token, and the identity used for rate limiting.
package tokens

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/digitalplanet/shopclient/internal/core"
	apperrors "github.com/digitalplanet/shopclient/internal/errors"
)

const csrfTokenBytes = 32

// KV is the persistent string store the tokens survive restarts in.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store holds credentials in memory and mirrors every mutation to KV.
// Mutations are serialized across the memory update and the KV call, so the
// last writer wins in both places.
//
// Storage failures never block the in-memory state: they are logged and
// returned as storage errors, and a failed read leaves the store
// unauthenticated.
type Store struct {
	KV     KV
	Logger *logging.Logger
	// Rand sources CSRF tokens. Defaults to crypto/rand.
	Rand io.Reader

	// writeMu orders mutations end to end; mu guards the fields below.
	writeMu sync.Mutex
	mu      sync.RWMutex
	creds   core.Credentials
	csrf    string
	userID  string
}

// New returns a Store backed by kv. A nil kv keeps state in memory only.
func New(kv KV, logger *logging.Logger) *Store {
	return &Store{KV: kv, Logger: logger}
}

// Load reads persisted credentials. Absent keys mean "no token".
func (s *Store) Load(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	access, accessErr := s.read(ctx, core.KeyAccessToken)
	refresh, refreshErr := s.read(ctx, core.KeyRefreshToken)
	csrf, _ := s.read(ctx, core.KeyCSRFToken)
	userID, _ := s.read(ctx, core.KeyUserID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if accessErr != nil || refreshErr != nil {
		s.creds = core.Credentials{}
	} else {
		s.creds = core.Credentials{AccessToken: access, RefreshToken: refresh}
	}
	s.csrf = csrf
	s.userID = userID

	if accessErr != nil {
		return accessErr
	}
	return refreshErr
}

// SetTokens replaces the access token, and the refresh token when refresh is
// non-empty. An omitted refresh token keeps the existing one.
func (s *Store) SetTokens(ctx context.Context, access, refresh string) error {
	if s == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.creds.AccessToken = access
	if refresh != "" {
		s.creds.RefreshToken = refresh
	}
	s.mu.Unlock()

	var firstErr error
	if access == "" {
		firstErr = s.remove(ctx, core.KeyAccessToken)
	} else {
		firstErr = s.write(ctx, core.KeyAccessToken, access)
	}
	if refresh != "" {
		if err := s.write(ctx, core.KeyRefreshToken, refresh); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ClearTokens removes both tokens from memory and storage.
func (s *Store) ClearTokens(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.creds = core.Credentials{}
	s.mu.Unlock()

	accessErr := s.remove(ctx, core.KeyAccessToken)
	refreshErr := s.remove(ctx, core.KeyRefreshToken)
	if accessErr != nil {
		return accessErr
	}
	return refreshErr
}

// AccessToken returns the current access token, or "" when none is held.
func (s *Store) AccessToken() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.AccessToken
}

// RefreshToken returns the current refresh token, or "" when none is held.
func (s *Store) RefreshToken() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.RefreshToken
}

// Credentials returns a copy of the current token pair.
func (s *Store) Credentials() core.Credentials {
	if s == nil {
		return core.Credentials{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// CSRFToken returns the session CSRF token, generating and persisting one on
// first use.
func (s *Store) CSRFToken(ctx context.Context) (string, error) {
	if s == nil {
		return "", fmt.Errorf("token store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if token := s.currentCSRF(); token != "" {
		return token, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.csrf != "" {
		token := s.csrf
		s.mu.Unlock()
		return token, nil
	}

	source := s.Rand
	if source == nil {
		source = rand.Reader
	}
	buf := make([]byte, csrfTokenBytes)
	if _, err := io.ReadFull(source, buf); err != nil {
		s.mu.Unlock()
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	token := hex.EncodeToString(buf)
	s.csrf = token
	s.mu.Unlock()

	// Persistence is best effort; the in-memory token stays valid.
	_ = s.write(ctx, core.KeyCSRFToken, token)
	return token, nil
}

func (s *Store) currentCSRF() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.csrf
}

// ResetSession drops the CSRF token and the stored user id.
func (s *Store) ResetSession(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.csrf = ""
	s.userID = ""
	s.mu.Unlock()

	csrfErr := s.remove(ctx, core.KeyCSRFToken)
	userErr := s.remove(ctx, core.KeyUserID)
	if csrfErr != nil {
		return csrfErr
	}
	return userErr
}

// SetUserID records the authenticated user's id.
func (s *Store) SetUserID(ctx context.Context, id string) error {
	if s == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	id = strings.TrimSpace(id)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.userID = id
	s.mu.Unlock()

	if id == "" {
		return s.remove(ctx, core.KeyUserID)
	}
	return s.write(ctx, core.KeyUserID, id)
}

// UserID returns the stored user id, or "".
func (s *Store) UserID() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Identity resolves the rate limiting identifier: the stored user id, else
// the access token's subject, else core.AnonymousIdentity. The token is
// decoded without verifying its signature; the result only partitions
// client-side budgets.
func (s *Store) Identity(_ context.Context) string {
	if s == nil {
		return core.AnonymousIdentity
	}
	if id := s.UserID(); id != "" {
		return id
	}
	if sub := SubjectOf(s.AccessToken()); sub != "" {
		return sub
	}
	return core.AnonymousIdentity
}

// SubjectOf returns the unverified "sub" claim of a JWT, or "" for opaque
// or malformed tokens.
func SubjectOf(token string) string {
	token = strings.TrimSpace(token)
	if token == "" || strings.Count(token, ".") != 2 {
		return ""
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

// ExpiryOf returns the unverified "exp" claim of a JWT. ok is false for
// opaque tokens and tokens without an expiry.
func ExpiryOf(token string) (time.Time, bool) {
	token = strings.TrimSpace(token)
	if token == "" || strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (s *Store) read(ctx context.Context, key string) (string, error) {
	if s.KV == nil {
		return "", nil
	}
	value, ok, err := s.KV.Get(ctx, key)
	if err != nil {
		wrapped := apperrors.NewStorageError("read "+key, err)
		s.warn("Token storage read failed", key, wrapped)
		return "", wrapped
	}
	if !ok {
		return "", nil
	}
	return value, nil
}

func (s *Store) write(ctx context.Context, key, value string) error {
	if s.KV == nil {
		return nil
	}
	if err := s.KV.Set(ctx, key, value); err != nil {
		wrapped := apperrors.NewStorageError("write "+key, err)
		s.warn("Token storage write failed", key, wrapped)
		return wrapped
	}
	return nil
}

func (s *Store) remove(ctx context.Context, key string) error {
	if s.KV == nil {
		return nil
	}
	if err := s.KV.Delete(ctx, key); err != nil {
		wrapped := apperrors.NewStorageError("delete "+key, err)
		s.warn("Token storage delete failed", key, wrapped)
		return wrapped
	}
	return nil
}

func (s *Store) warn(msg, key string, err error) {
	if s.Logger == nil {
		return
	}
	s.Logger.Warn(msg, zap.String("key", key), zap.Error(err))
}
