package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/digitalplanet/shopclient/internal/core"
	"github.com/digitalplanet/shopclient/internal/core/engine"
	"github.com/digitalplanet/shopclient/internal/core/tokens"
	apperrors "github.com/digitalplanet/shopclient/internal/errors"
)

type recorded struct {
	method string
	path   string
	header http.Header
	body   []byte
}

type backend struct {
	*httptest.Server
	router *chi.Mux

	mu       sync.Mutex
	requests []recorded
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{router: chi.NewRouter()}
	b.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			b.mu.Lock()
			b.requests = append(b.requests, recorded{method: r.Method, path: r.URL.Path, header: r.Header.Clone(), body: body})
			b.mu.Unlock()
			r.Body = io.NopCloser(strings.NewReader(string(body)))
			next.ServeHTTP(w, r)
		})
	})
	b.Server = httptest.NewServer(b.router)
	t.Cleanup(b.Close)
	return b
}

func (b *backend) hits(path string) []recorded {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recorded
	for _, r := range b.requests {
		if r.path == path {
			out = append(out, r)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func newTestPipeline(b *backend, store *tokens.Store) *Pipeline {
	p := New(Config{BaseURL: b.URL + "/api", Timeout: 2 * time.Second}, store)
	p.HTTP = b.Client()
	p.Identity = store.Identity
	p.RawFields = []string{"password"}
	return p
}

func authedStore(t *testing.T, access, refresh string) *tokens.Store {
	t.Helper()
	store := tokens.New(nil, nil)
	require.NoError(t, store.SetTokens(context.Background(), access, refresh))
	return store
}

func TestSendSanitizesBodyAndParsesJSON(t *testing.T) {
	b := newBackend(t)
	b.router.Post("/api/orders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": 7, "status": "created"})
	})

	p := newTestPipeline(b, authedStore(t, "A1", "R1"))
	body := map[string]any{"note": "<script>x</script>"}

	resp, err := p.Send(context.Background(), core.Request{URL: "/orders", Method: core.MethodPost, Body: body})
	require.NoError(t, err)
	require.True(t, resp.IsJSON())
	require.Equal(t, map[string]any{"id": float64(7), "status": "created"}, resp.Data)
	require.Empty(t, resp.Text)

	require.Equal(t, "<script>x</script>", body["note"], "caller body must not be mutated")

	hits := b.hits("/api/orders")
	require.Len(t, hits, 1)
	var sent map[string]any
	require.NoError(t, json.Unmarshal(hits[0].body, &sent))
	require.Equal(t, "&lt;script&gt;x&lt;&#x2F;script&gt;", sent["note"])

	h := hits[0].header
	require.Equal(t, "Bearer A1", h.Get("Authorization"))
	require.Equal(t, "application/json", h.Get("Content-Type"))
	require.Equal(t, "application/json", h.Get("Accept"))
	require.Equal(t, "XMLHttpRequest", h.Get("X-Requested-With"))
	require.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", h.Get("X-Frame-Options"))
	require.Equal(t, "1; mode=block", h.Get("X-XSS-Protection"))
	require.Len(t, h.Get("X-CSRF-Token"), 64)
	require.NotEmpty(t, h.Get("X-Request-ID"))
	require.Equal(t, h.Get("X-Request-ID"), resp.RequestID)
}

func TestSendGetWithoutTokenHasNoAuthOrCSRF(t *testing.T) {
	b := newBackend(t)
	b.router.Get("/api/products", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []any{})
	})

	p := newTestPipeline(b, tokens.New(nil, nil))
	_, err := p.Send(context.Background(), core.Request{URL: "/products", Method: core.MethodGet,
		Headers: map[string]string{"Authorization": "Bearer forged", "X-Frame-Options": "ALLOW", "X-Trace": "t1"}})
	require.NoError(t, err)

	h := b.hits("/api/products")[0].header
	require.Empty(t, h.Get("Authorization"))
	require.Empty(t, h.Get("X-CSRF-Token"))
	require.Equal(t, "DENY", h.Get("X-Frame-Options"))
	require.Equal(t, "t1", h.Get("X-Trace"))
}

func TestSendCSRFTokenReusedAcrossRequests(t *testing.T) {
	b := newBackend(t)
	b.router.Delete("/api/cart/remove/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	p := newTestPipeline(b, authedStore(t, "A1", ""))
	for i := 0; i < 2; i++ {
		resp, err := p.Send(context.Background(), core.Request{URL: "/cart/remove/3", Method: core.MethodDelete})
		require.NoError(t, err)
		require.Nil(t, resp.Data)
	}

	hits := b.hits("/api/cart/remove/3")
	require.Len(t, hits, 2)
	require.Equal(t, hits[0].header.Get("X-CSRF-Token"), hits[1].header.Get("X-CSRF-Token"))
	require.NotEqual(t, hits[0].header.Get("X-Request-ID"), hits[1].header.Get("X-Request-ID"))
}

func TestSendTextResponse(t *testing.T) {
	b := newBackend(t)
	b.router.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})

	p := newTestPipeline(b, tokens.New(nil, nil))
	resp, err := p.Send(context.Background(), core.Request{URL: b.URL + "/api/health"})
	require.NoError(t, err)
	require.False(t, resp.IsJSON())
	require.Equal(t, "ok", resp.Text)
	require.Nil(t, resp.Data)
}

func TestSendValidationAggregatesAndSkipsNetwork(t *testing.T) {
	b := newBackend(t)
	p := newTestPipeline(b, tokens.New(nil, nil))

	_, err := p.Send(context.Background(), core.Request{
		URL:    "/orders",
		Method: "TRACE",
		Body: map[string]any{
			"comment": "x' OR 1=1",
			"link":    "javascript:alert(1)",
			"nested":  map[string]any{"items": []any{"fine", "a|b"}},
		},
	})
	require.Error(t, err)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	var reqErr *apperrors.RequestError
	require.True(t, errors.As(err, &reqErr))
	require.Equal(t, []string{
		"method TRACE is not allowed",
		"field comment contains potential SQL injection",
		"field link contains potential XSS payload",
		"field nested.items[1] contains potential SQL injection",
	}, reqErr.Messages)
	require.False(t, reqErr.Retryable())

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Empty(t, b.requests)
}

func TestSendRejectsUnparseableURL(t *testing.T) {
	p := New(Config{}, tokens.New(nil, nil))
	_, err := p.Send(context.Background(), core.Request{URL: "/orders"})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = p.Send(context.Background(), core.Request{URL: "ftp://example.com/x"})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = p.Send(context.Background(), core.Request{URL: "http://[::1"})
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSendRawFieldsAreNotScreenedOrEscaped(t *testing.T) {
	b := newBackend(t)
	b.router.Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"token": "T"})
	})

	p := newTestPipeline(b, tokens.New(nil, nil))
	_, err := p.Send(context.Background(), core.Request{URL: "/auth/login", Method: core.MethodPost,
		Body: map[string]any{"email": "a@b.co", "password": "Pa$$w0rd*%&<"}})
	require.NoError(t, err)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(b.hits("/api/auth/login")[0].body, &sent))
	require.Equal(t, "Pa$$w0rd*%&<", sent["password"])
}

func TestSendMalformedRawBodyFailsScreening(t *testing.T) {
	b := newBackend(t)
	b.router.Post("/api/raw", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	p := newTestPipeline(b, tokens.New(nil, nil))
	raw := json.RawMessage(`{"note": "<script>x</script>", "q": "1' OR 1=1`)
	_, err := p.Send(context.Background(), core.Request{URL: "/raw", Method: core.MethodPost, Body: raw})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	var reqErr *apperrors.RequestError
	require.True(t, errors.As(err, &reqErr))
	require.Equal(t, []string{"request body is not valid JSON"}, reqErr.Messages)
	require.Empty(t, b.hits("/api/raw"))
}

func TestSendValidRawBodyIsScreenedAndSanitized(t *testing.T) {
	b := newBackend(t)
	b.router.Post("/api/raw", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	p := newTestPipeline(b, tokens.New(nil, nil))
	_, err := p.Send(context.Background(), core.Request{URL: "/raw", Method: core.MethodPost, Body: json.RawMessage(`{"q":"x' OR 1=1"}`)})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = p.Send(context.Background(), core.Request{URL: "/raw", Method: core.MethodPost, Body: json.RawMessage(`{"note":"<b>"}`)})
	require.NoError(t, err)
	require.JSONEq(t, `{"note":"&lt;b&gt;"}`, string(b.hits("/api/raw")[0].body))
}

func TestSendStructBodyIsSanitized(t *testing.T) {
	type item struct {
		Name string `json:"name"`
		Qty  int    `json:"qty"`
	}
	b := newBackend(t)
	b.router.Post("/api/cart/add", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	p := newTestPipeline(b, tokens.New(nil, nil))
	_, err := p.Send(context.Background(), core.Request{URL: "/cart/add", Method: core.MethodPost, Body: item{Name: "Tom & Jerry", Qty: 12345678901}})
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"Tom &amp; Jerry","qty":12345678901}`, string(b.hits("/api/cart/add")[0].body))
}

func TestSendLocalRateLimit(t *testing.T) {
	b := newBackend(t)
	b.router.Get("/api/products", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []any{})
	})

	p := newTestPipeline(b, tokens.New(nil, nil))
	p.Limiter = engine.NewRateLimiter(engine.RateLimit{RequestsPerWindow: 1, WindowDuration: time.Minute})

	_, err := p.Send(context.Background(), core.Request{URL: "/products"})
	require.NoError(t, err)

	_, err = p.Send(context.Background(), core.Request{URL: "/products"})
	require.ErrorIs(t, err, apperrors.ErrRateLimited)
	var reqErr *apperrors.RequestError
	require.True(t, errors.As(err, &reqErr))
	require.True(t, reqErr.Local)
	require.True(t, reqErr.Retryable())
	require.Len(t, b.hits("/api/products"), 1)
}

func TestSendServer429IsNotRetried(t *testing.T) {
	b := newBackend(t)
	b.router.Get("/api/orders", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"message": "slow down"})
	})

	p := newTestPipeline(b, authedStore(t, "A1", "R1"))
	_, err := p.Send(context.Background(), core.Request{URL: "/orders"})
	require.ErrorIs(t, err, apperrors.ErrRateLimited)

	var reqErr *apperrors.RequestError
	require.True(t, errors.As(err, &reqErr))
	require.False(t, reqErr.Local)
	require.Equal(t, http.StatusTooManyRequests, reqErr.StatusCode)
	require.Equal(t, 3*time.Second, reqErr.RetryAfter)
	require.Equal(t, "slow down", reqErr.Message)
	require.Len(t, b.hits("/api/orders"), 1)
	require.Empty(t, b.hits("/api/auth/refresh"))

	_, err = p.Send(context.Background(), core.Request{URL: "/orders"})
	require.True(t, errors.As(err, &reqErr))
	require.True(t, reqErr.Local, "server backoff should be honoured locally")
	require.Len(t, b.hits("/api/orders"), 1)
}

func TestSendStatusMapping(t *testing.T) {
	b := newBackend(t)
	b.router.Get("/api/forbidden", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{"message": "admins only"})
	})
	b.router.Get("/api/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	b.router.Get("/api/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "no such order"})
	})

	p := newTestPipeline(b, authedStore(t, "A1", "R1"))
	ctx := context.Background()
	var reqErr *apperrors.RequestError

	_, err := p.Send(ctx, core.Request{URL: "/forbidden"})
	require.ErrorIs(t, err, apperrors.ErrForbidden)
	require.True(t, errors.As(err, &reqErr))
	require.Equal(t, "admins only", reqErr.Message)
	require.Equal(t, "A1", p.Tokens.AccessToken(), "403 is not a token problem")

	_, err = p.Send(ctx, core.Request{URL: "/boom"})
	require.ErrorIs(t, err, apperrors.ErrServer)
	require.True(t, apperrors.IsRetryable(err))
	require.True(t, errors.As(err, &reqErr))
	require.Equal(t, http.StatusBadGateway, reqErr.StatusCode)

	_, err = p.Send(ctx, core.Request{URL: "/orders/99"})
	require.ErrorIs(t, err, apperrors.ErrClient)
	require.False(t, apperrors.IsRetryable(err))
	require.True(t, errors.As(err, &reqErr))
	require.Equal(t, "no such order", reqErr.Message)
	require.Equal(t, http.StatusNotFound, reqErr.StatusCode)
}

func TestSendTimeout(t *testing.T) {
	b := newBackend(t)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	b.router.Get("/api/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})

	p := newTestPipeline(b, tokens.New(nil, nil))
	p.Config.Timeout = 50 * time.Millisecond

	ctx := context.Background()
	_, err := p.Send(ctx, core.Request{URL: "/slow"})
	require.ErrorIs(t, err, apperrors.ErrTimeout)
	require.True(t, apperrors.IsRetryable(err))
	require.NoError(t, ctx.Err())
}

func TestSendCallerCancellationIsNotTimeout(t *testing.T) {
	b := newBackend(t)
	b.router.Get("/api/slow", func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	p := newTestPipeline(b, tokens.New(nil, nil))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := p.Send(ctx, core.Request{URL: "/slow"})
	require.Error(t, err)
	require.NotErrorIs(t, err, apperrors.ErrTimeout)
	require.ErrorIs(t, err, apperrors.ErrTransport)
}

func TestSendRefreshesOnceAndRetries(t *testing.T) {
	b := newBackend(t)
	b.router.Get("/api/user/profile", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer A2" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"name": "ada"})
	})
	b.router.Post("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["refreshToken"] != "R1" {
			writeJSON(w, http.StatusUnauthorized, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"token": "A2", "refreshToken": "R2"})
	})

	store := authedStore(t, "A1", "R1")
	p := newTestPipeline(b, store)

	resp, err := p.Send(context.Background(), core.Request{URL: "/user/profile"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"name": "ada"}, resp.Data)
	require.Equal(t, "A2", store.AccessToken())
	require.Equal(t, "R2", store.RefreshToken())

	refreshes := b.hits("/api/auth/refresh")
	require.Len(t, refreshes, 1)
	require.Empty(t, refreshes[0].header.Get("Authorization"))

	calls := b.hits("/api/user/profile")
	require.Len(t, calls, 2)
	require.Equal(t, calls[0].header.Get("X-Request-ID"), calls[1].header.Get("X-Request-ID"))
}

func TestSendConcurrent401sShareOneRefresh(t *testing.T) {
	b := newBackend(t)
	unauthorized := make(chan struct{}, 2)
	b.router.Get("/api/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer NEW" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "expired"})
			unauthorized <- struct{}{}
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	b.router.Post("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		// Hold the exchange until both callers have seen their 401.
		for i := 0; i < 2; i++ {
			select {
			case <-unauthorized:
			case <-time.After(2 * time.Second):
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"accessToken": "NEW"})
	})

	store := authedStore(t, "OLD", "R1")
	p := newTestPipeline(b, store)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Send(context.Background(), core.Request{URL: "/orders"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Len(t, b.hits("/api/auth/refresh"), 1)

	var retried int
	for _, hit := range b.hits("/api/orders") {
		if hit.header.Get("Authorization") == "Bearer NEW" {
			retried++
		}
	}
	require.Equal(t, 2, retried)
	require.Equal(t, "NEW", store.AccessToken())
	require.Equal(t, "R1", store.RefreshToken(), "omitted refresh token is kept")
}

func TestSendRefreshFailureClearsTokensAndNotifies(t *testing.T) {
	b := newBackend(t)
	b.router.Get("/api/orders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, nil)
	})
	b.router.Post("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "refresh expired"})
	})

	store := authedStore(t, "A1", "R1")
	p := newTestPipeline(b, store)
	var notified atomic.Int32
	p.OnAuthFailure = func(ctx context.Context, err error) {
		if errors.Is(err, apperrors.ErrAuthentication) {
			notified.Add(1)
		}
	}

	_, err := p.Send(context.Background(), core.Request{URL: "/orders"})
	require.ErrorIs(t, err, apperrors.ErrAuthentication)
	require.Contains(t, err.Error(), "refresh expired")
	require.Equal(t, "", store.AccessToken())
	require.Equal(t, "", store.RefreshToken())
	require.Equal(t, int32(1), notified.Load())
	require.Len(t, b.hits("/api/orders"), 1)
}

func TestSendRefreshWithoutTokenInResponseFails(t *testing.T) {
	b := newBackend(t)
	b.router.Get("/api/orders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, nil)
	})
	b.router.Post("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	store := authedStore(t, "A1", "R1")
	p := newTestPipeline(b, store)

	_, err := p.Send(context.Background(), core.Request{URL: "/orders"})
	require.ErrorIs(t, err, apperrors.ErrAuthentication)
	require.False(t, store.Credentials().HasAccess())
	require.False(t, store.Credentials().HasRefresh())
}

func TestSend401WithoutRefreshToken(t *testing.T) {
	b := newBackend(t)
	b.router.Get("/api/orders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, nil)
	})

	store := authedStore(t, "A1", "")
	p := newTestPipeline(b, store)
	var notified atomic.Int32
	p.OnAuthFailure = func(context.Context, error) { notified.Add(1) }

	_, err := p.Send(context.Background(), core.Request{URL: "/orders"})
	require.ErrorIs(t, err, apperrors.ErrAuthentication)
	require.Equal(t, "", store.AccessToken())
	require.Equal(t, int32(1), notified.Load())
	require.Empty(t, b.hits("/api/auth/refresh"))
}

func TestSend401OnRetryDoesNotLoop(t *testing.T) {
	b := newBackend(t)
	b.router.Get("/api/orders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "account disabled"})
	})
	b.router.Post("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"token": "A2", "refreshToken": "R2"}})
	})

	store := authedStore(t, "A1", "R1")
	p := newTestPipeline(b, store)

	_, err := p.Send(context.Background(), core.Request{URL: "/orders"})
	require.ErrorIs(t, err, apperrors.ErrAuthentication)
	require.Contains(t, err.Error(), "account disabled")
	require.Len(t, b.hits("/api/orders"), 2)
	require.Len(t, b.hits("/api/auth/refresh"), 1)
	require.Equal(t, "", store.AccessToken())
}

func TestRetryAfterHeader(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h := http.Header{}
	require.Zero(t, retryAfterHeader(nil, now))
	require.Zero(t, retryAfterHeader(h, now))

	h.Set("Retry-After", "12")
	require.Equal(t, 12*time.Second, retryAfterHeader(h, now))

	h.Set("Retry-After", now.Add(30*time.Second).Format(http.TimeFormat))
	require.Equal(t, 30*time.Second, retryAfterHeader(h, now))

	h.Set("Retry-After", "soon")
	require.Zero(t, retryAfterHeader(h, now))
}

func TestServerMessage(t *testing.T) {
	require.Equal(t, "bad", serverMessage([]byte(`{"message":"bad"}`), "fb"))
	require.Equal(t, "worse", serverMessage([]byte(`{"error":"worse"}`), "fb"))
	require.Equal(t, "fb", serverMessage([]byte(`<html>`), "fb"))
	require.Equal(t, "fb", serverMessage(nil, "fb"))
}

func TestNilPipeline(t *testing.T) {
	var p *Pipeline
	_, err := p.Send(context.Background(), core.Request{URL: "/x"})
	require.Error(t, err)
}
