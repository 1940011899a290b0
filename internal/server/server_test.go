package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitalplanet/shopclient/internal/core"
	"github.com/digitalplanet/shopclient/internal/core/engine"
	"github.com/digitalplanet/shopclient/internal/core/pipeline"
	"github.com/digitalplanet/shopclient/internal/core/tokens"
	apperrors "github.com/digitalplanet/shopclient/internal/errors"
	"github.com/digitalplanet/shopclient/internal/server/handlers"
)

type gatewayFixture struct {
	server   *Server
	store    *tokens.Store
	pipeline *pipeline.Pipeline
	upstream *httptest.Server
	lastBody string
	lastAuth string
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	f := &gatewayFixture{}

	router := chi.NewRouter()
	router.Get("/api/products", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[{"id":"p1","q":"`+r.URL.Query().Get("q")+`"}]}`)
	})
	router.Post("/api/cart/add", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.lastBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"ok":true}`)
	})
	router.Get("/api/orders/missing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"order not found"}`)
	})
	router.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "pong")
	})
	f.upstream = httptest.NewServer(router)
	t.Cleanup(f.upstream.Close)

	f.store = tokens.New(nil, nil)
	require.NoError(t, f.store.SetTokens(context.Background(), "access-1", "refresh-1"))

	f.pipeline = pipeline.New(pipeline.Config{BaseURL: f.upstream.URL + "/api", Timeout: 2 * time.Second}, f.store)
	f.pipeline.HTTP = f.upstream.Client()
	f.pipeline.Identity = f.store.Identity
	f.pipeline.Limiter = engine.NewRateLimiter(engine.RateLimit{RequestsPerWindow: 50, WindowDuration: time.Minute})

	health := handlers.NewHealthManager("test")
	f.server = New(Options{
		Host:   "127.0.0.1",
		Port:   0,
		Health: health,
		Gateway: &handlers.Gateway{
			Sender:  f.pipeline,
			Session: f.store,
			Limiter: f.pipeline.Limiter,
		},
	})
	return f
}

func (f *gatewayFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, reader))
	return rec
}

func TestGatewayForwardsGetWithQuery(t *testing.T) {
	f := newGatewayFixture(t)

	rec := f.do(t, http.MethodGet, "/api/products?q=kettle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bearer access-1", f.lastAuth)
	assert.NotEmpty(t, rec.Header().Get("X-Upstream-Request-ID"))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	items := payload["data"].([]any)
	assert.Equal(t, "kettle", items[0].(map[string]any)["q"])
}

func TestGatewaySanitizesForwardedBody(t *testing.T) {
	f := newGatewayFixture(t)

	rec := f.do(t, http.MethodPost, "/api/cart/add", `{"productId":"p1","note":"<b>gift</b>","quantity":2}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(f.lastBody), &sent))
	assert.Equal(t, "&lt;b&gt;gift&lt;&#x2F;b&gt;", sent["note"])
	assert.Equal(t, float64(2), sent["quantity"])
}

func TestGatewayRejectsInjection(t *testing.T) {
	f := newGatewayFixture(t)

	rec := f.do(t, http.MethodPost, "/api/cart/add", `{"note":"1; DROP TABLE users"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.lastBody)

	var resp apperrors.HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(apperrors.KindValidation), resp.Error.Code)
}

func TestGatewayRejectsMalformedBody(t *testing.T) {
	f := newGatewayFixture(t)

	rec := f.do(t, http.MethodPost, "/api/cart/add", `{"note":"1; DROP TABLE users"`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.lastBody)

	var resp apperrors.HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(apperrors.KindValidation), resp.Error.Code)
}

func TestGatewayPassesUpstreamStatus(t *testing.T) {
	f := newGatewayFixture(t)

	rec := f.do(t, http.MethodGet, "/api/orders/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp apperrors.HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(apperrors.KindClient), resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "order not found")
}

func TestGatewayTextResponse(t *testing.T) {
	f := newGatewayFixture(t)

	rec := f.do(t, http.MethodGet, "/api/ping", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestGatewayLocalRateLimit(t *testing.T) {
	f := newGatewayFixture(t)
	f.pipeline.Limiter = engine.NewRateLimiter(engine.RateLimit{RequestsPerWindow: 1, WindowDuration: time.Minute})

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/ping", "").Code)

	rec := f.do(t, http.MethodGet, "/api/ping", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestGatewayUnsupportedMethod(t *testing.T) {
	f := newGatewayFixture(t)

	rec := f.do(t, http.MethodOptions, "/api/products", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSessionAndRateLimitEndpoints(t *testing.T) {
	f := newGatewayFixture(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/ping", "").Code)

	rec := f.do(t, http.MethodGet, "/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"authenticated":true`)
	assert.NotContains(t, rec.Body.String(), "access-1")

	rec = f.do(t, http.MethodGet, "/rate-limits", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var states []core.RateLimitState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &states))
	require.Len(t, states, 1)
	assert.Equal(t, 1, states[0].Count)

	rec = f.do(t, http.MethodDelete, "/rate-limits?all=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), states[0].Identifier)

	rec = f.do(t, http.MethodGet, "/rate-limits", "")
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := New(Options{Host: "127.0.0.1"})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
	assert.NotEmpty(t, body.Error.RequestID)
}

func TestHealthAndVersionRoutes(t *testing.T) {
	srv := New(Options{Host: "127.0.0.1", Port: 8787})
	assert.Equal(t, "127.0.0.1:8787", srv.Addr())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"shopclient"`)
}
