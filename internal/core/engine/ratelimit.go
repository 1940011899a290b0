package engine

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/digitalplanet/shopclient/internal/core"
)

// RateLimiter enforces a sliding-window request budget per identifier.
//
// Each identifier keeps the timestamps of its admitted requests. Entries older
// than the window are pruned on every check, so a burst is admitted again as
// soon as the oldest entry expires. State lives in memory only.
type RateLimiter struct {
	Limit     RateLimit
	Overrides map[string]RateLimit
	Clock     func() time.Time
	Margin    float64

	mu      sync.Mutex
	windows map[string]*window
}

// RateLimit represents a rate limit window.
type RateLimit struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// DefaultLimit matches the storefront client: 100 requests per minute.
var DefaultLimit = RateLimit{RequestsPerWindow: 100, WindowDuration: time.Minute}

type window struct {
	mu      sync.Mutex
	hits    []time.Time
	backoff time.Time
}

// NewRateLimiter returns a limiter with the given default limit.
func NewRateLimiter(limit RateLimit) *RateLimiter {
	return &RateLimiter{Limit: limit}
}

// Allow checks the identifier against its limit and records the request when admitted.
// When denied, wait is the time until the oldest entry leaves the window.
func (r *RateLimiter) Allow(identifier string) (bool, time.Duration) {
	if r == nil {
		return true, 0
	}
	return r.CheckAndRecord(identifier, r.getLimit(identifier))
}

// CheckAndRecord applies an explicit limit to the identifier.
func (r *RateLimiter) CheckAndRecord(identifier string, limit RateLimit) (bool, time.Duration) {
	if r == nil {
		return true, 0
	}
	limit = normalizeLimit(limit)

	w := r.window(normalizeIdentifier(identifier))
	w.mu.Lock()
	defer w.mu.Unlock()

	now := r.now()
	if now.Before(w.backoff) {
		return false, w.backoff.Sub(now)
	}

	w.prune(now.Add(-limit.WindowDuration))
	if len(w.hits) >= limit.RequestsPerWindow {
		return false, w.hits[0].Add(limit.WindowDuration).Sub(now)
	}

	w.hits = append(w.hits, now)
	return true, 0
}

// Record429 blocks the identifier until retryAfter has elapsed.
func (r *RateLimiter) Record429(identifier string, retryAfter time.Duration) {
	if r == nil || retryAfter <= 0 {
		return
	}

	w := r.window(normalizeIdentifier(identifier))
	w.mu.Lock()
	defer w.mu.Unlock()

	until := r.now().Add(retryAfter)
	if until.After(w.backoff) {
		w.backoff = until
	}
}

// Reset forgets all state for the identifier.
func (r *RateLimiter) Reset(identifier string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.windows, normalizeIdentifier(identifier))
}

// Snapshot returns the live window of every identifier, sorted by identifier.
func (r *RateLimiter) Snapshot() []core.RateLimitState {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	ids := make([]string, 0, len(r.windows))
	for id := range r.windows {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)

	now := r.now()
	states := make([]core.RateLimitState, 0, len(ids))
	for _, id := range ids {
		limit := normalizeLimit(r.getLimit(id))
		w := r.window(id)

		w.mu.Lock()
		w.prune(now.Add(-limit.WindowDuration))
		state := core.RateLimitState{Identifier: id, Count: len(w.hits)}
		if len(w.hits) > 0 {
			state.Oldest = w.hits[0]
			state.Newest = w.hits[len(w.hits)-1]
		}
		w.mu.Unlock()

		states = append(states, state)
	}
	return states
}

// ApplyOverrides merges per-identifier request overrides (per minute).
func (r *RateLimiter) ApplyOverrides(overrides map[string]int) {
	if r == nil || len(overrides) == 0 {
		return
	}

	if r.Overrides == nil {
		r.Overrides = make(map[string]RateLimit, len(overrides))
	}

	for identifier, value := range overrides {
		identifier = strings.TrimSpace(identifier)
		if identifier == "" || value <= 0 {
			continue
		}
		r.Overrides[identifier] = RateLimit{
			RequestsPerWindow: value,
			WindowDuration:    time.Minute,
		}
	}
}

// ApplySafetyMargin adjusts the effective request limits by a ratio (0-1].
func (r *RateLimiter) ApplySafetyMargin(margin float64) {
	if r == nil {
		return
	}
	if margin <= 0 || margin > 1 {
		return
	}
	r.Margin = margin
}

func (r *RateLimiter) window(identifier string) *window {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.windows == nil {
		r.windows = make(map[string]*window)
	}
	w, ok := r.windows[identifier]
	if !ok {
		w = &window{}
		r.windows[identifier] = w
	}
	return w
}

func (w *window) prune(threshold time.Time) {
	keep := 0
	for keep < len(w.hits) && !w.hits[keep].After(threshold) {
		keep++
	}
	if keep > 0 {
		w.hits = append(w.hits[:0], w.hits[keep:]...)
	}
}

func (r *RateLimiter) getLimit(identifier string) RateLimit {
	if limit, ok := r.Overrides[identifier]; ok {
		return r.applyMargin(limit)
	}
	if r.Limit.RequestsPerWindow > 0 {
		return r.applyMargin(r.Limit)
	}
	return r.applyMargin(DefaultLimit)
}

func (r *RateLimiter) now() time.Time {
	if r != nil && r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}

func (r *RateLimiter) applyMargin(limit RateLimit) RateLimit {
	if r == nil || r.Margin <= 0 || r.Margin > 1 {
		return limit
	}
	adjusted := int(math.Floor(float64(limit.RequestsPerWindow) * r.Margin))
	if adjusted < 1 {
		adjusted = 1
	}
	limit.RequestsPerWindow = adjusted
	return limit
}

func normalizeLimit(limit RateLimit) RateLimit {
	if limit.RequestsPerWindow <= 0 {
		limit.RequestsPerWindow = DefaultLimit.RequestsPerWindow
	}
	if limit.WindowDuration <= 0 {
		limit.WindowDuration = DefaultLimit.WindowDuration
	}
	return limit
}

func normalizeIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return core.AnonymousIdentity
	}
	return identifier
}
