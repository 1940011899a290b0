package core

import "time"

// RateLimitState captures the sliding window for one identifier.
type RateLimitState struct {
	Identifier string    `json:"identifier"`
	Count      int       `json:"count"`
	Oldest     time.Time `json:"oldest,omitempty"`
	Newest     time.Time `json:"newest,omitempty"`
}

// AnonymousIdentity is the rate limit key used when no user is known.
const AnonymousIdentity = "anonymous"
