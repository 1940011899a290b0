package config

import (
	"strings"
	"time"
)

// Environment names with built-in API profiles.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Config represents the complete client configuration.
// Sources, lowest to highest precedence: built-in defaults, YAML config file,
// .env file, SHOPCLIENT_* environment variables, runtime overrides.
type Config struct {
	// Environment selects the API profile. Empty means detect from BaseURL.
	Environment string `mapstructure:"environment"`

	// BaseURL overrides the base URL of the selected profile.
	BaseURL string `mapstructure:"base_url"`

	API         map[string]APIConfig            `mapstructure:"api"`
	Security    SecurityConfig                  `mapstructure:"security"`
	RateLimit   RateLimitConfig                 `mapstructure:"rate_limit"`
	SocialLogin map[string]SocialProviderConfig `mapstructure:"social_login"`
	Store       StoreConfig                     `mapstructure:"store"`
	Server      ServerConfig                    `mapstructure:"server"`
	Logging     LoggingConfig                   `mapstructure:"logging"`
	Metrics     MetricsConfig                   `mapstructure:"metrics"`
	Debug       bool                            `mapstructure:"debug"`
}

// APIConfig is one environment profile.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`

	// RetryAttempts is carried for parity with deployed configs; the request
	// pipeline never retries on its own.
	RetryAttempts int `mapstructure:"retry_attempts"`
}

// SecurityConfig tunes request screening.
type SecurityConfig struct {
	// StrictMarkup rejects any markup that looks like script injection,
	// even when HTML escaping would neutralise it.
	StrictMarkup bool `mapstructure:"strict_markup"`

	DisableSQLHeuristics bool `mapstructure:"disable_sql_heuristics"`
	DisableXSSHeuristics bool `mapstructure:"disable_xss_heuristics"`

	// RawFields are body fields sent verbatim: neither screened nor escaped.
	RawFields []string `mapstructure:"raw_fields"`
}

// RateLimitConfig configures the client-side sliding window.
type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`

	// Margin scales MaxRequests down (0 < margin <= 1).
	Margin float64 `mapstructure:"margin"`

	// Overrides maps identifiers to a custom per-window budget.
	Overrides map[string]int `mapstructure:"overrides"`
}

// SocialProviderConfig adds OAuth query parameters to a social login URL.
type SocialProviderConfig struct {
	ClientID    string `mapstructure:"client_id"`
	RedirectURI string `mapstructure:"redirect_uri"`
	Scope       string `mapstructure:"scope"`
}

// StoreConfig selects where credentials persist.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
	RedisAddr string `mapstructure:"redis_addr"`
	RedisDB   int    `mapstructure:"redis_db"`
}

// ServerConfig configures the local gateway started by serve.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Format selects console text (SIMPLE profile) or json (STRUCTURED profile)
	Format string `mapstructure:"format"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`
}

// Active returns the profile for the resolved environment, falling back to
// development, with BaseURL applied on top.
func (c *Config) Active() APIConfig {
	if c == nil {
		return APIConfig{}
	}
	profile, ok := c.API[c.Environment]
	if !ok {
		profile = c.API[EnvDevelopment]
	}
	if base := strings.TrimSpace(c.BaseURL); base != "" {
		profile.BaseURL = base
	}
	profile.BaseURL = strings.TrimRight(profile.BaseURL, "/")
	return profile
}

// APIURL joins endpoint onto the active base URL.
func (c *Config) APIURL(endpoint string) string {
	return c.Active().BaseURL + endpoint
}
