// Package config loads shopclient configuration: built-in environment
// profiles, an optional YAML file, .env, SHOPCLIENT_* variables, and runtime
// overrides, decoded into a typed Config.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// AppName names config and data directories.
	AppName = "shopclient"

	// EnvPrefix prefixes environment variable overrides.
	EnvPrefix = "SHOPCLIENT"

	defaultEnvFile = ".env"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// Options controls where Load looks for configuration.
type Options struct {
	// ConfigFile is an explicit YAML file; reading it must succeed.
	ConfigFile string

	// EnvFile is the dotenv file to load. Defaults to ./.env; missing is fine.
	EnvFile string

	// SkipEnvFile disables dotenv loading.
	SkipEnvFile bool
}

// Load resolves configuration and validates the active profile.
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(ctx context.Context, opts Options, runtimeOverrides ...map[string]any) (*Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !opts.SkipEnvFile {
		if err := loadEnvFile(opts.EnvFile); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v, opts.ConfigFile); err != nil {
		return nil, err
	}

	for _, overrides := range runtimeOverrides {
		for key, value := range flattenOverrides("", overrides) {
			v.Set(key, value)
		}
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.Environment == "" {
		cfg.Environment = DetectEnvironment(cfg.BaseURL)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)

	return cfg, nil
}

// SetDefaults registers every known key so environment variables can bind to it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("environment", "")
	v.SetDefault("base_url", "")

	v.SetDefault("api.development.base_url", "http://localhost:5000/api")
	v.SetDefault("api.development.timeout", "10s")
	v.SetDefault("api.development.retry_attempts", 3)
	v.SetDefault("api.staging.base_url", "https://shop-34y5grpcm-reslifes-projects.vercel.app/api")
	v.SetDefault("api.staging.timeout", "15s")
	v.SetDefault("api.staging.retry_attempts", 3)
	v.SetDefault("api.production.base_url", "https://shop-34y5grpcm-reslifes-projects.vercel.app/api")
	v.SetDefault("api.production.timeout", "20s")
	v.SetDefault("api.production.retry_attempts", 5)

	v.SetDefault("security.strict_markup", false)
	v.SetDefault("security.disable_sql_heuristics", false)
	v.SetDefault("security.disable_xss_heuristics", false)
	v.SetDefault("security.raw_fields", []string{"password", "newPassword", "oldPassword", "currentPassword", "confirmPassword", "token", "refreshToken"})

	v.SetDefault("rate_limit.max_requests", 100)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.margin", 1.0)
	v.SetDefault("rate_limit.overrides", map[string]int{})

	v.SetDefault("social_login", map[string]any{})

	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", "")
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")
	v.SetDefault("store.redis_addr", "")
	v.SetDefault("store.redis_db", 0)

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8787)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("debug", false)
}

// Validate checks that the active profile is usable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	active := c.Active()
	if strings.TrimSpace(active.BaseURL) == "" {
		return errors.New("API base URL is not configured")
	}
	parsed, err := url.Parse(active.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid API base URL %q", active.BaseURL)
	}
	if active.Timeout < 0 {
		return fmt.Errorf("invalid API timeout %s", active.Timeout)
	}
	if c.RateLimit.MaxRequests < 0 {
		return fmt.Errorf("invalid rate_limit.max_requests %d", c.RateLimit.MaxRequests)
	}
	if c.RateLimit.Window < 0 {
		return fmt.Errorf("invalid rate_limit.window %s", c.RateLimit.Window)
	}
	if c.RateLimit.Margin < 0 || c.RateLimit.Margin > 1 {
		return fmt.Errorf("invalid rate_limit.margin %v", c.RateLimit.Margin)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unsupported logging.format: %s", c.Logging.Format)
	}

	switch strings.TrimSpace(c.Store.Driver) {
	case "", "libsql":
	case "redis":
		if strings.TrimSpace(c.Store.RedisAddr) == "" {
			return errors.New("store.redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
	return nil
}

// DetectEnvironment maps a base URL host onto an environment name.
// An empty or unparseable URL is development.
func DetectEnvironment(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return EnvDevelopment
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Hostname() == "" {
		return EnvDevelopment
	}

	host := strings.ToLower(parsed.Hostname())
	switch {
	case host == "localhost" || host == "127.0.0.1":
		return EnvDevelopment
	case strings.Contains(host, "vercel.app") || strings.Contains(host, "staging"):
		return EnvStaging
	default:
		return EnvProduction
	}
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(AppName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(AppName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	dataDir := gfconfig.GetAppDataDir(AppName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + AppName + ".db"
	}
	return filepath.Join(dataDir, AppName+".db")
}

func loadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}

	// godotenv.Load never overrides variables already set in the process.
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func readConfigFile(v *viper.Viper, path string) error {
	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
		return nil
	}

	if dir := gfconfig.GetAppConfigDir(AppName); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

// flattenOverrides turns nested maps into dotted viper keys.
func flattenOverrides(prefix string, in map[string]any) map[string]any {
	out := map[string]any{}
	for key, value := range in {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok && len(nested) > 0 {
			for k, v := range flattenOverrides(full, nested) {
				out[k] = v
			}
			continue
		}
		out[full] = value
	}
	return out
}

// durationOr returns d when positive, otherwise fallback.
func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

// RequestTimeout returns the active timeout, defaulting to ten seconds.
func (c *Config) RequestTimeout() time.Duration {
	return durationOr(c.Active().Timeout, 10*time.Second)
}
