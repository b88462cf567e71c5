package authflow

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config is the full client configuration. A zero value is not usable;
// start from the defaults installed by [New] and override through the
// Builder, or supply a complete Config via [Builder.WithConfig].
type Config struct {
	BaseURL   string
	Endpoints EndpointConfig
	HTTP      HTTPConfig
	Refresh   RefreshConfig
	Storage   StorageConfig
	Metrics   MetricsConfig
}

/*
====================================
ENDPOINT CONFIG
====================================
*/

// EndpointConfig holds the auth endpoint paths, relative to BaseURL.
// Defaults follow the Evergrow360 API layout.
type EndpointConfig struct {
	Login    string
	Register string
	Refresh  string
	Logout   string
	Verify   string
}

/*
====================================
HTTP CONFIG
====================================
*/

// HTTPConfig bounds the outbound network calls. RequestTimeout applies to
// business calls whose context carries no deadline; RefreshTimeout bounds
// the refresh call itself, which always runs on a detached context.
type HTTPConfig struct {
	RequestTimeout time.Duration
	RefreshTimeout time.Duration
	UserAgent      string
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls proactive refresh scheduling. ProactiveMargin is
// the safety margin before access-token expiry at which refresh is
// triggered; when the margin has already passed at install time, refresh
// fires immediately.
type RefreshConfig struct {
	ProactiveMargin  time.Duration
	DisableProactive bool
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageConfig names the durable credential keys. The Redis backend
// stores exactly two string values, "<RedisPrefix>:access" and
// "<RedisPrefix>:refresh".
type StorageConfig struct {
	RedisPrefix string
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig enables the internal counters. Disabled metrics cost one
// branch per operation.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		Endpoints: EndpointConfig{
			Login:    "/api/auth/login",
			Register: "/api/auth/register",
			Refresh:  "/api/auth/refresh",
			Logout:   "/api/auth/logout",
			Verify:   "/api/auth/verify-token",
		},
		HTTP: HTTPConfig{
			RequestTimeout: 15 * time.Second,
			RefreshTimeout: 10 * time.Second,
			UserAgent:      "authflow-go",
		},
		Refresh: RefreshConfig{
			ProactiveMargin: 5 * time.Minute,
		},
		Storage: StorageConfig{
			RedisPrefix: "af",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate reports the first configuration error found, or nil.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("BaseURL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("BaseURL must be an absolute URL")
	}
	for _, p := range []string{
		c.Endpoints.Login,
		c.Endpoints.Register,
		c.Endpoints.Refresh,
		c.Endpoints.Logout,
		c.Endpoints.Verify,
	} {
		if !strings.HasPrefix(p, "/") {
			return errors.New("endpoint paths must start with /")
		}
	}
	if c.HTTP.RequestTimeout <= 0 {
		return errors.New("HTTP.RequestTimeout must be > 0")
	}
	if c.HTTP.RefreshTimeout <= 0 {
		return errors.New("HTTP.RefreshTimeout must be > 0")
	}
	if c.Refresh.ProactiveMargin < 0 {
		return errors.New("Refresh.ProactiveMargin must be >= 0")
	}
	if !c.Refresh.DisableProactive && c.Refresh.ProactiveMargin == 0 {
		return errors.New("Refresh.ProactiveMargin must be > 0 when proactive refresh is enabled")
	}
	if strings.TrimSpace(c.Storage.RedisPrefix) == "" {
		return errors.New("Storage.RedisPrefix is required")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	// Config holds only value types; a plain copy is a deep copy.
	return cfg
}
