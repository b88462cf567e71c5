package authflow

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evergrow360/authflow/credstore"
)

// Builder assembles a [Client]. Every option is optional except the base
// URL; credentials default to an in-memory store when no durable backend
// is supplied.
type Builder struct {
	config     Config
	httpClient *http.Client
	store      credstore.Store
	redis      *redis.Client
	logger     *slog.Logger

	built bool
}

// New starts a Builder with default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets the API origin, e.g. "https://api.evergrow360.com".
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.BaseURL = baseURL
	return b
}

// WithHTTPClient replaces the underlying HTTP client. Per-call timeouts
// still come from [HTTPConfig].
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithStore sets the durable credential backend directly. Takes precedence
// over WithRedis.
func (b *Builder) WithStore(store credstore.Store) *Builder {
	b.store = store
	return b
}

// WithRedis persists credentials in Redis under the configured key prefix.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithProactiveMargin overrides the safety margin before expiry at which
// proactive refresh fires.
func (b *Builder) WithProactiveMargin(margin time.Duration) *Builder {
	b.config.Refresh.ProactiveMargin = margin
	return b
}

// WithMetricsEnabled toggles the internal counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, restores any persisted credential
// pair, and returns a ready Client. A Builder builds once.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	store := b.store
	if store == nil {
		if b.redis != nil {
			store = credstore.NewRedis(b.redis, cfg.Storage.RedisPrefix)
		} else {
			store = credstore.NewMemory()
		}
	}

	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	client := &Client{
		config:     cfg,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		metrics:    NewMetrics(cfg.Metrics),
	}
	client.keeper = newKeeper(store, logger)
	client.keeper.persistFailed = func() { client.metrics.Inc(MetricPersistFailure) }
	client.scheduler = newRefreshScheduler(cfg.Refresh.ProactiveMargin, client.proactiveRefresh)

	restoreCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.RequestTimeout)
	defer cancel()
	client.keeper.restore(restoreCtx)
	if access := client.keeper.access(); access != "" {
		client.scheduleFor(access)
	}

	b.built = true

	return client, nil
}
