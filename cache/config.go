package cache

import (
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-precise-cache/fingerprint"
	"github.com/goliatone/go-precise-cache/internal/cacheinfra"
	"github.com/spf13/cast"
)

const (
	// EnvPrecise holds the process-wide default for precise caching.
	EnvPrecise = "PRECISE_CACHE"
	// EnvDebug turns on cache hit/miss logging.
	EnvDebug = "PRECISE_CACHE_DEBUG"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Capacity             int
	NumShards            int
	TTL                  time.Duration
	EvictionPercentage   int
	EarlyRefresh         *EarlyRefreshConfig
	MissingRecordStorage bool
	EvictionInterval     time.Duration

	// PreciseByDefault enables precise keys for dispatchers that made no
	// per-callable choice. A per-callable choice always wins.
	PreciseByDefault bool
	// Debug logs every lookup with its outcome.
	Debug bool
	// DisambiguatorLength is how many stamp characters form the short tag.
	DisambiguatorLength int
}

// EarlyRefreshConfig mirrors the underlying sturdyc early refresh options.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
// Precise caching is off unless a dispatcher opts in.
func DefaultConfig() Config {
	cfg := convertFromInternal(cacheinfra.DefaultConfig())
	cfg.DisambiguatorLength = fingerprint.DisambiguatorLength
	return cfg
}

// ConfigFromEnv returns DefaultConfig with EnvPrecise and EnvDebug applied.
// Any value cast understands as a bool is accepted ("1", "true", "false", ...).
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	for name, dst := range map[string]*bool{
		EnvPrecise: &cfg.PreciseByDefault,
		EnvDebug:   &cfg.Debug,
	} {
		raw, ok := os.LookupEnv(name)
		if !ok || raw == "" {
			continue
		}
		v, err := cast.ToBoolE(raw)
		if err != nil {
			return Config{}, goerrors.NewValidation("invalid cache environment",
				goerrors.FieldError{Field: name, Message: "must be a boolean, got " + raw, Value: raw})
		}
		*dst = v
	}

	return cfg, nil
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if err := c.toInternal().Validate(); err != nil {
		return err
	}

	err := validation.ValidateStruct(&c,
		validation.Field(&c.DisambiguatorLength, validation.Required, validation.Min(1), validation.Max(64)),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid cache configuration")
	}
	return nil
}

// LocatorOptions returns the precise locator options this configuration implies.
func (c Config) LocatorOptions() []LocatorOption {
	return []LocatorOption{WithDisambiguatorLength(c.DisambiguatorLength)}
}

// NewCacheService constructs the default cache service implementation using the provided configuration.
func NewCacheService(cfg Config) (CacheService, error) {
	svc, err := cacheinfra.NewSturdycService(cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (c Config) toInternal() cacheinfra.Config {
	var early *cacheinfra.EarlyRefreshConfig
	if c.EarlyRefresh != nil {
		early = &cacheinfra.EarlyRefreshConfig{
			MinAsyncRefreshTime: c.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: c.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     c.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      c.EarlyRefresh.RetryBaseDelay,
		}
	}

	return cacheinfra.Config{
		Capacity:             c.Capacity,
		NumShards:            c.NumShards,
		TTL:                  c.TTL,
		EvictionPercentage:   c.EvictionPercentage,
		EarlyRefresh:         early,
		MissingRecordStorage: c.MissingRecordStorage,
		EvictionInterval:     c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	var early *EarlyRefreshConfig
	if cfg.EarlyRefresh != nil {
		early = &EarlyRefreshConfig{
			MinAsyncRefreshTime: cfg.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: cfg.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     cfg.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      cfg.EarlyRefresh.RetryBaseDelay,
		}
	}

	return Config{
		Capacity:             cfg.Capacity,
		NumShards:            cfg.NumShards,
		TTL:                  cfg.TTL,
		EvictionPercentage:   cfg.EvictionPercentage,
		EarlyRefresh:         early,
		MissingRecordStorage: cfg.MissingRecordStorage,
		EvictionInterval:     cfg.EvictionInterval,
	}
}
