package cacheinfra

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/viccon/sturdyc"
)

// Config holds the sturdyc settings for the compiled artifact store.
type Config struct {
	// Capacity is the maximum number of compiled artifacts kept in memory.
	Capacity int

	// NumShards determines the number of shards. More shards reduce lock
	// contention between dispatchers compiling concurrently.
	NumShards int

	// TTL is how long an artifact stays cached. Precise keys change whenever
	// the unit changes, so TTL only bounds the lifetime of stale entries.
	TTL time.Duration

	// EvictionPercentage is the share of entries evicted when Capacity is
	// reached. Must be between 1 and 100.
	EvictionPercentage int

	// EarlyRefresh recompiles hot entries in the background before they
	// expire. Nil disables it.
	EarlyRefresh *EarlyRefreshConfig

	// MissingRecordStorage remembers compilations that reported
	// sturdyc.ErrNotFound.
	MissingRecordStorage bool

	// EvictionInterval sets how often expired entries are swept. Zero keeps
	// the sturdyc default.
	EvictionInterval time.Duration
}

// EarlyRefreshConfig configures early refresh behavior.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig returns the store defaults. Compilation is deterministic, so
// early refresh and missing record storage are off.
func DefaultConfig() Config {
	return Config{
		Capacity:           4096,
		NumShards:          64,
		TTL:                time.Hour,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions maps the optional settings to sturdyc options. Capacity,
// NumShards, TTL and EvictionPercentage go to sturdyc.New directly.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}

	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks the configuration. Failures are go-errors validation errors
// carrying one FieldError per offending field.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Nanosecond)),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
		validation.Field(&c.EarlyRefresh),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid cache store configuration")
	}
	return nil
}

// Validate implements validation.Validatable so nested settings are checked
// by Config.Validate.
func (e *EarlyRefreshConfig) Validate() error {
	if e == nil {
		return nil
	}
	return validation.ValidateStruct(e,
		validation.Field(&e.MinAsyncRefreshTime, validation.Min(time.Duration(0))),
		validation.Field(&e.MaxAsyncRefreshTime, validation.Min(time.Duration(0))),
		validation.Field(&e.SyncRefreshTime, validation.Min(time.Duration(0))),
		validation.Field(&e.RetryBaseDelay, validation.Min(time.Duration(0))),
	)
}

// sturdycService stores compiled artifacts in a sturdyc client.
type sturdycService struct {
	client *sturdyc.Client[entry]
}

// entry boxes a stored artifact. sturdyc type-asserts every fetch result, and
// a nil interface fails that assertion even when the fetch only returned an
// error.
type entry struct {
	value any
}

// NewSturdycService validates cfg and builds the store.
func NewSturdycService(cfg Config) (*sturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[entry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &sturdycService{client: client}, nil
}

// validateFetchFn checks fetchFn has the shape func(context.Context) (T, error).
func validateFetchFn(fetchFn any) error {
	invalid := func(msg string) error {
		return goerrors.NewValidation("invalid fetch function",
			goerrors.FieldError{Field: "fetchFn", Message: msg})
	}

	if fetchFn == nil {
		return invalid("cannot be nil")
	}

	fnType := reflect.TypeOf(fetchFn)
	if fnType.Kind() != reflect.Func {
		return invalid("must be a function")
	}
	if fnType.NumIn() != 1 || fnType.NumOut() != 2 {
		return invalid("must have signature func(context.Context) (T, error)")
	}

	contextType := reflect.TypeOf((*context.Context)(nil)).Elem()
	if !fnType.In(0).Implements(contextType) {
		return invalid("first parameter must be context.Context")
	}

	errorType := reflect.TypeOf((*error)(nil)).Elem()
	if !fnType.Out(1).Implements(errorType) {
		return invalid("second return value must be error")
	}

	if reflect.ValueOf(fetchFn).IsNil() {
		return invalid("cannot be nil")
	}

	return nil
}

// GetOrFetch returns the artifact stored under key, compiling it with fetchFn
// on a miss. Concurrent misses on the same key share one fetchFn call.
func (s *sturdycService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	stored, err := s.client.GetOrFetch(ctx, key, func(ctx context.Context) (entry, error) {
		value, err := callFetchFn(ctx, fetchFn)
		return entry{value: value}, err
	})
	if err != nil {
		return nil, err
	}
	return stored.value, nil
}

// callFetchFn calls a pre-validated func(context.Context) (T, error).
func callFetchFn(ctx context.Context, fetchFn any) (any, error) {
	if fn, ok := fetchFn.(func(context.Context) (any, error)); ok {
		return fn(ctx)
	}

	results := reflect.ValueOf(fetchFn).Call([]reflect.Value{reflect.ValueOf(ctx)})

	var result any
	if rv := results[0]; rv.IsValid() && rv.CanInterface() {
		result = rv.Interface()
	}

	var err error
	if ev := results[1]; ev.IsValid() && !ev.IsNil() {
		err = ev.Interface().(error)
	}

	return result, err
}

// Delete removes a single artifact.
func (s *sturdycService) Delete(ctx context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix removes every artifact whose key starts with prefix.
func (s *sturdycService) DeleteByPrefix(ctx context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// InvalidateKeys removes the given artifacts.
func (s *sturdycService) InvalidateKeys(ctx context.Context, keys []string) error {
	for _, key := range keys {
		s.client.Delete(key)
	}
	return nil
}

// Keys returns the stored keys in sorted order.
func (s *sturdycService) Keys() []string {
	keys := s.client.ScanKeys()
	sort.Strings(keys)
	return keys
}
