package di

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-precise-cache/cache"
	"github.com/goliatone/go-precise-cache/dispatch"
	"github.com/goliatone/go-precise-cache/fingerprint"
	"github.com/goliatone/go-precise-cache/internal/metrics"
	"github.com/goliatone/go-precise-cache/pkg/logging"
	"go.uber.org/zap"
)

// Container wires the artifact store, the strategy chain, logging and metrics
// shared by every dispatcher of a process.
type Container struct {
	config  cache.Config
	store   cache.CacheService
	chain   cache.Chain
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a Container.
type Option func(*Container)

// WithChain replaces cache.DefaultChain as the fallback chain.
func WithChain(chain cache.Chain) Option {
	return func(c *Container) {
		c.chain = chain
	}
}

// WithLogger replaces logging.DefaultLogger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics replaces the process-wide collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Container) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewContainer validates config and builds the store.
func NewContainer(config cache.Config, opts ...Option) (*Container, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := cache.NewCacheService(config)
	if err != nil {
		return nil, err
	}

	c := &Container{
		config: config,
		store:  store,
		chain:  cache.DefaultChain(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.DefaultLogger()
	}
	if c.metrics == nil {
		c.metrics = metrics.Default()
	}

	return c, nil
}

// NewContainerWithDefaults builds a container from cache.DefaultConfig.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(cache.DefaultConfig(), opts...)
}

// NewContainerFromEnv builds a container from cache.ConfigFromEnv.
func NewContainerFromEnv(opts ...Option) (*Container, error) {
	config, err := cache.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewContainer(config, opts...)
}

// CacheService returns the shared artifact store.
func (c *Container) CacheService() cache.CacheService {
	return c.store
}

// Chain returns the fallback chain given to dispatchers.
func (c *Container) Chain() cache.Chain {
	return c.chain
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// Logger returns the logger given to dispatchers.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Purge removes every stored artifact under namespace, including entries
// stored by dispatchers that no longer exist. The namespace must not be empty.
func (c *Container) Purge(ctx context.Context, namespace string) error {
	if namespace == "" {
		return goerrors.New("purge needs a namespace", goerrors.CategoryBadInput).
			WithTextCode("PURGE_EMPTY_NAMESPACE")
	}
	deleter, ok := c.store.(cache.PrefixDeleter)
	if !ok {
		return goerrors.New("cache service cannot delete by prefix", goerrors.CategoryOperation).
			WithTextCode("PURGE_UNSUPPORTED")
	}
	return deleter.DeleteByPrefix(ctx, namespace+cache.KeySeparator)
}

// NewDispatcher builds a dispatcher wired to the container. opts are applied
// after the container defaults, so they can override any of them.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewDispatcher[*Shader](container, unit, origin, compileShader)
func NewDispatcher[T any](c *Container, u fingerprint.Unit, origin cache.Origin, compile dispatch.Compiler[T], opts ...dispatch.Option) *dispatch.Dispatcher[T] {
	defaults := []dispatch.Option{
		dispatch.WithChain(c.chain),
		dispatch.WithPreciseDefault(c.config.PreciseByDefault),
		dispatch.WithLocatorOptions(c.config.LocatorOptions()...),
		dispatch.WithLogger(c.logger),
		dispatch.WithDebug(c.config.Debug),
		dispatch.WithMetrics(c.metrics),
	}
	return dispatch.New(u, origin, compile, c.store, append(defaults, opts...)...)
}
