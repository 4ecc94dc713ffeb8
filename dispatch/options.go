package dispatch

import (
	"github.com/goliatone/go-precise-cache/cache"
	"github.com/goliatone/go-precise-cache/internal/metrics"
	"go.uber.org/zap"
)

// Option configures a Dispatcher.
type Option func(*options)

type options struct {
	chain          cache.Chain
	chainSet       bool
	preciseDefault bool
	locatorOpts    []cache.LocatorOption
	namespace      string
	namespaceSet   bool
	logger         *zap.Logger
	debug          bool
	metrics        *metrics.Metrics
}

// WithChain replaces cache.DefaultChain as the fallback chain.
func WithChain(c cache.Chain) Option {
	return func(o *options) {
		o.chain = c
		o.chainSet = true
	}
}

// WithPreciseDefault sets the process-wide default used when the dispatcher
// has no per-callable choice.
func WithPreciseDefault(enabled bool) Option {
	return func(o *options) {
		o.preciseDefault = enabled
	}
}

// WithLocatorOptions configures the precise locators the dispatcher builds.
func WithLocatorOptions(opts ...cache.LocatorOption) Option {
	return func(o *options) {
		o.locatorOpts = append(o.locatorOpts, opts...)
	}
}

// WithNamespace prefixes every key the dispatcher stores. It defaults to the
// origin name, so dispatchers returning different types never share entries.
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
		o.namespaceSet = true
	}
}

// WithLogger sets the logger used when the context carries none.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDebug logs every cache hit and miss.
func WithDebug(enabled bool) Option {
	return func(o *options) {
		o.debug = enabled
	}
}

// WithMetrics replaces the process-wide collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
