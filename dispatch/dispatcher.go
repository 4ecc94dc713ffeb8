package dispatch

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-precise-cache/cache"
	"github.com/goliatone/go-precise-cache/fingerprint"
	"github.com/goliatone/go-precise-cache/internal/metrics"
	"github.com/goliatone/go-precise-cache/pkg/logging"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

// ErrNoCompiler is returned by Compile when the dispatcher was built without
// a compiler.
var ErrNoCompiler = errors.New("dispatch: no compiler")

// Result tells how Compile obtained its artifact.
type Result int

const (
	// Uncached means no strategy produced a key and the unit was compiled
	// without touching the store.
	Uncached Result = iota
	// Miss means the artifact was compiled after the lookup began, by this
	// call or by a concurrent one it waited on.
	Miss
	// Hit means the artifact came from the store.
	Hit
)

func (r Result) String() string {
	switch r {
	case Hit:
		return metrics.ResultHit
	case Miss:
		return metrics.ResultMiss
	default:
		return metrics.ResultUncached
	}
}

// builds numbers every compiled artifact, so a lookup can tell an artifact
// built while it waited from one that was already stored.
var builds atomic.Uint64

type built[T any] struct {
	artifact T
	seq      uint64
}

// Compiler turns a unit into an artifact.
type Compiler[T any] func(ctx context.Context, u fingerprint.Unit) (T, error)

const (
	preciseUnset int32 = iota
	preciseOn
	preciseOff
)

// Dispatcher compiles one unit through a cache. Every Compile resolves the
// key again, so edits to the unit or its referenced globals are picked up by
// the precise strategy without invalidation.
type Dispatcher[T any] struct {
	unit    fingerprint.Unit
	origin  cache.Origin
	compile Compiler[T]
	store   cache.CacheService

	chain          cache.Chain
	preciseChain   cache.Chain
	preciseDefault bool
	precise        atomic.Int32

	namespace string
	logger    *zap.Logger
	debug     bool
	metrics   *metrics.Metrics

	keys *xsync.MapOf[string, struct{}]
}

// New creates a dispatcher for u. A nil store compiles every call.
func New[T any](u fingerprint.Unit, origin cache.Origin, compile Compiler[T], store cache.CacheService, opts ...Option) *Dispatcher[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.chainSet {
		o.chain = cache.DefaultChain()
	}
	if !o.namespaceSet {
		o.namespace = origin.Name
	}
	if o.logger == nil {
		o.logger = logging.DefaultLogger()
	}
	if o.metrics == nil {
		o.metrics = metrics.Default()
	}

	return &Dispatcher[T]{
		unit:           u,
		origin:         origin,
		compile:        compile,
		store:          store,
		chain:          o.chain,
		preciseChain:   cache.PreciseChain(o.chain, o.locatorOpts...),
		preciseDefault: o.preciseDefault,
		namespace:      o.namespace,
		logger:         o.logger.With(zap.String("unit", origin.Name)),
		debug:          o.debug,
		metrics:        o.metrics,
		keys:           xsync.NewMapOf[string, struct{}](),
	}
}

// EnablePreciseCaching opts this dispatcher into precise keys regardless of
// the process-wide default.
func (d *Dispatcher[T]) EnablePreciseCaching() { d.precise.Store(preciseOn) }

// DisablePreciseCaching opts this dispatcher out of precise keys regardless
// of the process-wide default.
func (d *Dispatcher[T]) DisablePreciseCaching() { d.precise.Store(preciseOff) }

// ResetPreciseCaching drops the per-callable choice so the process-wide
// default applies again.
func (d *Dispatcher[T]) ResetPreciseCaching() { d.precise.Store(preciseUnset) }

// PreciseCachingEnabled reports whether the next lookup uses precise keys.
func (d *Dispatcher[T]) PreciseCachingEnabled() bool {
	switch d.precise.Load() {
	case preciseOn:
		return true
	case preciseOff:
		return false
	default:
		return d.preciseDefault
	}
}

// Chain returns the chain the next lookup walks.
func (d *Dispatcher[T]) Chain() cache.Chain {
	if d.PreciseCachingEnabled() {
		return d.preciseChain
	}
	return d.chain
}

// Origin returns the origin the dispatcher was built with.
func (d *Dispatcher[T]) Origin() cache.Origin { return d.origin }

// Locator resolves the current locator of the unit.
func (d *Dispatcher[T]) Locator() (cache.Locator, error) {
	return d.Chain().Locate(d.unit, d.origin)
}

// Key returns the storage key for loc.
func (d *Dispatcher[T]) Key(loc cache.Locator) string {
	if d.namespace == "" {
		return cache.Key(loc)
	}
	return d.namespace + cache.KeySeparator + cache.Key(loc)
}

// Compile returns the artifact for the unit, compiling it on a miss.
func (d *Dispatcher[T]) Compile(ctx context.Context) (T, Result, error) {
	var zero T
	if d.compile == nil {
		return zero, Uncached, goerrors.Wrap(ErrNoCompiler, goerrors.CategoryBadInput,
			"cannot compile "+d.origin.Name).WithTextCode("NO_COMPILER")
	}

	logger := logging.FromContext(ctx, d.logger)

	if d.store == nil {
		return d.compileUncached(ctx, logger, "")
	}

	start := time.Now()
	loc, err := d.Locator()
	if err != nil {
		if errors.Is(err, cache.ErrNoLocator) {
			return d.compileUncached(ctx, logger, err.Error())
		}
		d.metrics.ObserveLookup("", metrics.ResultError)
		return zero, Uncached, err
	}
	d.metrics.ObserveLocate(loc.Strategy(), time.Since(start).Seconds())
	d.noteExcluded(logger, loc)

	key := d.Key(loc)
	d.keys.Store(key, struct{}{})

	seen := builds.Load()
	stored, err := cache.GetOrFetch[built[T]](ctx, d.store, key, func(ctx context.Context) (built[T], error) {
		artifact, err := d.timedCompile(ctx)
		if err != nil {
			return built[T]{}, err
		}
		return built[T]{artifact: artifact, seq: builds.Add(1)}, nil
	})
	if err != nil {
		d.keys.Delete(key)
		d.metrics.ObserveLookup(loc.Strategy(), metrics.ResultError)
		logger.Debug("compile failed",
			zap.String("key", key),
			zap.String("strategy", loc.Strategy()),
			zap.Error(err),
		)
		return zero, Miss, err
	}

	result := Hit
	if stored.seq > seen {
		result = Miss
	}
	d.metrics.ObserveLookup(loc.Strategy(), result.String())
	if d.debug {
		msg := "data loaded"
		if result == Miss {
			msg = "data saved"
		}
		logger.Info(msg,
			zap.String("key", key),
			zap.String("strategy", loc.Strategy()),
			zap.String("disambiguator", loc.Disambiguator()),
		)
	}

	return stored.artifact, result, nil
}

func (d *Dispatcher[T]) compileUncached(ctx context.Context, logger *zap.Logger, reason string) (T, Result, error) {
	d.metrics.ObserveLookup("", metrics.ResultUncached)
	if d.debug && reason != "" {
		logger.Info("compiling without cache", zap.String("reason", reason))
	}
	artifact, err := d.timedCompile(ctx)
	return artifact, Uncached, err
}

func (d *Dispatcher[T]) timedCompile(ctx context.Context) (T, error) {
	start := time.Now()
	defer func() { d.metrics.ObserveCompile(time.Since(start).Seconds()) }()
	return d.compile(ctx, d.unit)
}

func (d *Dispatcher[T]) noteExcluded(logger *zap.Logger, loc cache.Locator) {
	precise, ok := loc.(*cache.PreciseLocator)
	if !ok {
		return
	}
	excluded := precise.Fingerprint().Excluded()
	if len(excluded) == 0 {
		return
	}
	d.metrics.AddExcluded(len(excluded))
	logger.Debug("globals left out of fingerprint", zap.Strings("globals", excluded))
}

// Keys returns the keys this dispatcher has stored, sorted.
func (d *Dispatcher[T]) Keys() []string {
	keys := make([]string, 0, d.keys.Size())
	d.keys.Range(func(key string, _ struct{}) bool {
		keys = append(keys, key)
		return true
	})
	sort.Strings(keys)
	return keys
}

// Invalidate removes every entry this dispatcher has stored.
func (d *Dispatcher[T]) Invalidate(ctx context.Context) error {
	if d.store == nil {
		return nil
	}

	keys := d.Keys()
	if err := cache.InvalidateKeys(ctx, d.store, keys); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "invalidate "+d.origin.Name)
	}
	for _, key := range keys {
		d.keys.Delete(key)
	}
	d.metrics.AddInvalidations(len(keys))
	return nil
}
