// Package cache turns compiled units into cache keys and stores the artifacts
// compiled from them.
//
// # Locators and strategies
//
// A Locator names the cache entry of one unit with two strings: a long
// SourceStamp and a short Disambiguator. Key joins them with the strategy name
// into the storage key.
//
// Strategies produce locators. They are tried in order through a Chain and the
// first one that applies wins:
//
//   - PreciseStrategy fingerprints the unit's instructions together with the
//     globals it references (see package fingerprint). It applies to every well
//     formed unit, so when it leads a chain nothing after it runs.
//   - SourceStrategy keys the unit by the modification time and size of the
//     file it came from. Editing a global that lives elsewhere does not change
//     the key, which is the staleness the precise strategy removes.
//
// DefaultChain holds the coarse strategies. PreciseChain returns a copy with
// PreciseStrategy in front and leaves the base chain untouched:
//
//	chain := cache.PreciseChain(cache.DefaultChain())
//	loc, err := chain.Locate(unit, cache.Origin{Path: "render.expr", Line: 1, Name: "render"})
//	if err != nil {
//		return err
//	}
//	key := cache.Key(loc)
//
// When no strategy applies Locate returns an error matching ErrNoLocator.
//
// # Storage
//
// CacheService is the read-through store for compiled artifacts. The default
// implementation returned by NewCacheService is backed by sturdyc; concurrent
// misses on one key share a single compilation.
//
//	prog, err := cache.GetOrFetch(ctx, svc, key, func(ctx context.Context) (*vm.Program, error) {
//		return compile(src)
//	})
//
// # Configuration
//
// Config carries the store settings plus the process-wide precise default.
// ConfigFromEnv reads PRECISE_CACHE and PRECISE_CACHE_DEBUG. A dispatcher's
// own opt-in or opt-out always takes precedence over PreciseByDefault.
package cache
