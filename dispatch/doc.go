// Package dispatch caches the compiled artifact of a unit behind a strategy
// chain.
//
// # Overview
//
// A Dispatcher wraps one unit, its origin and a Compiler. Compile asks the
// active chain for a locator, turns it into a storage key and reads the
// artifact through the store, compiling only on a miss.
//
//	store, _ := cache.NewCacheService(cache.DefaultConfig())
//	d := dispatch.New[*Shader](unit, cache.Origin{Path: path, Line: 12, Name: "blur"}, compileShader, store)
//
//	shader, result, err := d.Compile(ctx) // result is Miss, Hit or Uncached
//
// # Precise Caching
//
// By default the chain is cache.DefaultChain, whose source strategy keys a
// unit by the file it was loaded from. Edits to the globals a unit reads go
// unnoticed until the file changes. Enabling precise caching puts
// cache.PreciseStrategy first, keying the unit by its fingerprint instead:
//
//	d.EnablePreciseCaching()  // this dispatcher only
//	d.DisablePreciseCaching() // opt out even when the process default is on
//	d.ResetPreciseCaching()   // follow WithPreciseDefault again
//
// A per-dispatcher choice always wins over WithPreciseDefault.
//
// # Keys
//
// Keys have the form
//
//	<namespace>::<strategy>::<disambiguator>::<stamp>
//
// The namespace defaults to the origin name. Keys and Invalidate only cover
// entries this dispatcher stored; see di.Container.Purge to drop a whole
// namespace.
//
// # Uncached Compilation
//
// When no strategy applies, or no store is configured, Compile calls the
// compiler directly and reports Uncached. Any other locator error, such as a
// malformed unit, is returned to the caller.
//
// # Logging and Metrics
//
// The logger comes from the context when one is attached with
// logging.WithLogger, otherwise from WithLogger. WithDebug logs every lookup
// at info level. Lookups, locate and compile times, and excluded globals are
// recorded on the collectors given to WithMetrics.
package dispatch
