package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-precise-cache/fingerprint"
)

// Origin records where a unit came from. It is bookkeeping for locators and
// never part of a precise fingerprint.
type Origin struct {
	Path string
	Line int
	Name string
}

// Locator identifies the cache entry of a compiled unit.
type Locator interface {
	// SourceStamp is the long-form identity of the entry.
	SourceStamp() string
	// Disambiguator is a short tag stored alongside the stamp.
	Disambiguator() string
	// Origin returns the origin the locator was built for.
	Origin() Origin
	// Strategy names the strategy that produced the locator.
	Strategy() string
}

// Strategy builds locators. Locate reports false when the strategy does not
// apply to the unit, so the next strategy in a Chain is tried.
type Strategy interface {
	Name() string
	Locate(u fingerprint.Unit, origin Origin) (Locator, bool, error)
}

// Key joins the parts of a locator into a storage key.
func Key(loc Locator) string {
	return strings.Join([]string{loc.Strategy(), loc.Disambiguator(), loc.SourceStamp()}, KeySeparator)
}

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// FetchFn is the function signature CacheService expects when producing a value on a miss.
type FetchFn[T any] func(ctx context.Context) (T, error)

// ErrInvalidResultType is returned by GetOrFetch when the backend hands back
// a value of the wrong type for the key.
var ErrInvalidResultType = errors.New("cache: cached value has unexpected type")

// CacheService exposes the read-through operations dispatchers need to store compiled artifacts.
// It is exported so that other packages can provide alternate cache backends.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error)
	Delete(ctx context.Context, key string) error
}

// PrefixDeleter is implemented by backends that can drop every key sharing a prefix.
type PrefixDeleter interface {
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// KeyInvalidator is implemented by backends that can drop a batch of keys at once.
type KeyInvalidator interface {
	InvalidateKeys(ctx context.Context, keys []string) error
}

// GetOrFetch is a type-safe wrapper function that provides generic support for CacheService.
// A nil result yields the zero value of T.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetchFn FetchFn[T]) (T, error) {
	var zero T

	result, err := service.GetOrFetch(ctx, key, fetchFn)
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}

	typed, ok := result.(T)
	if !ok {
		return zero, goerrors.Wrap(ErrInvalidResultType, goerrors.CategoryInternal,
			fmt.Sprintf("cache key %q holds %T, want %T", key, result, zero)).
			WithTextCode("INVALID_RESULT_TYPE")
	}
	return typed, nil
}

// InvalidateKeys removes keys from service, in one call when the backend
// supports it.
func InvalidateKeys(ctx context.Context, service CacheService, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if inv, ok := service.(KeyInvalidator); ok {
		return inv.InvalidateKeys(ctx, keys)
	}
	for _, key := range keys {
		if err := service.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
