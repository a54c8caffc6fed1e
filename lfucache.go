// Package lfucache provides a generic, concurrent-safe, capacity-bounded result cache for
// functions, with least-frequently-used eviction.
//
// # Overview
//
// lfucache wraps any function of the shape func(K) (V, error) and returns a function of the
// same shape that memoizes results by argument. The cache holds at most a fixed number of
// results; when a new result must be stored into a full cache, the result with the fewest
// uses is evicted, and among equally used results the one stored earliest goes first.
//
// ## Features
//
//   - Memoization: Avoids redundant computations by caching results for identical arguments.
//   - Positional and Named Arguments: Args carries both; named arguments are matched
//     regardless of the order they were supplied in.
//   - Strict Keys: Arguments that cannot be compared (slices, maps, funcs) are rejected
//     with ErrUnhashableArgument instead of being approximated.
//   - LFU Eviction: Deterministic, with an insertion-order tie-break.
//   - No Negative Caching: Errors and panics reach the caller and leave the cache untouched.
//   - In-flight Request Deduplication: Concurrent misses on the same arguments run the function once.
//   - Composition: Wrappers such as profile.Memory share the func(K) (V, error) shape and can
//     be stacked inside or outside the cache in any order.
//   - Extensibility: Optional hooks, slog logging and Prometheus metrics.
//
// ## Usage Example
//
//	// A long-running function
//	func fetchURL(a lfucache.Args) ([]byte, error) { ... }
//
//	// Wrap with caching
//	cachedFetch := lfucache.Wrap(fetchURL, 5)
//	body, err := cachedFetch(lfucache.NewArgs("https://example.com").With("first_n", 100))
//
// ## Customization
//
//   - Use New with a Config to get the cache instance itself (stats, frequencies, name).
//   - Use the Hooks struct to add custom logic (e.g., logging, metrics).
//
// See package documentation and tests for more details.
package lfucache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/osmike/lfucache/internal/core"
	"github.com/osmike/lfucache/internal/lib/errs"
	"github.com/osmike/lfucache/internal/lib/hooks"
	"github.com/osmike/lfucache/internal/lib/keygen"
	"github.com/osmike/lfucache/internal/lib/metrics"
)

// CachedFunc is a generic function type that can be wrapped with caching.
// K is the input parameter type, V is the result type.
type CachedFunc[K any, V any] = core.CachedFunc[K, V]

// Cache is a cache instance bound to one function.
type Cache[K any, V any] = core.Cache[K, V]

// Config defines cache configuration options such as capacity and name.
type Config = core.Config

// Stats is a snapshot of a cache instance and its counters.
type Stats[V any] = core.Stats[V]

// Item is one resident entry in a Stats snapshot.
type Item[V any] = core.StorageItem[V]

// Hooks provides optional hooks for cache events (e.g., on hit, miss, eviction).
type Hooks = hooks.Hooks

// Args is the argument list of a call: positional values plus named values.
type Args = keygen.Args

// Named is one named argument.
type Named = keygen.Named

// Metrics holds Prometheus collectors for caches.
type Metrics = metrics.Metrics

var (
	// ErrUnhashableArgument is returned when an argument cannot be part of a cache key.
	ErrUnhashableArgument = errs.ErrUnhashableArgument

	// ErrDuplicateArgument is returned when a named argument is supplied twice.
	ErrDuplicateArgument = errs.ErrDuplicateArgument

	// ErrInvalidCapacity is returned for a negative capacity.
	ErrInvalidCapacity = errs.ErrInvalidCapacity

	// ErrPanic is returned when the cached function panics.
	ErrPanic = errs.ErrPanic

	// ErrHook is passed to Hooks.LogError when a lifecycle hook fails or panics.
	ErrHook = errs.ErrHook
)

// NewArgs returns Args holding the given positional values.
// Add named values with Args.With.
func NewArgs(positional ...any) Args {
	return keygen.NewArgs(positional...)
}

// NewMetrics creates and registers cache metrics under namespace.
// A nil registerer uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	return metrics.New(reg, namespace)
}

// New returns a cache instance wrapping fn.
//
//   - fn: The function to cache. Must be of type func(K) (V, error).
//   - opts: Optional cache configuration. Pass nil for defaults (capacity 64).
//   - hooks: Optional hooks for cache events. Pass nil if not needed.
//
// Returns ErrInvalidCapacity if opts.Capacity is negative.
func New[K any, V any](fn CachedFunc[K, V], opts *Config, hooks *Hooks) (*Cache[K, V], error) {
	return core.New(fn, opts, hooks)
}

// NewCachedFunction wraps a function with a concurrent-safe LFU caching layer.
//
//   - fn: The function to cache. Must be of type func(K) (V, error).
//   - opts: Optional cache configuration. Pass nil for defaults.
//   - hooks: Optional hooks for cache events. Pass nil if not needed.
//
// Returns a function with the same signature as fn, but with caching applied.
// It panics if opts is invalid.
func NewCachedFunction[K any, V any](fn CachedFunc[K, V], opts *Config, hooks *Hooks) CachedFunc[K, V] {
	return core.NewCachedFunction(fn, opts, hooks)
}

// Wrap returns fn wrapped with an LFU cache holding at most capacity results.
//
// Example:
//
//	cachedFetch := lfucache.Wrap(fetchURL, 5)
//
// It panics if capacity is negative; zero selects the default capacity.
func Wrap[K any, V any](fn CachedFunc[K, V], capacity int) CachedFunc[K, V] {
	return core.NewCachedFunction(fn, &Config{Capacity: capacity}, nil)
}
