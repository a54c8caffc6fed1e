// Package core implements the core logic for memoizing, capacity-limited function caching
// with least-frequently-used eviction.
//
// This package provides the internal implementation for the lfucache package.
//
// # Features
//
//   - Memoization: Caches results for identical call arguments to avoid redundant computation.
//   - LFU Eviction: The cache holds up to a configurable number of entries (default: 64). When it is
//     full, the entry with the fewest uses is evicted; ties go to the entry inserted earliest.
//   - In-flight Request Deduplication: Concurrent misses on the same arguments run the function once.
//   - No Negative Caching: Errors and panics are returned to the caller and never stored.
//   - Concurrency Safety: All operations are safe for concurrent use. The function itself runs
//     outside any lock, so distinct arguments compute in parallel.
//   - Extensibility: Optional hooks, structured logging and Prometheus metrics.
//
// # Usage
//
// This package is not intended for direct use. Use the lfucache package for a public API.
//
// # Type Parameters
//
//   - K: The type of the function argument. Use keygen.Args for positional and named arguments.
//   - V: The type of the function result.
package core

import (
	"log/slog"
	"reflect"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/osmike/lfucache/internal/lib/errs"
	"github.com/osmike/lfucache/internal/lib/hooks"
	"github.com/osmike/lfucache/internal/lib/keygen"
	"github.com/osmike/lfucache/internal/lib/metrics"
)

// Default cache capacity.
const defaultCapacity = 64

// CachedFunc wraps a user-provided function with caching behavior.
//
// K is the input parameter type, V is the return type.
//
// The function must have the signature: func(arg K) (V, error)
type CachedFunc[K any, V any] func(arg K) (V, error)

// Config configures the cache behavior.
//
//   - Name: Label used in logs and metrics (default: the wrapped function's name).
//   - Capacity: Maximum number of cache entries (default: 64). Negative values are rejected.
//   - Logger: Structured logger (default: slog.Default()).
//   - Metrics: Optional Prometheus collectors.
type Config struct {
	Name     string
	Capacity int
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// Stats is a snapshot of a cache instance.
type Stats[V any] struct {
	StorageStat[V]
	Hits      uint64 // calls served from the cache
	Misses    uint64 // calls that ran the function
	Evictions uint64 // entries removed to make room
	Failures  uint64 // misses whose function returned an error or panicked
}

// Cache is a cache instance bound to one function.
type Cache[K any, V any] struct {
	fn     CachedFunc[K, V] // User-provided function to cache
	store  *Storage[V]      // Underlying storage for cached values
	flight singleflight.Group
	cfg    Config
	hooks  *hooks.Hooks
	logger *slog.Logger

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	failures  atomic.Uint64
}

// New returns a cache instance wrapping fn.
//
//   - fn: The function to cache. Must be of type func(K) (V, error).
//   - opts: Optional cache configuration. Pass nil for defaults.
//   - h: Optional hooks for cache events. Pass nil if not needed.
//
// Returns an error wrapping errs.ErrInvalidCapacity if opts.Capacity is negative.
func New[K any, V any](fn CachedFunc[K, V], opts *Config, h *hooks.Hooks) (*Cache[K, V], error) {
	var cfg Config
	if opts != nil {
		cfg = *opts
	}
	if cfg.Capacity < 0 {
		return nil, errs.NewError(errs.ErrInvalidCapacity, map[string]interface{}{
			"capacity": cfg.Capacity,
		})
	}
	if cfg.Capacity == 0 {
		cfg.Capacity = defaultCapacity
	}
	if cfg.Name == "" {
		cfg.Name = funcName(fn)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if h == nil {
		h = &hooks.Hooks{}
	}

	return &Cache[K, V]{
		fn:     fn,
		store:  NewStorage[V](cfg.Capacity),
		cfg:    cfg,
		hooks:  h,
		logger: cfg.Logger.With("cache", cfg.Name),
	}, nil
}

// NewCachedFunction returns a CachedFunc that wraps fn with caching logic.
//
// It panics if opts is invalid; use New to handle the error instead.
func NewCachedFunction[K any, V any](fn CachedFunc[K, V], opts *Config, h *hooks.Hooks) CachedFunc[K, V] {
	c, err := New(fn, opts, h)
	if err != nil {
		panic(err)
	}
	return c.Call
}

// Call executes the cached function.
//
// A resident result is returned without running the function and its use
// count is incremented. Otherwise the function runs once (concurrent callers
// with the same arguments share that run), and a successful result is stored,
// evicting the least frequently used entry if the cache is full.
// If a panic occurs in the user function, it is caught and returned as an error.
//
//   - arg: The input parameter for the cached function.
//   - Returns: The result value and error from the function or cache.
func (c *Cache[K, V]) Call(arg K) (val V, err error) {
	var zero V
	defer func() {
		if r := recover(); r != nil {
			err = errs.FromPanic(r)
			c.hooks.Error(err)
			val = zero
		}
	}()

	key, err := keygen.BuildKey(arg)
	if err != nil {
		return zero, err
	}

	// Fast path: check if value is already cached.
	if val, found := c.store.Get(key); found {
		c.recordHit(arg, key)
		return val, nil
	}

	leader := false
	res, err, _ := c.flight.Do(key, func() (any, error) {
		leader = true
		// Another flight for this key may have stored its result after our lookup.
		if val, found := c.store.Get(key); found {
			c.recordHit(arg, key)
			return val, nil
		}
		return c.compute(arg, key)
	})
	if err != nil {
		return zero, err
	}
	if !leader {
		// Shared the result of a concurrent miss.
		if _, found := c.store.Get(key); found {
			c.recordHit(arg, key)
		}
	}
	if res == nil {
		return zero, nil
	}
	return res.(V), nil
}

// compute runs the user function on a miss and stores a successful result.
func (c *Cache[K, V]) compute(arg K, key string) (any, error) {
	c.misses.Add(1)
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.RecordMiss(c.cfg.Name)
	}
	c.logger.Debug("cache miss", "key", key)
	c.hooks.Run(c.cfg.Name, hooks.EventMiss, arg)

	val, err := c.invoke(arg)
	if err != nil {
		c.failures.Add(1)
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.RecordFailure(c.cfg.Name)
		}
		c.logger.Warn("cached function failed", "key", key, "error", err)
		c.hooks.Error(err)
		return nil, err
	}

	evicted, ok := c.store.Set(key, val)
	if ok {
		c.evictions.Add(1)
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.RecordEviction(c.cfg.Name)
		}
		c.logger.Debug("cache eviction", "evicted", evicted, "inserted", key)
		c.hooks.Run(c.cfg.Name, hooks.EventEvict, evicted)
	}
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.UpdateResident(c.cfg.Name, c.store.Len())
	}
	c.hooks.Run(c.cfg.Name, hooks.EventSet, arg)
	return val, nil
}

// invoke calls the user function, converting a panic into errs.ErrPanic.
func (c *Cache[K, V]) invoke(arg K) (val V, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero V
			val, err = zero, errs.FromPanic(r)
		}
	}()
	return c.fn(arg)
}

func (c *Cache[K, V]) recordHit(arg K, key string) {
	c.hits.Add(1)
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.RecordHit(c.cfg.Name)
	}
	c.logger.Debug("cache hit", "key", key)
	c.hooks.Run(c.cfg.Name, hooks.EventHit, arg)
}

// Func returns the cached function.
func (c *Cache[K, V]) Func() CachedFunc[K, V] {
	return c.Call
}

// Unwrap returns the original, uncached function.
func (c *Cache[K, V]) Unwrap() CachedFunc[K, V] {
	return c.fn
}

// Name returns the label of the cache.
func (c *Cache[K, V]) Name() string {
	return c.cfg.Name
}

// Len returns the number of resident entries.
func (c *Cache[K, V]) Len() int {
	return c.store.Len()
}

// Capacity returns the maximum number of resident entries.
func (c *Cache[K, V]) Capacity() int {
	return c.store.Capacity()
}

// Contains reports whether a result for arg is resident, without counting a use.
func (c *Cache[K, V]) Contains(arg K) (bool, error) {
	key, err := keygen.BuildKey(arg)
	if err != nil {
		return false, err
	}
	_, ok := c.store.Peek(key)
	return ok, nil
}

// Frequency returns the use count of the entry for arg.
func (c *Cache[K, V]) Frequency(arg K) (uint64, bool, error) {
	key, err := keygen.BuildKey(arg)
	if err != nil {
		return 0, false, err
	}
	n, ok := c.store.Frequency(key)
	return n, ok, nil
}

// Stats returns a snapshot of the cache and its counters.
func (c *Cache[K, V]) Stats() Stats[V] {
	return Stats[V]{
		StorageStat: c.store.Stat(),
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		Failures:    c.failures.Load(),
	}
}

// funcName returns the symbol name of fn, or "anonymous".
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "anonymous"
	}
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		return f.Name()
	}
	return "anonymous"
}
