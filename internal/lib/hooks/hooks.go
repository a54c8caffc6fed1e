// Package hooks provides panic-safe lifecycle callbacks for a cache instance.
package hooks

import (
	"github.com/osmike/lfucache/internal/lib/errs"
)

// Event names a point in the life of a cache entry.
type Event string

const (
	EventHit   Event = "hit"   // served from the cache
	EventMiss  Event = "miss"  // about to run the underlying function
	EventSet   Event = "set"   // computed result stored
	EventEvict Event = "evict" // entry removed to make room
)

// HookFunc is called on lifecycle events. It receives the call argument (or,
// for OnEvict, the evicted cache key) and may return an error to signal that
// something went wrong.
type HookFunc func(arg any) error

// HookFuncError is called whenever another hook errors or panics, and when the
// cached function fails. It must never panic itself.
type HookFuncError func(err error)

// Hooks holds the set of lifecycle hooks and an error‐logging hook.
type Hooks struct {
	OnHit    HookFunc      // called after a call is served from the cache
	OnMiss   HookFunc      // called before the underlying function runs
	OnSet    HookFunc      // called after a computed result is stored
	OnEvict  HookFunc      // called with the key removed to make room
	LogError HookFuncError // called on any hook error or panic
}

// Run fires the hook registered for event on the named cache.
//
// A hook that returns an error or panics is reported to LogError as an
// errs.ErrHook carrying the cache name and the event; Run itself never panics.
func (h *Hooks) Run(cache string, event Event, arg any) {
	fn := h.hook(event)
	if fn == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			h.Error(errs.NewError(errs.ErrHook, map[string]interface{}{
				"cache": cache,
				"event": event,
				"panic": errs.Recovered(r),
			}))
		}
	}()

	if err := fn(arg); err != nil {
		h.Error(errs.NewError(errs.ErrHook, map[string]interface{}{
			"cache": cache,
			"event": event,
			"error": err,
		}))
	}
}

func (h *Hooks) hook(event Event) HookFunc {
	switch event {
	case EventHit:
		return h.OnHit
	case EventMiss:
		return h.OnMiss
	case EventSet:
		return h.OnSet
	case EventEvict:
		return h.OnEvict
	}
	return nil
}

// Error calls the LogError hook if set, and recovers if it panics.
func (h *Hooks) Error(err error) {
	if h.LogError == nil || err == nil {
		return
	}
	defer func() {
		recover() // swallow any panic in LogError
	}()
	h.LogError(err)
}
