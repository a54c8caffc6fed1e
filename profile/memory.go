// Package profile provides call wrappers that report resource usage.
//
// A wrapper takes a func(K) (V, error) and returns a function of the same shape,
// so it stacks with lfucache in either order:
//
//	// measures every call, including cache hits
//	f := profile.Memory(lfucache.Wrap(fetch, 5))
//
//	// measures only the calls that miss the cache
//	g := lfucache.Wrap(profile.Memory(fetch), 5)
package profile

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
)

// Report describes the memory usage around one call.
type Report struct {
	Name     string        // label of the wrapped function
	Before   uint64        // bytes sampled before the call
	After    uint64        // bytes sampled after the call
	Delta    int64         // After - Before
	Duration time.Duration // wall time of the call
	Err      error         // sampling error; the call result is unaffected
}

// Reporter receives one Report per call.
type Reporter func(Report)

type options struct {
	name     string
	sampler  Sampler
	reporter Reporter
}

// Option configures Memory.
type Option func(*options)

// WithName labels reports.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithSampler sets the memory sampler (default: ProcessRSS).
func WithSampler(s Sampler) Option {
	return func(o *options) { o.sampler = s }
}

// WithReporter sets where reports go (default: LogReporter(slog.Default())).
func WithReporter(r Reporter) Option {
	return func(o *options) { o.reporter = r }
}

// Memory wraps fn so that each call samples memory before and after running fn
// and reports the difference. fn runs exactly once per call and its result and
// error are returned unchanged.
func Memory[K any, V any](fn func(K) (V, error), opts ...Option) func(K) (V, error) {
	o := options{
		name:    "call",
		sampler: ProcessRSS(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.reporter == nil {
		o.reporter = LogReporter(slog.Default())
	}

	return func(arg K) (V, error) {
		before, errBefore := o.sampler.Sample()
		start := time.Now()

		val, err := fn(arg)

		elapsed := time.Since(start)
		after, errAfter := o.sampler.Sample()

		r := Report{
			Name:     o.name,
			Before:   before,
			After:    after,
			Duration: elapsed,
		}
		switch {
		case errBefore != nil:
			r.Err = errBefore
		case errAfter != nil:
			r.Err = errAfter
		default:
			r.Delta = int64(after) - int64(before)
		}
		o.reporter(r)

		return val, err
	}
}

// LogReporter returns a Reporter that writes one slog record per call.
func LogReporter(logger *slog.Logger) Reporter {
	return func(r Report) {
		if r.Err != nil {
			logger.Warn("memory sampling failed", "name", r.Name, "error", r.Err)
			return
		}
		logger.Info("memory usage",
			"name", r.Name,
			"delta", FormatDelta(r.Delta),
			"delta_bytes", r.Delta,
			"duration", r.Duration,
		)
	}
}

// FormatDelta renders a signed byte count, e.g. "+12 kB" or "-4.1 MB".
func FormatDelta(delta int64) string {
	if delta < 0 {
		return "-" + humanize.Bytes(uint64(-delta))
	}
	return fmt.Sprintf("+%s", humanize.Bytes(uint64(delta)))
}
