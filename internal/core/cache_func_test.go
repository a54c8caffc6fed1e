package core

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	perrors "github.com/jmgilman/go/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmike/lfucache/internal/lib/errs"
	"github.com/osmike/lfucache/internal/lib/hooks"
	"github.com/osmike/lfucache/internal/lib/keygen"
	"github.com/osmike/lfucache/internal/lib/metrics"
)

func double(n int) (int, error) { return n * 2, nil }

func TestNewAppliesDefaults(t *testing.T) {
	c, err := New(double, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, defaultCapacity, c.Capacity())
	assert.True(t, strings.HasSuffix(c.Name(), ".double"), c.Name())
}

func TestNewRejectsNegativeCapacity(t *testing.T) {
	_, err := New(double, &Config{Capacity: -1}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidCapacity))

	assert.Panics(t, func() {
		NewCachedFunction(double, &Config{Capacity: -5}, nil)
	})
}

func TestNewDoesNotMutateConfig(t *testing.T) {
	cfg := &Config{}
	_, err := New(double, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, Config{}, *cfg)
}

func TestCallHitAndMiss(t *testing.T) {
	var calls atomic.Int32
	c, err := New(func(n int) (int, error) {
		calls.Add(1)
		return n + 1, nil
	}, &Config{Capacity: 4}, nil)
	require.NoError(t, err)

	v, err := c.Call(1)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	v, err = c.Call(1)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	assert.Equal(t, int32(1), calls.Load())
	n, ok, err := c.Frequency(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(2), n)

	st := c.Stats()
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
	assert.Equal(t, 1, st.Entries)
}

func TestCallErrorIsNotCached(t *testing.T) {
	boom := errors.New("boom")
	fail := false
	var calls int
	c, err := New(func(n int) (int, error) {
		calls++
		if fail {
			return 0, boom
		}
		return n, nil
	}, &Config{Capacity: 1}, nil)
	require.NoError(t, err)

	_, err = c.Call(1)
	require.NoError(t, err)
	fail = true

	_, err = c.Call(2)
	assert.Same(t, boom, err)
	// resident entry survives the failed miss, no eviction happened
	ok, err := c.Contains(1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), c.Stats().Evictions)
	assert.Equal(t, uint64(1), c.Stats().Failures)

	fail = false
	v, err := c.Call(2)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 3, calls)
}

func TestCallRecoversPanic(t *testing.T) {
	var logged error
	c, err := New(func(n int) (int, error) {
		panic("kaboom")
	}, nil, &hooks.Hooks{LogError: func(err error) { logged = err }})
	require.NoError(t, err)

	v, err := c.Call(1)
	assert.Zero(t, v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrPanic))
	assert.True(t, errors.Is(logged, errs.ErrPanic))
	assert.Zero(t, c.Len())
}

func TestCallUnhashableArgument(t *testing.T) {
	var calls int
	c, err := New(func(a keygen.Args) (int, error) {
		calls++
		return len(a.Positional), nil
	}, nil, nil)
	require.NoError(t, err)

	_, err = c.Call(keygen.NewArgs("x"))
	require.NoError(t, err)

	_, err = c.Call(keygen.NewArgs([]int{1}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrUnhashableArgument))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, c.Len())

	_, err = c.Contains(keygen.NewArgs(map[string]int{}))
	assert.True(t, errors.Is(err, errs.ErrUnhashableArgument))
	_, _, err = c.Frequency(keygen.NewArgs(map[string]int{}))
	assert.True(t, errors.Is(err, errs.ErrUnhashableArgument))
}

func TestCallNilInterfaceResult(t *testing.T) {
	c, err := New(func(n int) (any, error) { return nil, nil }, nil, nil)
	require.NoError(t, err)

	v, err := c.Call(1)
	require.NoError(t, err)
	assert.Nil(t, v)
	v, err = c.Call(1)
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, uint64(1), c.Stats().Hits)
}

func TestCallHooks(t *testing.T) {
	var mu sync.Mutex
	var events []string
	record := func(name string) hooks.HookFunc {
		return func(arg any) error {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, name)
			return nil
		}
	}
	h := &hooks.Hooks{
		OnHit:   record("hit"),
		OnMiss:  record("miss"),
		OnSet:   record("set"),
		OnEvict: record("evict"),
	}
	c, err := New(double, &Config{Capacity: 1}, h)
	require.NoError(t, err)

	_, _ = c.Call(1)
	_, _ = c.Call(1)
	_, _ = c.Call(2)

	assert.Equal(t, []string{"miss", "set", "hit", "miss", "evict", "set"}, events)
}

func TestCallHookFailureNamesCache(t *testing.T) {
	var logged []error
	c, err := New(double, &Config{Name: "doubler"}, &hooks.Hooks{
		OnSet:    func(any) error { panic("set hook") },
		LogError: func(err error) { logged = append(logged, err) },
	})
	require.NoError(t, err)

	v, err := c.Call(2)
	require.NoError(t, err)
	assert.Equal(t, 4, v)

	require.Len(t, logged, 1)
	assert.True(t, errors.Is(logged[0], errs.ErrHook))
	var pe perrors.PlatformError
	require.True(t, errors.As(logged[0], &pe))
	assert.Equal(t, "doubler", pe.Context()["cache"])
	assert.Equal(t, "set", pe.Context()["event"])
}

func TestCallMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry(), "test")
	c, err := New(func(n int) (int, error) {
		if n < 0 {
			return 0, errors.New("negative")
		}
		return n, nil
	}, &Config{Name: "ints", Capacity: 2, Metrics: m}, nil)
	require.NoError(t, err)

	for _, n := range []int{1, 1, 2, 3, -1} {
		_, _ = c.Call(n)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Hits.WithLabelValues("ints")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Misses.WithLabelValues("ints")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evictions.WithLabelValues("ints")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("ints")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Resident.WithLabelValues("ints")))
}

func TestCallLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c, err := New(double, &Config{Name: "doubler", Capacity: 1, Logger: logger}, nil)
	require.NoError(t, err)

	_, _ = c.Call(1)
	_, _ = c.Call(1)
	_, _ = c.Call(2)

	out := buf.String()
	assert.Contains(t, out, "cache=doubler")
	assert.Contains(t, out, `msg="cache miss"`)
	assert.Contains(t, out, `msg="cache hit"`)
	assert.Contains(t, out, `msg="cache eviction"`)
}

func TestConcurrentMissesComputeOnce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c, err := New(func(n int) (int, error) {
		calls.Add(1)
		<-release
		return n * 3, nil
	}, &Config{Capacity: 8}, nil)
	require.NoError(t, err)

	const n = 10
	var wg sync.WaitGroup
	results := make([]int, n)
	failures := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], failures[i] = c.Call(4)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, failures[i])
		assert.Equal(t, 12, results[i])
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, c.Len())

	st := c.Stats()
	assert.Equal(t, uint64(1), st.Misses)
	assert.Equal(t, uint64(n-1), st.Hits)
	freq, ok, err := c.Frequency(4)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(n), freq)
}

func TestConcurrentDistinctKeysDoNotBlock(t *testing.T) {
	started := make(chan int, 2)
	release := make(chan struct{})
	c, err := New(func(n int) (int, error) {
		started <- n
		<-release
		return n, nil
	}, &Config{Capacity: 8}, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, k := range []int{1, 2} {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			_, _ = c.Call(k)
		}(k)
	}

	// both computations start before either finishes
	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("distinct keys were serialized")
		}
	}
	close(release)
	wg.Wait()
	assert.Equal(t, 2, c.Len())
}

func TestConcurrentBoundHolds(t *testing.T) {
	const capacity = 4
	c, err := New(double, &Config{Capacity: capacity}, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				v, err := c.Call((g*31 + i) % 17)
				assert.NoError(t, err)
				assert.Equal(t, ((g*31+i)%17)*2, v)
				assert.LessOrEqual(t, c.Len(), capacity)
			}
		}(g)
	}
	wg.Wait()

	st := c.Stats()
	assert.LessOrEqual(t, st.Entries, capacity)
	assert.Len(t, st.Items, st.Entries)
}

func TestFuncAndUnwrap(t *testing.T) {
	var calls int
	c, err := New(func(n int) (int, error) { calls++; return n, nil }, nil, nil)
	require.NoError(t, err)

	f := c.Func()
	_, _ = f(1)
	_, _ = f(1)
	assert.Equal(t, 1, calls)

	_, _ = c.Unwrap()(1)
	assert.Equal(t, 2, calls)
}
