package profile

import (
	"bytes"
	"errors"
	"log/slog"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted returns the given samples in order.
func scripted(samples ...uint64) Sampler {
	i := 0
	return SamplerFunc(func() (uint64, error) {
		s := samples[i]
		i++
		return s, nil
	})
}

func TestMemoryReportsDelta(t *testing.T) {
	var reports []Report
	calls := 0
	f := Memory(func(n int) (string, error) {
		calls++
		return "ok", nil
	}, WithName("fetch"), WithSampler(scripted(1000, 13000)), WithReporter(func(r Report) {
		reports = append(reports, r)
	}))

	v, err := f(1)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 1, calls)

	require.Len(t, reports, 1)
	assert.Equal(t, "fetch", reports[0].Name)
	assert.Equal(t, uint64(1000), reports[0].Before)
	assert.Equal(t, uint64(13000), reports[0].After)
	assert.Equal(t, int64(12000), reports[0].Delta)
	assert.NoError(t, reports[0].Err)
}

func TestMemoryPassesErrorsThrough(t *testing.T) {
	boom := errors.New("boom")
	var reported bool
	f := Memory(func(n int) (int, error) {
		return 0, boom
	}, WithSampler(scripted(5, 5)), WithReporter(func(Report) { reported = true }))

	_, err := f(1)
	assert.Same(t, boom, err)
	assert.True(t, reported)
}

func TestMemorySamplerFailureDoesNotAffectResult(t *testing.T) {
	var got Report
	failing := SamplerFunc(func() (uint64, error) { return 0, errors.New("no procfs") })
	f := Memory(func(n int) (int, error) {
		return n + 1, nil
	}, WithSampler(failing), WithReporter(func(r Report) { got = r }))

	v, err := f(1)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.EqualError(t, got.Err, "no procfs")
	assert.Zero(t, got.Delta)
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	r := LogReporter(logger)

	r(Report{Name: "fetch", Delta: 1500})
	assert.Contains(t, buf.String(), `msg="memory usage"`)
	assert.Contains(t, buf.String(), `delta="+1.5 kB"`)
	assert.Contains(t, buf.String(), "delta_bytes=1500")

	buf.Reset()
	r(Report{Name: "fetch", Err: errors.New("no procfs")})
	assert.Contains(t, buf.String(), `msg="memory sampling failed"`)
}

func TestFormatDelta(t *testing.T) {
	assert.Equal(t, "+0 B", FormatDelta(0))
	assert.Equal(t, "+12 kB", FormatDelta(12000))
	assert.Equal(t, "-4.1 MB", FormatDelta(-4100000))
}

func TestHeapInUse(t *testing.T) {
	n, err := HeapInUse().Sample()
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestProcessRSS(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("procfs is only available on linux")
	}
	n, err := ProcessRSS().Sample()
	require.NoError(t, err)
	assert.Positive(t, n)
}
