package profile

import (
	"runtime"

	"github.com/prometheus/procfs"
)

// Sampler reads the current memory usage of the process in bytes.
type Sampler interface {
	Sample() (uint64, error)
}

// SamplerFunc adapts a function to the Sampler interface.
type SamplerFunc func() (uint64, error)

// Sample calls f.
func (f SamplerFunc) Sample() (uint64, error) {
	return f()
}

// ProcessRSS samples the resident set size of the current process from /proc.
// It only works where procfs is mounted (Linux).
func ProcessRSS() Sampler {
	return SamplerFunc(func() (uint64, error) {
		proc, err := procfs.Self()
		if err != nil {
			return 0, err
		}
		stat, err := proc.Stat()
		if err != nil {
			return 0, err
		}
		return uint64(stat.ResidentMemory()), nil
	})
}

// HeapInUse samples the bytes in in-use heap spans as reported by the Go runtime.
func HeapInUse() Sampler {
	return SamplerFunc(func() (uint64, error) {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		return ms.HeapInuse, nil
	})
}
