// Command example walks through LFU eviction with a slow computation.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/osmike/lfucache"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cache, err := lfucache.New(heavyComputation, &lfucache.Config{
		Name:     "heavy",
		Capacity: 2,
		Logger:   logger,
	}, nil)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	// A and B fill the cache and A is used again, so C evicts B.
	// A has 2 uses and C has 1, so D evicts C.
	for _, name := range []string{"A", "B", "A", "C", "D", "A"} {
		start := time.Now()
		res, err := cache.Call(name)
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		fmt.Printf("[%s] %s -> %s (%v)\n", time.Now().Format(time.TimeOnly), name, res, time.Since(start).Truncate(time.Millisecond))
	}

	st := cache.Stats()
	fmt.Printf("hits=%d misses=%d evictions=%d\n", st.Hits, st.Misses, st.Evictions)
	for _, it := range st.Items {
		fmt.Printf("  %s used %d times\n", it.Value, it.Frequency)
	}
}

func heavyComputation(name string) (string, error) {
	time.Sleep(500 * time.Millisecond)
	return "value of " + name, nil
}
