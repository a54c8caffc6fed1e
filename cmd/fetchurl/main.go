// Command fetchurl fetches a list of URLs through an LFU-cached, memory-profiled
// fetch function and prints the final cache statistics as JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/osmike/lfucache"
	"github.com/osmike/lfucache/profile"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("fetchurl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML config file")
	capacity := fs.Int("capacity", -1, "cache capacity (overrides config)")
	firstN := fs.Int("first-n", -1, "bytes of each body to keep, 0 for all (overrides config)")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address and wait for a signal")
	logLevel := fs.String("log-level", "", "debug, info, warn or error (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *capacity >= 0 {
		cfg.Capacity = *capacity
	}
	if *firstN >= 0 {
		cfg.FirstN = *firstN
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if fs.NArg() > 0 {
		cfg.URLs = fs.Args()
	}

	logger := newLogger(cfg, stderr)

	reg := prometheus.NewRegistry()
	cache, err := lfucache.New((&fetcher{client: &http.Client{Timeout: cfg.Timeout}}).Fetch, &lfucache.Config{
		Name:     "fetch_url",
		Capacity: cfg.Capacity,
		Logger:   logger,
		Metrics:  lfucache.NewMetrics(reg, "fetchurl"),
	}, nil)
	if err != nil {
		return err
	}

	// profile outside the cache: every call is measured, hits included
	fetch := profile.Memory(cache.Func(),
		profile.WithName(cache.Name()),
		profile.WithReporter(profile.LogReporter(logger)),
	)

	for _, url := range cfg.URLs {
		call := lfucache.NewArgs(url).With("first_n", cfg.FirstN)
		start := time.Now()
		body, err := fetch(call)
		if err != nil {
			logger.Error("fetch failed", "url", url, "error", err)
			continue
		}
		logger.Info("fetched", "url", url, "bytes", len(body), "elapsed", time.Since(start))
	}

	if err := writeStats(stdout, cache.Stats(), cache.Name()); err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		return serveMetrics(cfg.MetricsAddr, reg, logger)
	}
	return nil
}

func newLogger(cfg Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

type statsItem struct {
	Key       string `json:"key"`
	Frequency uint64 `json:"frequency"`
	Bytes     int    `json:"bytes"`
}

type statsReport struct {
	Name      string      `json:"name"`
	Capacity  int         `json:"capacity"`
	Entries   int         `json:"entries"`
	Hits      uint64      `json:"hits"`
	Misses    uint64      `json:"misses"`
	Evictions uint64      `json:"evictions"`
	Failures  uint64      `json:"failures"`
	Items     []statsItem `json:"items"`
}

// writeStats prints the cache snapshot, next eviction victim first.
func writeStats(w io.Writer, st lfucache.Stats[[]byte], name string) error {
	report := statsReport{
		Name:      name,
		Capacity:  st.Capacity,
		Entries:   st.Entries,
		Hits:      st.Hits,
		Misses:    st.Misses,
		Evictions: st.Evictions,
		Failures:  st.Failures,
		Items:     make([]statsItem, 0, len(st.Items)),
	}
	for _, it := range st.Items {
		report.Items = append(report.Items, statsItem{
			Key:       it.Key,
			Frequency: it.Frequency,
			Bytes:     len(it.Value),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// serveMetrics exposes /metrics until SIGINT or SIGTERM.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
