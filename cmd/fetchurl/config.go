package main

import (
	"os"
	"time"

	perrors "github.com/jmgilman/go/errors"
	"gopkg.in/yaml.v3"
)

// Config is the driver configuration. It is read from YAML and then
// overridden by command-line flags.
type Config struct {
	Capacity    int           `yaml:"capacity"`
	FirstN      int           `yaml:"first_n"`
	Timeout     time.Duration `yaml:"timeout"`
	LogLevel    string        `yaml:"log_level"`
	LogFormat   string        `yaml:"log_format"`
	MetricsAddr string        `yaml:"metrics_addr"`
	URLs        []string      `yaml:"urls"`
}

// defaultConfig mirrors the decorator example this driver reproduces.
func defaultConfig() Config {
	return Config{
		Capacity:  5,
		FirstN:    100,
		Timeout:   10 * time.Second,
		LogLevel:  "info",
		LogFormat: "text",
		URLs: []string{
			"https://google.com",
			"https://google.com",
			"https://ithillel.ua",
			"https://github.com/",
			"https://mail.google.com/",
			"https://youtube.com",
			"https://google.com/maps",
		},
	}
}

// loadConfig reads path over the defaults. An empty path returns the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, perrors.Wrapf(err, perrors.CodeNotFound, "failed to read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, perrors.Wrapf(err, perrors.CodeInvalidConfig, "failed to parse config %s", path)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Capacity < 0 {
		return perrors.Newf(perrors.CodeInvalidConfig, "capacity must not be negative, got %d", c.Capacity)
	}
	if c.FirstN < 0 {
		return perrors.Newf(perrors.CodeInvalidConfig, "first_n must not be negative, got %d", c.FirstN)
	}
	if c.Timeout <= 0 {
		return perrors.Newf(perrors.CodeInvalidConfig, "timeout must be positive, got %s", c.Timeout)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return perrors.Newf(perrors.CodeInvalidConfig, "unknown log format %q", c.LogFormat)
	}
	return nil
}
