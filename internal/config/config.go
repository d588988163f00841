// Package config loads the service configuration from an optional TOML file
// overlaid by RESMAP_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds the process settings of the resource-mapper service. Each
// field can come from the TOML file and most from a RESMAP_* variable.
type Config struct {
	HTTPAddr    string `toml:"http_addr"`    // RESMAP_HTTP_ADDR (default ":8080")
	Schema      string `toml:"schema"`       // RESMAP_SCHEMA (required)
	Catalog     string `toml:"catalog"`      // RESMAP_CATALOG (default: the schema file)
	DatabaseURL string `toml:"database_url"` // RESMAP_DATABASE_URL (optional, empty = in-memory store)
	Seed        string `toml:"seed"`         // RESMAP_SEED (optional fixtures for the in-memory store)
	LogLevel    string `toml:"log_level"`    // RESMAP_LOG_LEVEL (default "info")
	LogFormat   string `toml:"log_format"`   // RESMAP_LOG_FORMAT (default "text")
	Metrics     bool   `toml:"metrics"`      // RESMAP_METRICS (default true)

	// IDPrefixes maps a kind to the prefix of generated ids. File only.
	IDPrefixes map[string]string `toml:"id_prefixes"`
}

// Load reads the TOML file at path, if any, then applies environment
// overrides and defaults.
func Load(path string) (*Config, error) {
	c := &Config{Metrics: true}

	if path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	c.HTTPAddr = envOrDefault("RESMAP_HTTP_ADDR", orDefault(c.HTTPAddr, ":8080"))
	c.Schema = envOrDefault("RESMAP_SCHEMA", c.Schema)
	c.Catalog = envOrDefault("RESMAP_CATALOG", orDefault(c.Catalog, c.Schema))
	c.DatabaseURL = envOrDefault("RESMAP_DATABASE_URL", c.DatabaseURL)
	c.Seed = envOrDefault("RESMAP_SEED", c.Seed)
	c.LogLevel = envOrDefault("RESMAP_LOG_LEVEL", orDefault(c.LogLevel, "info"))
	c.LogFormat = envOrDefault("RESMAP_LOG_FORMAT", orDefault(c.LogFormat, "text"))

	if v := os.Getenv("RESMAP_METRICS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("RESMAP_METRICS: %w", err)
		}
		c.Metrics = b
	}

	if c.Schema == "" {
		return nil, fmt.Errorf("RESMAP_SCHEMA is required")
	}

	if c.Catalog == "" {
		c.Catalog = c.Schema
	}

	if _, err := c.Level(); err != nil {
		return nil, err
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("RESMAP_LOG_FORMAT: unknown format %q (want text or json)", c.LogFormat)
	}

	return c, nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("RESMAP_LOG_LEVEL: %w", err)
	}

	return l, nil
}

// Logger builds the process logger writing to stderr.
func (c *Config) Logger() *slog.Logger {
	level, _ := c.Level()
	opts := &slog.HandlerOptions{Level: level}

	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
