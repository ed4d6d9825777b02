// Package config loads service settings from an optional YAML file, then applies
// environment overrides on top.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/inqbatorchris/aimee-sub007/internal/geo"
	"github.com/inqbatorchris/aimee-sub007/internal/topology"
)

type Config struct {
	HTTPAddr    string `yaml:"http_addr"`
	LogLevel    string `yaml:"log_level"`
	DatabaseURL string `yaml:"database_url"`

	Session  SessionConfig  `yaml:"session"`
	Dispatch DispatchConfig `yaml:"dispatch"`

	// ListLimit caps how many nodes one refresh loads.
	ListLimit int32 `yaml:"list_limit"`

	Taxonomy      topology.Taxonomy   `yaml:"taxonomy"`
	DefaultFilter topology.NodeFilter `yaml:"default_filter"`
}

type SessionConfig struct {
	TTL       time.Duration `yaml:"ttl"`
	InboxSize int           `yaml:"inbox_size"`
}

type DispatchConfig struct {
	Workers   int           `yaml:"workers"`
	QueueSize int           `yaml:"queue_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

func Default() Config {
	return Config{
		HTTPAddr: ":8081",
		LogLevel: "info",
		Session: SessionConfig{
			TTL:       30 * time.Minute,
			InboxSize: 64,
		},
		Dispatch: DispatchConfig{
			Workers:   4,
			QueueSize: 256,
			Timeout:   10 * time.Second,
		},
		ListLimit: 5000,
		Taxonomy:  topology.DefaultTaxonomy(),
	}
}

// Load reads the file named by EDITOR_CONFIG (if set) and applies env overrides.
// getenv is usually os.Getenv.
func Load(getenv func(string) string) (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(getenv("EDITOR_CONFIG")); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	cfg.Taxonomy = cfg.Taxonomy.Normalized()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	cfg.HTTPAddr = envOr(getenv, "HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogLevel = envOr(getenv, "LOG_LEVEL", cfg.LogLevel)
	cfg.DatabaseURL = envOr(getenv, "DATABASE_URL", cfg.DatabaseURL)

	if v := getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SESSION_TTL: %w", err)
		}
		cfg.Session.TTL = d
	}
	if v := getenv("DISPATCH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DISPATCH_WORKERS: %w", err)
		}
		cfg.Dispatch.Workers = n
	}
	if v := getenv("DISPATCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DISPATCH_TIMEOUT: %w", err)
		}
		cfg.Dispatch.Timeout = d
	}
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("http_addr is required")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.Session.TTL)
	}
	if c.Dispatch.Workers <= 0 {
		return fmt.Errorf("dispatch workers must be positive, got %d", c.Dispatch.Workers)
	}
	if c.Dispatch.Timeout <= 0 {
		return fmt.Errorf("dispatch timeout must be positive, got %s", c.Dispatch.Timeout)
	}
	for _, t := range c.DefaultFilter.Types {
		if !c.Taxonomy.IsNodeType(topology.Normalize(t)) {
			return fmt.Errorf("default_filter: unknown node type %q", t)
		}
	}
	for _, s := range c.DefaultFilter.Statuses {
		if !c.Taxonomy.IsStatus(topology.Normalize(s)) {
			return fmt.Errorf("default_filter: unknown status %q", s)
		}
	}
	if b := c.DefaultFilter.Bounds; b != nil {
		if err := geo.Validate(b.SouthWest); err != nil {
			return fmt.Errorf("default_filter: south_west: %w", err)
		}
		if err := geo.Validate(b.NorthEast); err != nil {
			return fmt.Errorf("default_filter: north_east: %w", err)
		}
		if b.SouthWest.Lat > b.NorthEast.Lat || b.SouthWest.Lon > b.NorthEast.Lon {
			return fmt.Errorf("default_filter: south_west %s is not below and left of north_east %s", b.SouthWest, b.NorthEast)
		}
	}
	return nil
}

func envOr(getenv func(string) string, key, fallback string) string {
	v := getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
