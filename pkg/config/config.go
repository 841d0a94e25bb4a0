// Package config loads reversteem settings.
// Priority: defaults < YAML file < environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reversteem/reversteem/pkg/replay"
)

// DefaultFile is read from the working directory when REVERSTEEM_CONFIG
// is unset.
const DefaultFile = "reversteem.yaml"

// Cache backends.
const (
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
	CacheMemory = "memory"
	CacheNone   = "none"
)

// Config holds all reversteem configuration.
type Config struct {
	Database string        `yaml:"database"`
	Cache    CacheConfig   `yaml:"cache"`
	Log      LogConfig     `yaml:"log"`
	Timeout  replay.Limits `yaml:"timeout"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// CacheConfig selects the blob backend for replay and rating caches.
type CacheConfig struct {
	Backend string      `yaml:"backend"` // sqlite | redis | memory | none
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig for the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// LogConfig for the global logger.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// MetricsConfig for the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty = disabled
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Database: ".reversteem/reversteem.db",
		Cache: CacheConfig{
			Backend: CacheSQLite,
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		Log:     LogConfig{Level: "info"},
		Timeout: replay.DefaultLimits,
	}
}

// Load builds the configuration from defaults, the config file and the
// environment. A missing file is not an error unless REVERSTEEM_CONFIG
// names it explicitly.
func Load() (Config, error) {
	cfg := Default()

	path, explicit := os.LookupEnv("REVERSTEEM_CONFIG")
	if !explicit || path == "" {
		path, explicit = DefaultFile, false
	}
	if err := cfg.loadFile(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// loadFile merges a YAML file over cfg. Fields absent from the file keep
// their current values.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return Parse(data, c)
}

// Parse merges YAML data over cfg.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.Database = envOr("REVERSTEEM_DB", c.Database)
	c.Cache.Backend = strings.ToLower(envOr("REVERSTEEM_CACHE", c.Cache.Backend))
	c.Cache.Redis.Addr = envOr("REVERSTEEM_REDIS_ADDR", c.Cache.Redis.Addr)
	c.Cache.Redis.Password = envOr("REVERSTEEM_REDIS_PASSWORD", c.Cache.Redis.Password)
	c.Log.Level = envOr("REVERSTEEM_LOG_LEVEL", c.Log.Level)
	c.Metrics.Addr = envOr("REVERSTEEM_METRICS_ADDR", c.Metrics.Addr)

	if v := os.Getenv("REVERSTEEM_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REVERSTEEM_REDIS_DB: %w", err)
		}
		c.Cache.Redis.DB = n
	}
	if v := os.Getenv("REVERSTEEM_LOG_JSON"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("REVERSTEEM_LOG_JSON: %w", err)
		}
		c.Log.JSON = b
	}
	return nil
}

// Validate rejects unusable settings.
func (c Config) Validate() error {
	if c.Database == "" {
		return errors.New("database path is empty")
	}
	switch c.Cache.Backend {
	case CacheSQLite, CacheMemory, CacheNone:
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			return errors.New("cache backend redis needs an address")
		}
	default:
		return fmt.Errorf("unknown cache backend %q (want sqlite, redis, memory or none)", c.Cache.Backend)
	}
	if err := c.Timeout.Validate(); err != nil {
		return fmt.Errorf("timeout: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
