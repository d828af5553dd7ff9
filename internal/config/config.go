// Package config centralizes all application configuration into typed structs.
//
// Configuration is resolved in three layers: NewDefaultConfig supplies the
// defaults, an optional YAML file overrides any subset of them, and VF_*
// environment variables (optionally read from a .env file) override both.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"vehiclefinder/internal/geo"
)

// Source kinds understood by the loader.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Config is the top-level configuration container.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Index  IndexConfig  `yaml:"index"`
	Source SourceConfig `yaml:"source"`
	Query  QueryConfig  `yaml:"query"`
	Cache  CacheConfig  `yaml:"cache"`
	Log    LogConfig    `yaml:"log"`
	Auth   AuthConfig   `yaml:"auth"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// IndexConfig controls the quadtree. Domain uses x = longitude and
// y = latitude; positions outside it are not indexed. ReloadTimeout bounds
// one load-and-build cycle.
type IndexConfig struct {
	Domain           geo.Rect      `yaml:"domain"`
	MaxDepth         int           `yaml:"max_depth"`
	GeohashPrecision int           `yaml:"geohash_precision"`
	ReloadTimeout    time.Duration `yaml:"reload_timeout"`
}

// SourceConfig selects where vehicle positions are loaded from.
type SourceConfig struct {
	Kind        string `yaml:"kind"`
	Path        string `yaml:"path"`
	PostgresURL string `yaml:"postgres_url"`
}

// QueryConfig controls batch query fan-out.
type QueryConfig struct {
	Workers      int `yaml:"workers"`
	MaxBatchSize int `yaml:"max_batch_size"`
}

// CacheConfig configures the optional Redis result cache. An empty
// RedisAddr disables the cache.
type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

// LogConfig selects the log level and format ("text" or "json").
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AuthConfig protects admin endpoints. An empty AdminToken disables them.
type AuthConfig struct {
	AdminToken string `yaml:"admin_token"`
}

// NewDefaultConfig returns a Config populated with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Index: IndexConfig{
			Domain:           geo.WorldRect,
			MaxDepth:         geo.DefaultMaxDepth,
			GeohashPrecision: geo.DefaultGeohashPrecision,
			ReloadTimeout:    10 * time.Minute,
		},
		Source: SourceConfig{
			Kind: SourceFile,
			Path: "VehiclePositions.dat",
		},
		Query: QueryConfig{
			Workers:      8,
			MaxBatchSize: 1000,
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment. A .env file in the working directory
// is read first if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := NewDefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from VF_* variables returned by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("VF_PORT", &c.Server.Port)
	str("VF_SOURCE_KIND", &c.Source.Kind)
	str("VF_SOURCE_PATH", &c.Source.Path)
	str("VF_POSTGRES_URL", &c.Source.PostgresURL)
	str("VF_REDIS_ADDR", &c.Cache.RedisAddr)
	str("VF_REDIS_PASSWORD", &c.Cache.RedisPassword)
	str("VF_LOG_LEVEL", &c.Log.Level)
	str("VF_LOG_FORMAT", &c.Log.Format)
	str("VF_ADMIN_TOKEN", &c.Auth.AdminToken)

	for key, dst := range map[string]*int{
		"VF_INDEX_MAX_DEPTH":   &c.Index.MaxDepth,
		"VF_GEOHASH_PRECISION": &c.Index.GeohashPrecision,
		"VF_QUERY_WORKERS":     &c.Query.Workers,
		"VF_MAX_BATCH_SIZE":    &c.Query.MaxBatchSize,
		"VF_REDIS_DB":          &c.Cache.RedisDB,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	for key, dst := range map[string]*time.Duration{
		"VF_READ_TIMEOUT":   &c.Server.ReadTimeout,
		"VF_WRITE_TIMEOUT":  &c.Server.WriteTimeout,
		"VF_CACHE_TTL":      &c.Cache.TTL,
		"VF_RELOAD_TIMEOUT": &c.Index.ReloadTimeout,
	} {
		if err := dur(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate rejects configurations the index cannot run with.
func (c *Config) Validate() error {
	if c.Index.Domain.Width <= 0 || c.Index.Domain.Height <= 0 {
		return fmt.Errorf("index domain must have positive width and height, got %vx%v",
			c.Index.Domain.Width, c.Index.Domain.Height)
	}
	if c.Index.ReloadTimeout <= 0 {
		return fmt.Errorf("index reload_timeout must be positive, got %v", c.Index.ReloadTimeout)
	}
	c.Source.Kind = strings.ToLower(c.Source.Kind)
	switch c.Source.Kind {
	case SourceFile:
		if c.Source.Path == "" {
			return fmt.Errorf("source path is required for kind %q", SourceFile)
		}
	case SourcePostgres:
		if c.Source.PostgresURL == "" {
			return fmt.Errorf("postgres_url is required for kind %q", SourcePostgres)
		}
	default:
		return fmt.Errorf("unknown source kind %q", c.Source.Kind)
	}
	if c.Query.Workers < 1 {
		return fmt.Errorf("query workers must be at least 1, got %d", c.Query.Workers)
	}
	return nil
}
