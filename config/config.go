// Package config loads cache configuration from a YAML file and
// builds the storage backend and transport options it describes.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cachetrip/cachetrip"
	"github.com/cachetrip/cachetrip/storage"
)

// Supported storage backends.
const (
	BackendDisk   = "disk"
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config represents the cache configuration.
type Config struct {
	Cache CacheConfig `yaml:"cache"`
}

// CacheConfig contains cache-related configuration.
type CacheConfig struct {
	TTL          string   `yaml:"ttl"`
	Backend      string   `yaml:"backend"` // "disk", "memory" or "sqlite"
	Folder       string   `yaml:"folder"`
	SQLitePath   string   `yaml:"sqlite_path"`
	Headers      []string `yaml:"headers"`
	Separator    string   `yaml:"separator"`
	StrictFields bool     `yaml:"strict_fields"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	// Set defaults
	if config.Cache.Backend == "" {
		config.Cache.Backend = BackendDisk
	}

	return &config, nil
}

// GetCacheTTL parses and returns the cache TTL duration.
func (c *Config) GetCacheTTL() (time.Duration, error) {
	return time.ParseDuration(c.Cache.TTL)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Cache.TTL == "" {
		return fmt.Errorf("cache TTL is required")
	}

	if _, err := c.GetCacheTTL(); err != nil {
		return fmt.Errorf("invalid cache TTL format: %w", err)
	}

	switch c.Cache.Backend {
	case BackendDisk:
		if c.Cache.Folder == "" {
			return fmt.Errorf("cache folder is required for the disk backend")
		}
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("unknown cache backend: %s", c.Cache.Backend)
	}

	return nil
}

// NewStorage builds the storage backend described by the config.
func (c *Config) NewStorage() (storage.Storage, error) {
	switch c.Cache.Backend {
	case BackendDisk:
		disk := storage.NewDisk(c.Cache.Folder)
		if err := disk.Init(); err != nil {
			return nil, fmt.Errorf("initializing disk storage: %w", err)
		}
		return disk, nil
	case BackendMemory:
		return storage.NewMemory(), nil
	case BackendSQLite:
		return storage.NewSQLite(c.Cache.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", c.Cache.Backend)
	}
}

// TransportOptions builds the transport options described by the
// config.
func (c *Config) TransportOptions() (cachetrip.Options, error) {
	ttl, err := c.GetCacheTTL()
	if err != nil {
		return cachetrip.Options{}, fmt.Errorf("invalid cache TTL: %w", err)
	}

	return cachetrip.Options{
		TTL:          ttl,
		Headers:      c.Cache.Headers,
		Separator:    c.Cache.Separator,
		StrictFields: c.Cache.StrictFields,
	}, nil
}
