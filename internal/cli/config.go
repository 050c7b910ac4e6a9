package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the settings read from the configuration file. Every field
// has a working zero value; command-line flags override file values.
type Config struct {
	Verify VerifyConfig `toml:"verify"`
	Index  IndexConfig  `toml:"index"`
	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`
}

// VerifyConfig narrows how packages are verified.
type VerifyConfig struct {
	// Algorithms restricts the digest algorithms accepted in RECORD files.
	// Empty means every non-weak registered algorithm.
	Algorithms []string `toml:"algorithms"`

	// CaseSensitive promotes filename casing drift from a finding to a
	// validation error.
	CaseSensitive bool `toml:"case_sensitive"`
}

// IndexConfig points fetch at a package index.
type IndexConfig struct {
	// URL is the JSON API root. Empty means the public index.
	URL string `toml:"url"`

	// Timeout is the per-request timeout, e.g. "30s". Empty keeps the
	// client default.
	Timeout string `toml:"timeout"`
}

// CacheConfig controls the local HTTP response cache.
type CacheConfig struct {
	// Dir overrides the cache directory (default $XDG_CACHE_HOME/wheelscan).
	Dir string `toml:"dir"`

	// TTL is how long index responses stay cached, e.g. "24h".
	TTL string `toml:"ttl"`
}

// ServerConfig carries defaults for the serve command.
type ServerConfig struct {
	Addr        string `toml:"addr"`
	Redis       string `toml:"redis"`
	Mongo       string `toml:"mongo"`
	MongoDB     string `toml:"mongo_db"`
	StoreDir    string `toml:"store_dir"`
	MaxUploadMB int64  `toml:"max_upload_mb"`
}

// defaultCacheTTL applies when [cache] ttl is not set.
const defaultCacheTTL = 24 * time.Hour

// LoadConfig reads the configuration file at path. An empty path falls back
// to the default location; a missing file at the default location is not an
// error and yields a zero Config.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = defaultConfigPath(); err != nil {
			return &Config{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// CacheTTL parses [cache] ttl, defaulting to 24 hours.
func (c *Config) CacheTTL() (time.Duration, error) {
	if c.Cache.TTL == "" {
		return defaultCacheTTL, nil
	}
	ttl, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid cache ttl %q: %w", c.Cache.TTL, err)
	}
	return ttl, nil
}

// IndexTimeout parses [index] timeout. Zero means the client default.
func (c *Config) IndexTimeout() (time.Duration, error) {
	if c.Index.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Index.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid index timeout %q: %w", c.Index.Timeout, err)
	}
	return d, nil
}

// defaultConfigPath returns $XDG_CONFIG_HOME/wheelscan/config.toml, falling
// back to ~/.config/wheelscan/config.toml.
func defaultConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// configDir returns the configuration directory using the XDG convention.
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}
