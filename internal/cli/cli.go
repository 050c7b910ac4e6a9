// Package cli implements the wheelscan command-line interface.
//
// This package provides commands for inspecting wheel packages, fetching
// them from a package index, serving the inspection HTTP API, and managing
// the local response cache. The CLI is built using cobra and supports
// verbose logging via the charmbracelet/log library.
//
// # Commands
//
//   - inspect: Verify a wheel archive, unpacked directory, or dist-info dir
//   - fetch: Download a wheel from the index and inspect it
//   - serve: Run the inspection HTTP API
//   - schema: Print the report JSON Schema
//   - browse: Explore a report's findings interactively
//   - cache: Manage the HTTP response cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging and --quiet
// (-q) to suppress progress output. Configuration is read from
// $XDG_CONFIG_HOME/wheelscan/config.toml unless --config points elsewhere.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pkgfoundry/wheelscan/pkg/buildinfo"
	"github.com/pkgfoundry/wheelscan/pkg/cache"
)

// appName is the application name used for directories and display.
const appName = "wheelscan"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	cfg    *Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var (
		verbose    bool
		quiet      bool
		configPath string
	)

	root := &cobra.Command{
		Use:          appName,
		Short:        "Wheelscan inspects Python wheel packages",
		Long:         `Wheelscan verifies Python wheel packages against their RECORD manifest and reports everything knowable about them as deterministic JSON: parsed dist-info files, per-file digest findings, and derived facts.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case verbose:
				c.SetLogLevel(log.DebugLevel)
			case quiet:
				c.SetLogLevel(log.WarnLevel)
			}
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/wheelscan/config.toml)")

	// Register all subcommands
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.fetchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.schemaCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// config returns the loaded configuration, or a zero value when commands
// run without the root's PersistentPreRunE (tests).
func (c *CLI) config() *Config {
	if c.cfg == nil {
		return &Config{}
	}
	return c.cfg
}

// newCacheBackend builds the cache used for index responses. Cache
// breakage degrades to no caching rather than failing the command.
func (c *CLI) newCacheBackend(noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}
	dir, err := c.cacheDir()
	if err != nil {
		return cache.NewNullCache()
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warn("cache disabled", "err", err)
		return cache.NewNullCache()
	}
	return fc
}

// cacheDir returns the cache directory: [cache] dir from the config file
// when set, otherwise the XDG standard location (~/.cache/wheelscan/).
func (c *CLI) cacheDir() (string, error) {
	if dir := c.config().Cache.Dir; dir != "" {
		return dir, nil
	}
	return defaultCacheDir()
}

// defaultCacheDir returns the cache directory using the XDG convention.
func defaultCacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// wheelDir returns the directory fetched wheels are written to.
func (c *CLI) wheelDir() (string, error) {
	dir, err := c.cacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache dir: %w", err)
	}
	return filepath.Join(dir, "wheels"), nil
}
