// Package config holds the runtime configuration for swapd.
package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// Defaults for pending-state eviction. A zero TTL disables eviction
// entirely; pending records then live until matched or overwritten.
const (
	DefaultPendingTTL    = 0 * time.Second
	DefaultSweepInterval = 1 * time.Second
)

// RuntimeDirs holds the runtime directory layout:
//
//	{base}/       - runtime root
//	{base}/db/    - policy database directory
//
// RuntimeDirs is immutable after construction. Use NewRuntimeDirs to
// create; fields are unexported to prevent invalid instances.
type RuntimeDirs struct {
	base string
	db   string
}

// DefaultRuntimeDirs returns RuntimeDirs with production defaults.
// Panics if the default path is somehow invalid (should never happen).
func DefaultRuntimeDirs() RuntimeDirs {
	dirs, err := NewRuntimeDirs("/run/swapd")
	if err != nil {
		panic(fmt.Sprintf("DefaultRuntimeDirs: %v", err))
	}
	return dirs
}

// NewRuntimeDirs creates RuntimeDirs rooted at base. All subdirectories
// are derived from the base. Returns an error if base is empty or not an
// absolute path.
func NewRuntimeDirs(base string) (RuntimeDirs, error) {
	if base == "" {
		return RuntimeDirs{}, fmt.Errorf("base path cannot be empty")
	}
	if !filepath.IsAbs(base) {
		return RuntimeDirs{}, fmt.Errorf("base path must be absolute, got %q", base)
	}

	return RuntimeDirs{
		base: base,
		db:   filepath.Join(base, "db"),
	}, nil
}

// Base returns the runtime root directory.
func (d RuntimeDirs) Base() string { return d.base }

// DB returns the policy database directory.
func (d RuntimeDirs) DB() string { return d.db }

// PolicyDB returns the path of the policy database file.
func (d RuntimeDirs) PolicyDB() string { return filepath.Join(d.db, "policy.db") }

// Lock returns the path of the single-instance lock file.
func (d RuntimeDirs) Lock() string { return filepath.Join(d.base, ".lock") }

// Config is the validated daemon configuration. Immutable after
// construction; use New.
type Config struct {
	dirs          RuntimeDirs
	pendingTTL    time.Duration
	sweepInterval time.Duration
}

// New validates and builds a Config. A zero pendingTTL disables the
// eviction sweep; when eviction is enabled the sweep interval must be
// positive.
func New(dirs RuntimeDirs, pendingTTL, sweepInterval time.Duration) (Config, error) {
	if pendingTTL < 0 {
		return Config{}, fmt.Errorf("pending TTL cannot be negative, got %v", pendingTTL)
	}
	if pendingTTL > 0 && sweepInterval <= 0 {
		return Config{}, fmt.Errorf("sweep interval must be positive when eviction is enabled, got %v", sweepInterval)
	}
	return Config{
		dirs:          dirs,
		pendingTTL:    pendingTTL,
		sweepInterval: sweepInterval,
	}, nil
}

// Default returns the production default configuration.
func Default() Config {
	cfg, err := New(DefaultRuntimeDirs(), DefaultPendingTTL, DefaultSweepInterval)
	if err != nil {
		panic(fmt.Sprintf("Default: %v", err))
	}
	return cfg
}

// Dirs returns the runtime directory layout.
func (c Config) Dirs() RuntimeDirs { return c.dirs }

// PendingTTL returns how long pending records may wait before eviction.
// Zero means eviction is disabled.
func (c Config) PendingTTL() time.Duration { return c.pendingTTL }

// SweepInterval returns how often the eviction sweep runs.
func (c Config) SweepInterval() time.Duration { return c.sweepInterval }
