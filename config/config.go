package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/paranblues/reddwarf/lock"
)

// AccessCoordinatorConfig holds the tunables spec.md section 6 names for
// the access-coordination core: lock.timeout, num.key.maps, and the
// txn.timeout used only to derive a default lock.timeout.
type AccessCoordinatorConfig struct {
	LockTimeoutMS int64 `yaml:"lock_timeout_ms"`
	NumKeyMaps    int   `yaml:"num_key_maps"`
	TxnTimeoutMS  int64 `yaml:"txn_timeout_ms"`
}

// Config is the root configuration structure.
type Config struct {
	Version           int                     `yaml:"version"`
	AccessCoordinator AccessCoordinatorConfig `yaml:"access_coordinator"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported config version: %d (expected 1)", c.Version)
	}
	if c.AccessCoordinator.LockTimeoutMS < 0 {
		return fmt.Errorf("access_coordinator.lock_timeout_ms must not be negative")
	}
	if c.AccessCoordinator.NumKeyMaps < 0 {
		return fmt.Errorf("access_coordinator.num_key_maps must not be negative")
	}
	if c.AccessCoordinator.TxnTimeoutMS < 0 {
		return fmt.Errorf("access_coordinator.txn_timeout_ms must not be negative")
	}
	return nil
}

// LockTimeout returns the configured lock.timeout. Per spec.md section
// 6, an unset (zero) lock_timeout_ms derives a default of 0.1 times the
// txn timeout, floored at 1ms.
func (c AccessCoordinatorConfig) LockTimeout() time.Duration {
	if c.LockTimeoutMS > 0 {
		return time.Duration(c.LockTimeoutMS) * time.Millisecond
	}
	d := time.Duration(float64(c.TxnTimeoutMS)*0.1) * time.Millisecond
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

// NumShards returns the configured shard count for the key map, falling
// back to lock.DefaultNumKeyMaps when unset.
func (c AccessCoordinatorConfig) NumShards() int {
	if c.NumKeyMaps < 1 {
		return lock.DefaultNumKeyMaps
	}
	return c.NumKeyMaps
}
