// Package config handles configuration loading and validation for foreman.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/colonyops/foreman/internal/core/hosting"
	"github.com/colonyops/foreman/internal/core/lane"
	"github.com/colonyops/foreman/internal/core/policy"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	GitPath        string                     `yaml:"git_path"`
	RepoDir        string                     `yaml:"repo_dir"`
	DefaultTarget  lane.Target                `yaml:"default_target"`
	ReworkLimit    int                        `yaml:"rework_limit"`
	BranchTemplate string                     `yaml:"branch_template"`
	DB             DBConfig                   `yaml:"db"`
	Lanes          map[lane.Target]LaneConfig `yaml:"lanes"`
	Policy         policy.Table               `yaml:"policy"`
	Staleness      StalenessConfig            `yaml:"staleness"`
	DataDir        string                     `yaml:"-"` // set by caller, not from config file
}

// LaneConfig holds per-promotion-target settings.
type LaneConfig struct {
	// Branch is the host branch promotions for this lane merge into.
	Branch string `yaml:"branch"`
}

// DBConfig holds SQLite settings.
type DBConfig struct {
	BusyTimeoutMS int `yaml:"busy_timeout_ms"`
}

// StalenessConfig controls the staleness sweeper. A zero threshold disables
// sweeping entirely.
type StalenessConfig struct {
	Threshold     time.Duration `yaml:"threshold"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// defaultLanes maps each promotion target to its conventional host branch.
var defaultLanes = map[lane.Target]LaneConfig{
	lane.Integration: {Branch: "develop"},
	lane.Production:  {Branch: "main"},
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		GitPath:        "git",
		DefaultTarget:  lane.Integration,
		ReworkLimit:    3,
		BranchTemplate: hosting.DefaultBranchTemplate,
		DB: DBConfig{
			BusyTimeoutMS: 5000,
		},
		Lanes:  map[lane.Target]LaneConfig{},
		Policy: policy.Table{},
		Staleness: StalenessConfig{
			Threshold:     24 * time.Hour,
			SweepInterval: time.Hour,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	// Merge partial lane and policy tables into defaults (user config
	// overrides defaults per target)
	cfg.Lanes = mergeLanes(defaultLanes, cfg.Lanes)
	cfg.Policy = mergePolicy(policy.DefaultTable(), cfg.Policy)

	// Apply defaults for zero values
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.GitPath == "" {
		c.GitPath = defaults.GitPath
	}
	if c.DefaultTarget == "" {
		c.DefaultTarget = defaults.DefaultTarget
	}
	if c.ReworkLimit == 0 {
		c.ReworkLimit = defaults.ReworkLimit
	}
	if c.BranchTemplate == "" {
		c.BranchTemplate = defaults.BranchTemplate
	}
	if c.DB.BusyTimeoutMS == 0 {
		c.DB.BusyTimeoutMS = defaults.DB.BusyTimeoutMS
	}
	if c.Staleness.SweepInterval == 0 {
		c.Staleness.SweepInterval = defaults.Staleness.SweepInterval
	}
}

// mergeLanes merges user lane config into defaults.
// User entries override defaults for the same target.
func mergeLanes(defaults, user map[lane.Target]LaneConfig) map[lane.Target]LaneConfig {
	result := make(map[lane.Target]LaneConfig, len(defaults)+len(user))
	for k, v := range defaults {
		result[k] = v
	}
	for k, v := range user {
		result[k] = v
	}
	return result
}

// mergePolicy merges user policy rules into the default table.
// User entries override defaults for the same target.
func mergePolicy(defaults, user policy.Table) policy.Table {
	result := make(policy.Table, len(defaults)+len(user))
	for k, v := range defaults {
		result[k] = v
	}
	for k, v := range user {
		result[k] = v
	}
	return result
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.GitPath == "" {
		return fmt.Errorf("git_path cannot be empty")
	}

	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if !c.DefaultTarget.Valid() {
		return fmt.Errorf("default_target %q is not a promotion target", c.DefaultTarget)
	}

	if c.ReworkLimit < 1 {
		return fmt.Errorf("rework_limit must be at least 1")
	}

	if c.DB.BusyTimeoutMS < 0 {
		return fmt.Errorf("db.busy_timeout_ms cannot be negative")
	}

	if c.Staleness.Threshold < 0 {
		return fmt.Errorf("staleness.threshold cannot be negative")
	}
	if c.Staleness.Threshold > 0 && c.Staleness.SweepInterval < time.Second {
		return fmt.Errorf("staleness.sweep_interval must be at least 1s")
	}

	for _, target := range lane.Targets() {
		lc, ok := c.Lanes[target]
		if !ok || lc.Branch == "" {
			return fmt.Errorf("lanes.%s.branch cannot be empty", target)
		}
	}
	for target := range c.Lanes {
		if !target.Valid() {
			return fmt.Errorf("lanes.%s is not a promotion target", target)
		}
	}

	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	return nil
}

// LaneBranch returns the host branch promotions into the target merge into.
func (c *Config) LaneBranch(target lane.Target) string {
	return c.Lanes[target].Branch
}

// RegistryOnly reports whether no git clone is configured; promotions then
// run against the no-op host and only the registry is updated.
func (c *Config) RegistryOnly() bool {
	return c.RepoDir == ""
}
