// Package config loads rbtc's project configuration file (rbtc.kdl) and the
// workspace-level defaults that the scheduler, worker pool, and parse front
// end run with when a project doesn't override them. Grounded on the
// teacher's internal/config package: same two-tier load order (global
// ~/rbtc.kdl base, project rbtc.kdl override) and the same validate-then
// apply-smart-defaults shape, trimmed from the teacher's indexer/search
// config surface down to what a typechecker core actually consumes.
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/standardbeagle/rbtc/internal/core"
)

// Config is the fully-resolved project configuration: on-disk rbtc.kdl
// merged with the global base config and smart defaults.
type Config struct {
	Version    int
	Project    Project
	Strictness Strictness
	Workers    Workers
	Cache      Cache
	Include    []string
	Exclude    []string
}

// Project identifies the workspace being typechecked.
type Project struct {
	Root string
	Name string
}

// Strictness controls the sigil default and gitignore handling used when
// classifying files that enter the pipeline.
type Strictness struct {
	// Default is the strictness level (per core.Strictness.String()) applied
	// to a file with no `# typed: <level>` sigil comment.
	Default string

	// RespectGitignore excludes paths matched by the project's .gitignore
	// in addition to the Exclude patterns below.
	RespectGitignore bool
}

// DefaultLevel parses Strictness.Default into a core.Strictness, falling
// back to StrictnessFalse for an empty or unrecognized value.
func (s Strictness) DefaultLevel() core.Strictness {
	switch s.Default {
	case "ignore":
		return core.StrictnessIgnore
	case "true":
		return core.StrictnessTrue
	case "strict":
		return core.StrictnessStrict
	case "strong":
		return core.StrictnessStrong
	default:
		return core.StrictnessFalse
	}
}

// Workers controls the concurrency knobs spec.md Section 5 leaves to the
// caller: how many goroutines internal/workerpool may run at once, and how
// often a slow-path worker checkpoints against preemption.
type Workers struct {
	// PoolSize is the max goroutines workerpool.Run/StreamPool may use for a
	// single pass. 0 means auto-detect (NumCPU-1, minimum 1).
	PoolSize int

	// CheckpointGranularity is how many files a slow-path worker processes
	// between calls to the scheduler's Checkpoint, trading preemption
	// latency against checkpoint overhead. 0 means every file (granularity 1).
	CheckpointGranularity int
}

// Cache controls the on-disk pass-cache manifest (internal/cachestore).
type Cache struct {
	// Dir is the cache directory, relative to Project.Root unless absolute.
	// Empty disables on-disk caching; the pipeline must behave identically
	// with or without it, per spec.md's persisted-state requirement.
	Dir string
}

// ConfigError is a validation failure for one config field, grounded on the
// teacher's internal/errors.ConfigError.
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError wraps err as a field-scoped configuration error.
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{Field: field, Value: value, Underlying: err, Timestamp: time.Now()}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %q): %v", e.Field, e.Value, e.Underlying)
}

func (e *ConfigError) Unwrap() error { return e.Underlying }

// defaultExclude is the baseline exclusion set a fresh project gets before
// any rbtc.kdl is consulted; project config can extend or replace it.
func defaultExclude() []string {
	return []string{
		"**/.git/**",
		"**/.*/**",
		"**/node_modules/**",
		"**/vendor/**",
		"**/venv/**",
		"**/.venv/**",
		"**/__pycache__/**",
		"**/*.pyc",
		"**/build/**",
		"**/dist/**",
		"**/.rbtc-cache/**",
	}
}

// Load resolves configuration for the project rooted at path, merging a
// global ~/rbtc.kdl base with path's rbtc.kdl and applying smart defaults.
func Load(path string) (*Config, error) {
	return LoadWithRoot(path, "")
}

// LoadWithRoot is Load with an explicit search directory override.
func LoadWithRoot(path string, rootDir string) (*Config, error) {
	searchDir := path
	if rootDir != "" {
		searchDir = rootDir
	}

	var baseConfig *Config
	if homeDir, err := os.UserHomeDir(); err == nil {
		if globalCfg, err := LoadKDL(homeDir); err == nil && globalCfg != nil {
			baseConfig = globalCfg
		}
	}

	var projectConfig *Config
	kdlCfg, err := LoadKDL(searchDir)
	if err != nil {
		return nil, err
	}
	projectConfig = kdlCfg

	var cfg *Config
	switch {
	case baseConfig != nil && projectConfig != nil:
		cfg = mergeConfigs(baseConfig, projectConfig)
	case projectConfig != nil:
		cfg = projectConfig
	case baseConfig != nil:
		baseConfig.Project.Root = searchDir
		cfg = baseConfig
	default:
		cfg = defaultConfig(searchDir)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig(root string) *Config {
	cwd := root
	if cwd == "" {
		if wd, err := os.Getwd(); err == nil {
			cwd = wd
		} else {
			cwd = "."
		}
	}

	return &Config{
		Version: 1,
		Project: Project{Root: cwd},
		Strictness: Strictness{
			Default:          "false",
			RespectGitignore: true,
		},
		Workers: Workers{
			PoolSize:              0,
			CheckpointGranularity: 1,
		},
		Cache: Cache{Dir: ".rbtc-cache"},
		Include: []string{
			"**/*.py",
		},
		Exclude: defaultExclude(),
	}
}

// mergeConfigs merges a base config with a project config; project settings
// win, but base exclusions are preserved alongside the project's own.
func mergeConfigs(base, project *Config) *Config {
	merged := *project

	if len(base.Exclude) > 0 {
		seen := make(map[string]bool, len(base.Exclude)+len(project.Exclude))
		merged.Exclude = make([]string, 0, len(base.Exclude)+len(project.Exclude))
		for _, pattern := range base.Exclude {
			if !seen[pattern] {
				seen[pattern] = true
				merged.Exclude = append(merged.Exclude, pattern)
			}
		}
		for _, pattern := range project.Exclude {
			if !seen[pattern] {
				seen[pattern] = true
				merged.Exclude = append(merged.Exclude, pattern)
			}
		}
	}

	if len(project.Include) == 0 && len(base.Include) > 0 {
		merged.Include = base.Include
	}

	return &merged
}

// smartDefaults fills zero-valued concurrency knobs from the runtime
// environment, mirroring the teacher's validator.setSmartDefaults.
func smartDefaults(cfg *Config) {
	if cfg.Workers.PoolSize == 0 {
		cfg.Workers.PoolSize = max(1, runtime.NumCPU()-1)
	}
	if cfg.Workers.CheckpointGranularity == 0 {
		cfg.Workers.CheckpointGranularity = 1
	}
	if cfg.Strictness.Default == "" {
		cfg.Strictness.Default = "false"
	}
}
