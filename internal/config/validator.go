package config

import (
	"errors"
	"fmt"
)

// Validator validates a Config and fills in smart defaults, grounded on the
// teacher's internal/config.Validator.
type Validator struct{}

// NewValidator creates a configuration validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates cfg and applies smartDefaults in place.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateProject(&cfg.Project); err != nil {
		return NewConfigError("project", cfg.Project.Root, err)
	}
	if err := v.validateWorkers(&cfg.Workers); err != nil {
		return NewConfigError("workers", "", err)
	}
	if err := v.validateStrictness(&cfg.Strictness); err != nil {
		return NewConfigError("strictness", cfg.Strictness.Default, err)
	}

	smartDefaults(cfg)
	return nil
}

func (v *Validator) validateProject(project *Project) error {
	if project.Root == "" {
		return errors.New("project root cannot be empty")
	}
	return nil
}

func (v *Validator) validateWorkers(w *Workers) error {
	if w.PoolSize < 0 {
		return fmt.Errorf("Workers.PoolSize cannot be negative, got %d", w.PoolSize)
	}
	if w.CheckpointGranularity < 0 {
		return fmt.Errorf("Workers.CheckpointGranularity cannot be negative, got %d", w.CheckpointGranularity)
	}
	return nil
}

func (v *Validator) validateStrictness(s *Strictness) error {
	switch s.Default {
	case "", "ignore", "false", "true", "strict", "strong":
		return nil
	default:
		return fmt.Errorf("Strictness.Default must be one of ignore/false/true/strict/strong, got %q", s.Default)
	}
}

// ValidateConfig is a convenience wrapper around Validator.ValidateAndSetDefaults.
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
