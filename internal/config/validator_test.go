package config

import (
	"runtime"
	"testing"
)

func TestValidateAndSetDefaults(t *testing.T) {
	cfg := &Config{
		Project: Project{Root: "/test/root", Name: "test-project"},
		Workers: Workers{PoolSize: 0, CheckpointGranularity: 0},
	}

	validator := NewValidator()
	if err := validator.ValidateAndSetDefaults(cfg); err != nil {
		t.Fatalf("ValidateAndSetDefaults failed: %v", err)
	}

	if cfg.Workers.PoolSize == 0 {
		t.Errorf("PoolSize should have been set to a CPU-derived default")
	}
	if cfg.Workers.CheckpointGranularity == 0 {
		t.Errorf("CheckpointGranularity should have been set to 1")
	}
	if cfg.Strictness.Default == "" {
		t.Errorf("Strictness.Default should have a default value")
	}
}

func TestValidateProject(t *testing.T) {
	validator := NewValidator()

	if err := validator.validateProject(&Project{Root: "/test/root", Name: "test-project"}); err != nil {
		t.Errorf("Expected no error for valid config, got %v", err)
	}

	if err := validator.validateProject(&Project{Root: "", Name: "test-project"}); err == nil {
		t.Errorf("Expected error for empty root")
	}
}

func TestValidateWorkers(t *testing.T) {
	validator := NewValidator()

	if err := validator.validateWorkers(&Workers{PoolSize: 4, CheckpointGranularity: 1}); err != nil {
		t.Errorf("Expected no error for valid config, got %v", err)
	}

	// Zero means auto-detect, so it must be valid.
	if err := validator.validateWorkers(&Workers{PoolSize: 0, CheckpointGranularity: 0}); err != nil {
		t.Errorf("Expected no error for PoolSize/CheckpointGranularity = 0 (auto-detect), got %v", err)
	}

	if err := validator.validateWorkers(&Workers{PoolSize: -1}); err == nil {
		t.Errorf("Expected error for negative PoolSize")
	}

	if err := validator.validateWorkers(&Workers{CheckpointGranularity: -1}); err == nil {
		t.Errorf("Expected error for negative CheckpointGranularity")
	}
}

func TestValidateStrictness(t *testing.T) {
	validator := NewValidator()

	for _, level := range []string{"", "ignore", "false", "true", "strict", "strong"} {
		if err := validator.validateStrictness(&Strictness{Default: level}); err != nil {
			t.Errorf("Expected no error for level %q, got %v", level, err)
		}
	}

	if err := validator.validateStrictness(&Strictness{Default: "bogus"}); err == nil {
		t.Errorf("Expected error for an unrecognized strictness level")
	}
}

func TestValidateConfig(t *testing.T) {
	cfg := &Config{
		Project: Project{Root: "/test/root", Name: "test-project"},
	}

	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("ValidateConfig failed: %v", err)
	}

	invalidCfg := &Config{
		Project: Project{Root: "", Name: "test-project"},
	}
	if err := ValidateConfig(invalidCfg); err == nil {
		t.Errorf("Expected error for invalid config")
	}
}

func TestSmartDefaults(t *testing.T) {
	cfg := &Config{
		Project: Project{Root: "/test/root"},
		Workers: Workers{PoolSize: 0, CheckpointGranularity: 0},
	}

	smartDefaults(cfg)

	want := runtime.NumCPU() - 1
	if want < 1 {
		want = 1
	}
	if cfg.Workers.PoolSize != want {
		t.Errorf("PoolSize = %d, want %d", cfg.Workers.PoolSize, want)
	}
	if cfg.Workers.CheckpointGranularity != 1 {
		t.Errorf("CheckpointGranularity should default to 1")
	}
	if cfg.Strictness.Default != "false" {
		t.Errorf("Strictness.Default should default to %q", "false")
	}
}

func BenchmarkValidateAndSetDefaults(b *testing.B) {
	cfg := &Config{
		Project: Project{Root: "/test/root", Name: "test-project"},
		Workers: Workers{PoolSize: 4},
	}

	validator := NewValidator()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		testCfg := *cfg
		_ = validator.ValidateAndSetDefaults(&testCfg)
	}
}
