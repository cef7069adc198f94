// ABOUTME: Tests for configuration defaults, validation, YAML overlay, and env overlay.
// ABOUTME: Overlay precedence: defaults, then file, then GAUNTLET_* environment.
package solver

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.Headless {
		t.Errorf("expected headless by default")
	}
	if cfg.TotalSteps != 30 || cfg.SuccessThreshold != 28 {
		t.Errorf("expected 30 steps / threshold 28, got %d/%d", cfg.TotalSteps, cfg.SuccessThreshold)
	}
	if cfg.RunBudget != 290*time.Second || cfg.StepBudget != 40*time.Second || cfg.AttemptBudget != 15*time.Second {
		t.Errorf("unexpected budget defaults: %v %v %v", cfg.RunBudget, cfg.StepBudget, cfg.AttemptBudget)
	}
	if cfg.MaxRetries != 3 || cfg.EscalationThreshold != 2 || cfg.SkipRange != 3 {
		t.Errorf("unexpected retry defaults: %d %d %d", cfg.MaxRetries, cfg.EscalationThreshold, cfg.SkipRange)
	}
	if cfg.LLMBaseURL == "" {
		t.Errorf("expected an OpenAI-compatible base URL by default")
	}
}

func TestValidateRequiresTargetURL(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); !errors.Is(err, ErrMissingTargetURL) {
		t.Fatalf("expected ErrMissingTargetURL, got %v", err)
	}
	cfg.TargetURL = "http://gauntlet.test"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsNonsense(t *testing.T) {
	base := DefaultConfig()
	base.TargetURL = "http://gauntlet.test"

	mutations := []func(c *Config){
		func(c *Config) { c.TotalSteps = 0 },
		func(c *Config) { c.SuccessThreshold = 99 },
		func(c *Config) { c.RunBudget = 0 },
		func(c *Config) { c.MaxRetries = 0 },
		func(c *Config) { c.SkipRange = 0 },
		func(c *Config) { c.AdvancePolls = 0 },
	}
	for i, mutate := range mutations {
		cfg := base
		mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("mutation %d: expected ErrInvalidConfig, got %v", i, err)
		}
	}
}

func TestApplyFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gauntlet.yaml")
	content := `
target_url: http://configured.test
total_steps: 12
run_budget: 100s
settle_delay: 250ms
fast_model: openai/gpt-4o-mini
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := DefaultConfig()
	if err := cfg.ApplyFile(path); err != nil {
		t.Fatalf("ApplyFile: %v", err)
	}
	if cfg.TargetURL != "http://configured.test" {
		t.Errorf("expected target URL from file, got %q", cfg.TargetURL)
	}
	if cfg.TotalSteps != 12 {
		t.Errorf("expected 12 steps, got %d", cfg.TotalSteps)
	}
	if cfg.RunBudget != 100*time.Second {
		t.Errorf("expected 100s run budget, got %v", cfg.RunBudget)
	}
	if cfg.SettleDelay != 250*time.Millisecond {
		t.Errorf("expected 250ms settle, got %v", cfg.SettleDelay)
	}
	// absent keys keep their defaults
	if cfg.SuccessThreshold != 28 {
		t.Errorf("expected untouched threshold, got %d", cfg.SuccessThreshold)
	}
	if cfg.StepBudget != 40*time.Second {
		t.Errorf("expected untouched step budget, got %v", cfg.StepBudget)
	}
}

func TestApplyFileRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gauntlet.yaml")
	if err := os.WriteFile(path, []byte("run_budget: not-a-duration\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg := DefaultConfig()
	if err := cfg.ApplyFile(path); err == nil {
		t.Fatalf("expected an error for a bad duration string")
	}
}

func TestApplyEnvOverlay(t *testing.T) {
	t.Setenv("GAUNTLET_URL", "http://env.test")
	t.Setenv("GAUNTLET_TOTAL_STEPS", "7")
	t.Setenv("GAUNTLET_RUN_BUDGET", "45s")
	t.Setenv("GAUNTLET_HEADLESS", "false")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.TargetURL != "http://env.test" {
		t.Errorf("expected env target URL, got %q", cfg.TargetURL)
	}
	if cfg.TotalSteps != 7 {
		t.Errorf("expected 7 steps, got %d", cfg.TotalSteps)
	}
	if cfg.RunBudget != 45*time.Second {
		t.Errorf("expected 45s budget, got %v", cfg.RunBudget)
	}
	if cfg.Headless {
		t.Errorf("expected headless disabled via env")
	}
	// untouched values survive
	if cfg.MaxRetries != 3 {
		t.Errorf("expected default retries, got %d", cfg.MaxRetries)
	}
}

func TestApplyEnvRejectsGarbage(t *testing.T) {
	t.Setenv("GAUNTLET_TOTAL_STEPS", "many")
	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err == nil {
		t.Fatalf("expected an error for a non-numeric step count")
	}
}

func TestApplyEnvAPIKeyFallback(t *testing.T) {
	t.Setenv("GAUNTLET_LLM_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "sk-or-fallback")
	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.LLMAPIKey != "sk-or-fallback" {
		t.Errorf("expected the OpenRouter key fallback, got %q", cfg.LLMAPIKey)
	}

	t.Setenv("GAUNTLET_LLM_API_KEY", "sk-gauntlet")
	cfg = DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.LLMAPIKey != "sk-gauntlet" {
		t.Errorf("expected the dedicated key to win, got %q", cfg.LLMAPIKey)
	}
}
