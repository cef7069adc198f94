// ABOUTME: Run configuration with documented defaults, YAML file overlay, and GAUNTLET_* env overlay.
// ABOUTME: Precedence is defaults, then file, then environment; command-line flags apply last in cmd.
package solver

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrMissingTargetURL = errors.New("target URL is required (set -url, GAUNTLET_URL, or target_url in the config file)")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// Config holds every tunable of a run. Zero values are not usable; start
// from DefaultConfig and overlay.
type Config struct {
	TargetURL string // base URL of the challenge surface (required)
	Headless  bool   // run the browser headless (default true)

	TotalSteps       int // gated steps in the sequence (default 30)
	SuccessThreshold int // steps solved for a successful run (default 28)

	RunBudget     time.Duration // whole-run wall-clock ceiling (default 290s)
	StepBudget    time.Duration // per-step ceiling before skip-forward (default 40s)
	AttemptBudget time.Duration // single-attempt ceiling (default 15s)

	MaxRetries          int // failed attempts on a step before skip-forward (default 3)
	EscalationThreshold int // attempt index at which the vision tier engages (default 2)
	SkipRange           int // forward offsets tried before abandonment (default 3)

	SettleDelay     time.Duration // pause after interactive actions (default 400ms)
	ObservePoll     time.Duration // poll interval while the step is unknown (default 500ms)
	AdvancePolls    int           // advancement checks after a submit (default 3)
	AdvanceInterval time.Duration // pause between advancement checks (default 800ms)

	FastModel   string // text model for tier 1
	VisionModel string // image-capable model for tier 2
	LLMBaseURL  string // OpenAI-compatible endpoint (default OpenRouter)
	LLMAPIKey   string // bearer key, from env only

	DBPath     string // SQLite file for run persistence (empty = disabled)
	ReportPath string // markdown report output (empty = disabled)
	StatusAddr string // status server bind address (empty = disabled)

	Verbose bool
}

// DefaultConfig returns the documented defaults. TargetURL stays empty and
// must be supplied by file, environment, or flag.
func DefaultConfig() Config {
	return Config{
		Headless:            true,
		TotalSteps:          30,
		SuccessThreshold:    28,
		RunBudget:           290 * time.Second,
		StepBudget:          40 * time.Second,
		AttemptBudget:       15 * time.Second,
		MaxRetries:          3,
		EscalationThreshold: 2,
		SkipRange:           3,
		SettleDelay:         400 * time.Millisecond,
		ObservePoll:         500 * time.Millisecond,
		AdvancePolls:        3,
		AdvanceInterval:     800 * time.Millisecond,
		FastModel:           "openai/gpt-4o-mini",
		VisionModel:         "openai/gpt-4o",
		LLMBaseURL:          "https://openrouter.ai/api/v1",
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.TargetURL == "" {
		return ErrMissingTargetURL
	}
	if c.TotalSteps <= 0 {
		return fmt.Errorf("%w: total steps must be positive, got %d", ErrInvalidConfig, c.TotalSteps)
	}
	if c.SuccessThreshold < 0 || c.SuccessThreshold > c.TotalSteps {
		return fmt.Errorf("%w: success threshold %d outside 0..%d", ErrInvalidConfig, c.SuccessThreshold, c.TotalSteps)
	}
	if c.RunBudget <= 0 || c.StepBudget <= 0 || c.AttemptBudget <= 0 {
		return fmt.Errorf("%w: budgets must be positive", ErrInvalidConfig)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("%w: max retries must be at least 1, got %d", ErrInvalidConfig, c.MaxRetries)
	}
	if c.SkipRange < 1 {
		return fmt.Errorf("%w: skip range must be at least 1, got %d", ErrInvalidConfig, c.SkipRange)
	}
	if c.AdvancePolls < 1 {
		return fmt.Errorf("%w: advance polls must be at least 1, got %d", ErrInvalidConfig, c.AdvancePolls)
	}
	return nil
}

// fileConfig mirrors Config for the YAML overlay. Pointer fields distinguish
// "absent" from zero; durations are Go duration strings ("290s", "400ms").
type fileConfig struct {
	TargetURL           *string `yaml:"target_url"`
	Headless            *bool   `yaml:"headless"`
	TotalSteps          *int    `yaml:"total_steps"`
	SuccessThreshold    *int    `yaml:"success_threshold"`
	RunBudget           *string `yaml:"run_budget"`
	StepBudget          *string `yaml:"step_budget"`
	AttemptBudget       *string `yaml:"attempt_budget"`
	MaxRetries          *int    `yaml:"max_retries"`
	EscalationThreshold *int    `yaml:"escalation_threshold"`
	SkipRange           *int    `yaml:"skip_range"`
	SettleDelay         *string `yaml:"settle_delay"`
	ObservePoll         *string `yaml:"observe_poll"`
	AdvancePolls        *int    `yaml:"advance_polls"`
	AdvanceInterval     *string `yaml:"advance_interval"`
	FastModel           *string `yaml:"fast_model"`
	VisionModel         *string `yaml:"vision_model"`
	LLMBaseURL          *string `yaml:"llm_base_url"`
	DBPath              *string `yaml:"db_path"`
	ReportPath          *string `yaml:"report_path"`
	StatusAddr          *string `yaml:"status_addr"`
}

// ApplyFile overlays values from a YAML config file. Keys absent from the
// file leave the current value untouched.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	applyString(&c.TargetURL, fc.TargetURL)
	applyBool(&c.Headless, fc.Headless)
	applyInt(&c.TotalSteps, fc.TotalSteps)
	applyInt(&c.SuccessThreshold, fc.SuccessThreshold)
	applyInt(&c.MaxRetries, fc.MaxRetries)
	applyInt(&c.EscalationThreshold, fc.EscalationThreshold)
	applyInt(&c.SkipRange, fc.SkipRange)
	applyInt(&c.AdvancePolls, fc.AdvancePolls)
	applyString(&c.FastModel, fc.FastModel)
	applyString(&c.VisionModel, fc.VisionModel)
	applyString(&c.LLMBaseURL, fc.LLMBaseURL)
	applyString(&c.DBPath, fc.DBPath)
	applyString(&c.ReportPath, fc.ReportPath)
	applyString(&c.StatusAddr, fc.StatusAddr)

	for _, d := range []struct {
		key string
		dst *time.Duration
		src *string
	}{
		{"run_budget", &c.RunBudget, fc.RunBudget},
		{"step_budget", &c.StepBudget, fc.StepBudget},
		{"attempt_budget", &c.AttemptBudget, fc.AttemptBudget},
		{"settle_delay", &c.SettleDelay, fc.SettleDelay},
		{"observe_poll", &c.ObservePoll, fc.ObservePoll},
		{"advance_interval", &c.AdvanceInterval, fc.AdvanceInterval},
	} {
		if err := applyDuration(d.dst, d.src); err != nil {
			return fmt.Errorf("config file %s: %s: %w", path, d.key, err)
		}
	}
	return nil
}

// ApplyEnv overlays GAUNTLET_* environment variables. Unset variables leave
// the current value untouched; unparseable values are errors.
func (c *Config) ApplyEnv() error {
	c.TargetURL = envOrDefault("GAUNTLET_URL", c.TargetURL)
	c.FastModel = envOrDefault("GAUNTLET_FAST_MODEL", c.FastModel)
	c.VisionModel = envOrDefault("GAUNTLET_VISION_MODEL", c.VisionModel)
	c.LLMBaseURL = envOrDefault("GAUNTLET_LLM_BASE_URL", c.LLMBaseURL)
	c.DBPath = envOrDefault("GAUNTLET_DB", c.DBPath)
	c.ReportPath = envOrDefault("GAUNTLET_REPORT", c.ReportPath)
	c.StatusAddr = envOrDefault("GAUNTLET_STATUS_ADDR", c.StatusAddr)

	c.LLMAPIKey = envOrDefault("GAUNTLET_LLM_API_KEY", c.LLMAPIKey)
	if c.LLMAPIKey == "" {
		c.LLMAPIKey = os.Getenv("OPENROUTER_API_KEY")
	}

	if err := envBool("GAUNTLET_HEADLESS", &c.Headless); err != nil {
		return err
	}
	for _, v := range []struct {
		key string
		dst *int
	}{
		{"GAUNTLET_TOTAL_STEPS", &c.TotalSteps},
		{"GAUNTLET_SUCCESS_THRESHOLD", &c.SuccessThreshold},
		{"GAUNTLET_MAX_RETRIES", &c.MaxRetries},
		{"GAUNTLET_ESCALATION_THRESHOLD", &c.EscalationThreshold},
		{"GAUNTLET_SKIP_RANGE", &c.SkipRange},
		{"GAUNTLET_ADVANCE_POLLS", &c.AdvancePolls},
	} {
		if err := envInt(v.key, v.dst); err != nil {
			return err
		}
	}
	for _, v := range []struct {
		key string
		dst *time.Duration
	}{
		{"GAUNTLET_RUN_BUDGET", &c.RunBudget},
		{"GAUNTLET_STEP_BUDGET", &c.StepBudget},
		{"GAUNTLET_ATTEMPT_BUDGET", &c.AttemptBudget},
		{"GAUNTLET_SETTLE_DELAY", &c.SettleDelay},
		{"GAUNTLET_OBSERVE_POLL", &c.ObservePoll},
		{"GAUNTLET_ADVANCE_INTERVAL", &c.AdvanceInterval},
	} {
		if err := envDuration(v.key, v.dst); err != nil {
			return err
		}
	}
	return nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s=%q: %w", key, v, err)
	}
	*dst = b
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s=%q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s=%q: %w", key, v, err)
	}
	*dst = d
	return nil
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func applyBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func applyInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func applyDuration(dst *time.Duration, src *string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
