package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the full runtime configuration for the generation pipeline.
// Defaults are applied first, then overridden by LESSONFORGE_* environment
// variables (see Load).
type Config struct {
	LLM         LLMConfig         `koanf:"llm"`
	Pipeline    PipelineConfig    `koanf:"pipeline"`
	Compression CompressionConfig `koanf:"compression"`
	Batch       BatchConfig       `koanf:"batch"`
	Paths       PathsConfig       `koanf:"paths"`
	Usage       UsageConfig       `koanf:"usage"`
	Store       StoreConfig       `koanf:"store"`
	LogMode     string            `koanf:"log_mode"` // "dev" or "prod"
}

// LLMConfig holds provider credentials and model selection.
type LLMConfig struct {
	OpenAIAPIKey     string `koanf:"openai_api_key"`
	OpenAIBaseURL    string `koanf:"openai_base_url"`
	AnthropicAPIKey  string `koanf:"anthropic_api_key"`
	GeminiAPIKey     string `koanf:"gemini_api_key"`
	OpenRouterAPIKey string `koanf:"openrouter_api_key"`

	// MaxOutputTokens caps completion size per model. Models not listed
	// fall back to DefaultMaxOutputTokens.
	MaxOutputTokens        map[string]int `koanf:"max_output_tokens"`
	DefaultMaxOutputTokens int            `koanf:"default_max_output_tokens"`
}

// PipelineConfig tunes the completion orchestrator and verification gate.
type PipelineConfig struct {
	AttemptsPerVariant int           `koanf:"attempts_per_variant"`
	BackoffBase        time.Duration `koanf:"backoff_base"`
	BackoffMax         time.Duration `koanf:"backoff_max"`
	BackoffMultiplier  float64       `koanf:"backoff_multiplier"`

	Temperature    float64 `koanf:"temperature"`
	TemperatureMin float64 `koanf:"temperature_min"`
	TemperatureMax float64 `koanf:"temperature_max"`

	// MaxTokens is the per-lesson output budget, clamped to the routed
	// model's ceiling at call time.
	MaxTokens int `koanf:"max_tokens"`

	VerifyAttempts    int     `koanf:"verify_attempts"`
	VerifyTemperature float64 `koanf:"verify_temperature"`
	VerifyMaxTokens   int     `koanf:"verify_max_tokens"`
}

// CompressionConfig tunes semantic compression of structured context.
type CompressionConfig struct {
	Enabled bool `koanf:"enabled"`

	// ThresholdBytes is the context size above which compression kicks in.
	ThresholdBytes int `koanf:"threshold_bytes"`

	// TargetRatio is the desired compressed/original token ratio.
	TargetRatio float64 `koanf:"target_ratio"`

	MaxTokens   int           `koanf:"max_tokens"`
	Temperature float64       `koanf:"temperature"`
	CacheTTL    time.Duration `koanf:"cache_ttl"`
	CacheSize   int           `koanf:"cache_size"`
}

// BatchConfig tunes the batch coordinator.
type BatchConfig struct {
	// MinValidFraction is the share of sub-lessons that must pass schema
	// validation for a true-batch result to be kept. Inherited cutoff,
	// tunable, not a law.
	MinValidFraction float64 `koanf:"min_valid_fraction"`

	// TokenDiscount is applied per lesson in true-batch mode since the
	// shared system prompt is paid for once.
	TokenDiscount float64 `koanf:"token_discount"`

	// BaseTokensPerLesson is the floor of the shared batch budget.
	BaseTokensPerLesson int `koanf:"base_tokens_per_lesson"`

	Temperature float64 `koanf:"temperature"`
}

// PathsConfig tunes the learning-path lock manager.
type PathsConfig struct {
	// Staleness is the age past which a pending record is presumed
	// abandoned and reclaimable.
	Staleness time.Duration `koanf:"staleness"`

	// RetryAfter is the suggested wait reported to callers that hit an
	// in-flight generation.
	RetryAfter time.Duration `koanf:"retry_after"`

	MaxTokens int `koanf:"max_tokens"`
}

// UsageConfig tunes the per-user spend gate.
type UsageConfig struct {
	// CostCeilingUSD is the running-cost ceiling per user inside Window.
	// Zero disables the gate.
	CostCeilingUSD float64       `koanf:"cost_ceiling_usd"`
	Window         time.Duration `koanf:"window"`
}

// StoreConfig selects the datastore backend.
type StoreConfig struct {
	Driver string `koanf:"driver"` // "sqlite" or "postgres"
	DSN    string `koanf:"dsn"`
}

// Default returns the baseline configuration before env overrides.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			MaxOutputTokens: map[string]int{
				"gpt-4o-mini":               16384,
				"gpt-4o":                    16384,
				"claude-haiku-4-5-20251001": 8192,
				"claude-sonnet-4-20250514":  8192,
				"gemini-2.0-flash":          8192,
			},
			DefaultMaxOutputTokens: 4096,
		},
		Pipeline: PipelineConfig{
			AttemptsPerVariant: 2,
			BackoffBase:        240 * time.Millisecond,
			BackoffMax:         2 * time.Second,
			BackoffMultiplier:  1.75,
			Temperature:        0.7,
			TemperatureMin:     0.0,
			TemperatureMax:     1.0,
			MaxTokens:          2048,
			VerifyAttempts:     2,
			VerifyTemperature:  0.1,
			VerifyMaxTokens:    512,
		},
		Compression: CompressionConfig{
			Enabled:        true,
			ThresholdBytes: 2000,
			TargetRatio:    0.35,
			MaxTokens:      384,
			Temperature:    0.3,
			CacheTTL:       15 * time.Minute,
			CacheSize:      256,
		},
		Batch: BatchConfig{
			MinValidFraction:    0.5,
			TokenDiscount:       0.85,
			BaseTokensPerLesson: 900,
			Temperature:         0.8,
		},
		Paths: PathsConfig{
			Staleness:  4 * time.Minute,
			RetryAfter: 15 * time.Second,
			MaxTokens:  4096,
		},
		Usage: UsageConfig{
			CostCeilingUSD: 0,
			Window:         24 * time.Hour,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    "lessonforge.db",
		},
		LogMode: "dev",
	}
}

// Validate checks cross-field constraints that env overrides could break.
func (c Config) Validate() error {
	if c.Pipeline.AttemptsPerVariant < 1 {
		return fmt.Errorf("pipeline.attempts_per_variant must be >= 1")
	}
	if c.Pipeline.BackoffMultiplier < 1 {
		return fmt.Errorf("pipeline.backoff_multiplier must be >= 1")
	}
	if c.Pipeline.Temperature < c.Pipeline.TemperatureMin || c.Pipeline.Temperature > c.Pipeline.TemperatureMax {
		return fmt.Errorf("pipeline.temperature %.2f outside [%.2f, %.2f]",
			c.Pipeline.Temperature, c.Pipeline.TemperatureMin, c.Pipeline.TemperatureMax)
	}
	if c.Batch.MinValidFraction <= 0 || c.Batch.MinValidFraction > 1 {
		return fmt.Errorf("batch.min_valid_fraction must be in (0, 1]")
	}
	if c.Paths.Staleness <= 0 {
		return fmt.Errorf("paths.staleness must be positive")
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("store.driver must be \"sqlite\" or \"postgres\", got %q", c.Store.Driver)
	}
	return nil
}

// ModelCeiling returns the hard output-token ceiling for a model.
func (c LLMConfig) ModelCeiling(model string) int {
	if n, ok := c.MaxOutputTokens[model]; ok {
		return n
	}
	return c.DefaultMaxOutputTokens
}

// envPrefix is stripped from environment variables before mapping to
// koanf paths: LESSONFORGE_PIPELINE_BACKOFF_BASE -> pipeline.backoff_base.
const envPrefix = "LESSONFORGE_"

func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	// Only the first underscore separates the section from the field;
	// field names themselves contain underscores.
	parts := strings.SplitN(key, "_", 2)
	return strings.Join(parts, ".")
}
