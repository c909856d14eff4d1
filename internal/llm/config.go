package llm

import "fmt"

// Config holds provider credentials and endpoint overrides.
// Built once at process start from the environment; the Registry is the
// only consumer.
type Config struct {
	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // Optional. Override for compatible APIs.
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string
	BaseURL string // Default: "https://openrouter.ai/api/v1"
}

// Configured reports whether the named provider has credentials.
func (c Config) Configured(provider string) bool {
	switch provider {
	case ProviderAnthropic:
		return c.Anthropic.APIKey != ""
	case ProviderOpenAI:
		return c.OpenAI.APIKey != ""
	case ProviderGemini:
		return c.Gemini.APIKey != ""
	case ProviderOpenRouter:
		return c.OpenRouter.APIKey != ""
	default:
		return false
	}
}

// Validate checks that at least one provider is usable.
func (c Config) Validate() error {
	for _, p := range []string{ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderOpenRouter} {
		if c.Configured(p) {
			return nil
		}
	}
	return fmt.Errorf("no LLM provider configured: set at least one API key")
}
