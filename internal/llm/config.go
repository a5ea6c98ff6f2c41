// Package llm provides model configuration and client abstractions for the extraction providers.
package llm

import "time"

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: classification, short text extraction
	TierLite ModelTier = "lite"
	// TierStandard is for structured extraction from captions and descriptions
	TierStandard ModelTier = "standard"
	// TierVision is for reading posters
	TierVision ModelTier = "vision"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
	// ProviderOpenAI is any OpenAI-compatible chat completions endpoint
	ProviderOpenAI Provider = "openai"
)

// DefaultOpenAIBaseURL is used when an OpenAI config has no base URL.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// Config holds the model configuration for one provider
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
	// BaseURL is only used by OpenAI-compatible providers.
	BaseURL string
	Timeout time.Duration
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierVision:   "gemini-2.5-flash",
		},
		Timeout: 60 * time.Second,
	}
}

// DefaultOpenAIConfig returns the default OpenAI-compatible configuration
func DefaultOpenAIConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		Models: map[ModelTier]string{
			TierLite:     "gpt-4o-mini",
			TierStandard: "gpt-4o-mini",
			TierVision:   "gpt-4o",
		},
		BaseURL: DefaultOpenAIBaseURL,
		Timeout: 60 * time.Second,
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := &Config{
		Provider: c.Provider,
		Models:   make(map[ModelTier]string, len(c.Models)+1),
		BaseURL:  c.BaseURL,
		Timeout:  c.Timeout,
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return newConfig
}
