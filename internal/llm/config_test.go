package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultGeminiConfig(t *testing.T) {
	config := DefaultGeminiConfig()

	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, "gemini-2.5-flash-lite", config.GetModel(TierLite))
	assert.Equal(t, "gemini-2.5-flash", config.GetModel(TierStandard))
	assert.Equal(t, "gemini-2.5-flash", config.GetModel(TierVision))
}

func TestDefaultOpenAIConfig(t *testing.T) {
	config := DefaultOpenAIConfig()

	assert.Equal(t, ProviderOpenAI, config.Provider)
	assert.Equal(t, DefaultOpenAIBaseURL, config.BaseURL)
	assert.Equal(t, "gpt-4o", config.GetModel(TierVision))
}

func TestGetModel_Fallback(t *testing.T) {
	config := &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite: "fallback-model",
		},
	}

	// Unknown tier should fallback to TierStandard, then TierLite
	assert.Equal(t, "fallback-model", config.GetModel(TierVision))
}

func TestGetModel_EmptyConfig(t *testing.T) {
	config := &Config{Provider: ProviderGemini, Models: map[ModelTier]string{}}

	assert.Equal(t, "", config.GetModel(TierVision))
}

func TestWithModel(t *testing.T) {
	config := DefaultOpenAIConfig()
	newConfig := config.WithModel(TierVision, "llava-13b")

	// Original should be unchanged
	assert.Equal(t, "gpt-4o", config.GetModel(TierVision))
	assert.Equal(t, "llava-13b", newConfig.GetModel(TierVision))

	// Other fields should be copied
	assert.Equal(t, "gpt-4o-mini", newConfig.GetModel(TierLite))
	assert.Equal(t, config.BaseURL, newConfig.BaseURL)
	assert.Equal(t, config.Timeout, newConfig.Timeout)
}
