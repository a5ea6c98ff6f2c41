package llm

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/jonathan/competition-radar/internal/fetch"
)

// Client generates JSON from a text prompt.
type Client interface {
	// GenerateJSON generates JSON content using the specified model tier
	GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error)
	// GetModel returns the underlying provider model for a tier
	GetModel(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// VisionClient generates JSON from a prompt and an image reachable at a URL.
type VisionClient interface {
	Client
	GenerateJSONFromImage(ctx context.Context, prompt, imageURL string, tier ModelTier) (string, error)
}

// NewClient creates a vision-capable client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (VisionClient, error) {
	if config == nil {
		config = DefaultGeminiConfig()
	}

	switch config.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(config, apiKey, nil)
	default:
		return NewGeminiClient(ctx, config, apiKey)
	}
}

// GeminiClient implements VisionClient for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

func (c *GeminiClient) jsonModel(tier ModelTier) (*genai.GenerativeModel, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return nil, fmt.Errorf("no model configured for tier %s", tier)
	}
	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(0.1) // Low temperature for consistent output
	model.ResponseMIMEType = "application/json"
	return model, nil
}

// GenerateJSON generates JSON content using the specified model tier
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	model, err := c.jsonModel(tier)
	if err != nil {
		return "", err
	}

	ctx, cancel := withTimeout(ctx, c.config)
	defer cancel()

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

// GenerateJSONFromImage downloads the image and sends it inline with the prompt.
func (c *GeminiClient) GenerateJSONFromImage(ctx context.Context, prompt, imageURL string, tier ModelTier) (string, error) {
	model, err := c.jsonModel(tier)
	if err != nil {
		return "", err
	}

	ctx, cancel := withTimeout(ctx, c.config)
	defer cancel()

	img, err := fetch.URL(ctx, imageURL, &fetch.Options{Headers: map[string]string{"Accept": "image/*"}})
	if err != nil {
		return "", fmt.Errorf("failed to download image: %w", err)
	}

	resp, err := model.GenerateContent(ctx, genai.ImageData(imageFormat(img.ContentType, imageURL), img.Body), genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

// GetModel returns the model name for a tier
func (c *GeminiClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}

// imageFormat returns the image subtype (jpeg, png, webp) from a content type or URL extension.
func imageFormat(contentType, url string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && strings.HasPrefix(mt, "image/") {
		return strings.TrimPrefix(mt, "image/")
	}
	lower := strings.ToLower(url)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "png"
	case strings.HasSuffix(lower, ".webp"):
		return "webp"
	default:
		return "jpeg"
	}
}

func withTimeout(ctx context.Context, config *Config) (context.Context, context.CancelFunc) {
	if config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, config.Timeout)
}
