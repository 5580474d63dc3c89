package providers

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GoogleTransport implements Transport over Google's Gemini models.
type GoogleTransport struct {
	client *genai.Client
	config GoogleConfig
}

// NewGoogleTransport creates a Gemini-backed arbitration transport.
func NewGoogleTransport(ctx context.Context, config GoogleConfig) (*GoogleTransport, error) {
	if config.Model == "" {
		config.Model = DefaultGoogleConfig().Model
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultGoogleConfig().MaxTokens
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("google client: %w", err)
	}

	return &GoogleTransport{
		client: client,
		config: config,
	}, nil
}

// Name returns the provider identifier.
func (t *GoogleTransport) Name() string {
	return string(ProviderTypeGoogle)
}

// Request sends the arbitration prompt and returns the model's text.
func (t *GoogleTransport) Request(ctx context.Context, prompt string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, t.config.requestTimeout())
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(t.config.MaxTokens),
	}
	if t.config.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(t.config.Temperature))
	}

	result, err := t.client.Models.GenerateContent(reqCtx, t.config.Model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("google request: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("google request: %w", ErrEmptyResponse)
	}
	return text, nil
}
