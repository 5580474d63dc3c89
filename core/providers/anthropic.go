package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicTransport implements Transport over Anthropic's Claude models.
type AnthropicTransport struct {
	client *anthropic.Client
	config AnthropicConfig
}

// NewAnthropicTransport creates an Anthropic-backed arbitration transport.
func NewAnthropicTransport(config AnthropicConfig) (*AnthropicTransport, error) {
	if config.Model == "" {
		config.Model = DefaultAnthropicConfig().Model
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultAnthropicConfig().MaxTokens
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	client := anthropic.NewClient(opts...)

	return &AnthropicTransport{
		client: &client,
		config: config,
	}, nil
}

// Name returns the provider identifier.
func (t *AnthropicTransport) Name() string {
	return string(ProviderTypeAnthropic)
}

// Request sends the arbitration prompt and returns the model's text.
func (t *AnthropicTransport) Request(ctx context.Context, prompt string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, t.config.requestTimeout())
	defer cancel()

	msg, err := t.client.Messages.New(reqCtx, t.buildParams(prompt))
	if err != nil {
		return "", fmt.Errorf("anthropic request: %w", err)
	}

	text := collectText(msg)
	if text == "" {
		return "", fmt.Errorf("anthropic request: %w", ErrEmptyResponse)
	}
	return text, nil
}

// buildParams constructs Anthropic API parameters for one arbitration.
func (t *AnthropicTransport) buildParams(prompt string) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(t.config.Model),
		MaxTokens: int64(t.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if t.config.Temperature > 0 {
		params.Temperature = anthropic.Float(t.config.Temperature)
	}
	return params
}

// collectText concatenates the text blocks of a response.
func collectText(msg *anthropic.Message) string {
	var sb strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String()
}
