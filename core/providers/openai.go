package providers

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAITransport implements Transport over OpenAI's chat models.
type OpenAITransport struct {
	client *openai.Client
	config OpenAIConfig
}

// NewOpenAITransport creates an OpenAI-backed arbitration transport.
func NewOpenAITransport(config OpenAIConfig) (*OpenAITransport, error) {
	if config.Model == "" {
		config.Model = DefaultOpenAIConfig().Model
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultOpenAIConfig().MaxTokens
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
	if config.Organization != "" {
		opts = append(opts, option.WithHeader("OpenAI-Organization", config.Organization))
	}

	client := openai.NewClient(opts...)

	return &OpenAITransport{
		client: &client,
		config: config,
	}, nil
}

// Name returns the provider identifier.
func (t *OpenAITransport) Name() string {
	return string(ProviderTypeOpenAI)
}

// Request sends the arbitration prompt and returns the model's text.
func (t *OpenAITransport) Request(ctx context.Context, prompt string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, t.config.requestTimeout())
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(t.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(int64(t.config.MaxTokens)),
	}
	if t.config.Temperature > 0 {
		params.Temperature = openai.Float(t.config.Temperature)
	}

	resp, err := t.client.Chat.Completions.New(reqCtx, params)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai request: %w", ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}
