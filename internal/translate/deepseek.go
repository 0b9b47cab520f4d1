package translate

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DeepSeekBackend implements Backend over an OpenAI-compatible chat
// completions API (DeepSeek by default).
type DeepSeekBackend struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewDeepSeekBackend constructs the production translation backend.
func NewDeepSeekBackend(apiKey, baseURL, model string, maxTokens int, temperature float64) (*DeepSeekBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("translation backend requires an API key (set DEEPSEEK_API_KEY)")
	}
	if baseURL == "" {
		baseURL = "https://api.deepseek.com"
	}
	if model == "" {
		model = "deepseek-chat"
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	)
	return &DeepSeekBackend{
		client:      client,
		model:       model,
		maxTokens:   int64(maxTokens),
		temperature: temperature,
	}, nil
}

// Complete submits the prompt as a single user message and returns the raw
// completion text. API failures are wrapped with their HTTP status for retry
// classification.
func (b *DeepSeekBackend) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(b.maxTokens),
		Temperature: openai.Float(b.temperature),
	})
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) {
			return "", &BackendError{Status: apierr.StatusCode, Err: err}
		}
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
