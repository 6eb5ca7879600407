package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIBackend calls the chat completions API, or any server that speaks it.
type OpenAIBackend struct {
	client openai.Client
	model  string
}

// NewOpenAIBackend creates a chat backend for model. baseURL may be empty for the public API.
func NewOpenAIBackend(apiKey, baseURL, model string, timeout time.Duration) *OpenAIBackend {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	return &OpenAIBackend{client: openai.NewClient(opts...), model: model}
}

// Complete sends prompt as a single user message.
func (o *OpenAIBackend) Complete(ctx context.Context, prompt string, temperature float64) (Result, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return RawResult{Value: resp.RawJSON()}, nil
	}
	return TextResult{Text: resp.Choices[0].Message.Content}, nil
}
