// Package openai implements ports.Completer with the OpenAI chat completions API.
// Any compatible endpoint can be used through llm.WithBaseURL.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/toolflow/pkg/adapters/llm"
	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// Client completes prompts with an OpenAI chat model.
type Client struct {
	client    sdk.Client
	model     string
	maxTokens int
}

// New creates an OpenAI client. Unless llm.WithAPIKey is given, the key is read from
// OPENAI_API_KEY.
func New(opts ...llm.Option) (*Client, error) {
	s := llm.Apply(opts...)
	if s.APIKey == "" {
		s.APIKey = llm.KeyFromEnv("OPENAI_API_KEY")
	}
	if s.APIKey == "" {
		return nil, fmt.Errorf("openai: OPENAI_API_KEY: %w", llm.ErrMissingAPIKey)
	}
	if s.Model == "" {
		s.Model = DefaultModel
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(s.APIKey),
		option.WithMaxRetries(2),
	}
	if s.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(s.BaseURL))
	}

	return &Client{
		client:    sdk.NewClient(reqOpts...),
		model:     s.Model,
		maxTokens: s.MaxTokens,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Complete sends prompt as a single user message and returns the first choice.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	params := sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(c.model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.UserMessage(prompt),
		},
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(int64(c.maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai API call failed: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("openai: %w", llm.ErrEmptyCompletion)
	}
	return resp.Choices[0].Message.Content, nil
}
