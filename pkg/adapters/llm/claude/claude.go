// Package claude implements ports.Completer with Anthropic's Claude API.
package claude

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aretw0/toolflow/pkg/adapters/llm"
)

// Defaults used when the settings leave them empty.
const (
	DefaultModel     = "claude-sonnet-4-20250514"
	DefaultMaxTokens = 4096
)

// Client completes prompts with a Claude model.
type Client struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// New creates a Claude client. Unless llm.WithAPIKey is given, the key is read from
// ANTHROPIC_API_KEY.
func New(opts ...llm.Option) (*Client, error) {
	s := llm.Apply(opts...)
	if s.APIKey == "" {
		s.APIKey = llm.KeyFromEnv("ANTHROPIC_API_KEY")
	}
	if s.APIKey == "" {
		return nil, fmt.Errorf("claude: ANTHROPIC_API_KEY: %w", llm.ErrMissingAPIKey)
	}
	if s.Model == "" {
		s.Model = DefaultModel
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = DefaultMaxTokens
	}

	sdkOpts := []option.RequestOption{
		option.WithAPIKey(s.APIKey),
		option.WithMaxRetries(2),
	}
	if s.BaseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(s.BaseURL))
	}

	return &Client{
		client:    anthropic.NewClient(sdkOpts...),
		model:     s.Model,
		maxTokens: int64(s.MaxTokens),
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Complete sends prompt as a single user message and returns the concatenated text blocks.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	response, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var b strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("claude: %w", llm.ErrEmptyCompletion)
	}
	return b.String(), nil
}
