// Package gemini implements ports.Completer with Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/toolflow/pkg/adapters/llm"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash"

// Client completes prompts with a Gemini model.
type Client struct {
	client *genai.Client
	model  string
}

// New creates a Gemini client. Unless llm.WithAPIKey is given, the key is read from
// GEMINI_API_KEY or GOOGLE_API_KEY.
func New(ctx context.Context, opts ...llm.Option) (*Client, error) {
	s := llm.Apply(opts...)
	if s.APIKey == "" {
		s.APIKey = llm.KeyFromEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
	}
	if s.APIKey == "" {
		return nil, fmt.Errorf("gemini: GEMINI_API_KEY or GOOGLE_API_KEY: %w", llm.ErrMissingAPIKey)
	}
	if s.Model == "" {
		s.Model = DefaultModel
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(s.APIKey)}
	if s.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(s.BaseURL))
	}

	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: client, model: s.Model}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Complete sends prompt as a single user turn and returns the text of the reply.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.model)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", enhanceError(err)
	}

	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini: %w", llm.ErrEmptyCompletion)
	}
	return text, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	if resp == nil {
		return ""
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		// The first candidate with content is the answer.
		if b.Len() > 0 {
			break
		}
	}
	return b.String()
}

// enhanceError maps common API failures to actionable messages.
func enhanceError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 403:
			return fmt.Errorf("authentication failed with Gemini API, check GEMINI_API_KEY: %w", err)
		case 404:
			return fmt.Errorf("model not found for Gemini provider: %w", err)
		case 429:
			return fmt.Errorf("rate limit exceeded for Gemini API: %w", err)
		default:
			return fmt.Errorf("Gemini API error (%d): %w", apiErr.Code, err)
		}
	}
	return fmt.Errorf("gemini API call failed: %w", err)
}
