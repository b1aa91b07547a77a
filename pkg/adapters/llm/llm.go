// Package llm holds what the text-completion adapters share. Each provider lives in
// its own subpackage and implements ports.Completer.
package llm

import (
	"errors"
	"os"
	"strings"
)

var (
	// ErrMissingAPIKey is returned when no API key is configured for a provider.
	ErrMissingAPIKey = errors.New("API key not set")

	// ErrEmptyCompletion is returned when a provider answers without any text.
	ErrEmptyCompletion = errors.New("empty completion")
)

// KeyFromEnv returns the first non-empty value among the named environment variables.
func KeyFromEnv(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// Settings are the options every provider accepts.
type Settings struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
}

// Option configures a provider.
type Option func(*Settings)

// WithAPIKey sets the key explicitly instead of reading it from the environment.
func WithAPIKey(key string) Option {
	return func(s *Settings) {
		s.APIKey = key
	}
}

// WithModel selects the model. Each provider has its own default.
func WithModel(model string) Option {
	return func(s *Settings) {
		s.Model = model
	}
}

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(url string) Option {
	return func(s *Settings) {
		s.BaseURL = url
	}
}

// WithMaxTokens bounds the length of a completion.
func WithMaxTokens(n int) Option {
	return func(s *Settings) {
		s.MaxTokens = n
	}
}

// Apply builds Settings from opts.
func Apply(opts ...Option) Settings {
	var s Settings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
