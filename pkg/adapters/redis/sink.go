package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the sink.
const DefaultPrefix = "toolflow:"

// Sink implements ports.AnswerSink and ports.ErrorSink on Redis. The latest answer
// is kept under a plain key; every answer and tool error is also appended to a list.
type Sink struct {
	client  *backend.Client
	prefix  string
	ttl     time.Duration
	history int64
}

// Option configures a Sink.
type Option func(*Sink)

// WithTTL sets the expiration of the latest-answer key. Zero keeps it forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Sink) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Sink) {
		s.prefix = prefix
	}
}

// WithHistory caps the answer and error lists to the n most recent entries. Zero keeps all.
func WithHistory(n int) Option {
	return func(s *Sink) {
		s.history = int64(n)
	}
}

// New creates a sink connected to address.
func New(address, password string, db int, opts ...Option) *Sink {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a sink from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Sink {
	s := &Sink{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sink) latestKey() string  { return s.prefix + "answer" }
func (s *Sink) answersKey() string { return s.prefix + "answers" }
func (s *Sink) errorsKey() string  { return s.prefix + "errors" }

// Write stores text as the latest answer and appends it to the history, in one transaction.
func (s *Sink) Write(ctx context.Context, text string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, s.latestKey(), text, s.ttl)
		s.push(ctx, pipe, s.answersKey(), text)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save answer to redis: %w", err)
	}
	return nil
}

// Report appends a tool error to the error list.
func (s *Sink) Report(ctx context.Context, message string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		s.push(ctx, pipe, s.errorsKey(), message)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save tool error to redis: %w", err)
	}
	return nil
}

func (s *Sink) push(ctx context.Context, pipe backend.Pipeliner, key, value string) {
	pipe.RPush(ctx, key, value)
	if s.history > 0 {
		pipe.LTrim(ctx, key, -s.history, -1)
	}
}

// ErrNoAnswer is returned by Latest when no answer is stored.
var ErrNoAnswer = errors.New("no answer stored")

// Latest returns the most recent answer.
func (s *Sink) Latest(ctx context.Context) (string, error) {
	text, err := s.client.Get(ctx, s.latestKey()).Result()
	if err == backend.Nil {
		return "", ErrNoAnswer
	}
	if err != nil {
		return "", fmt.Errorf("failed to read answer from redis: %w", err)
	}
	return text, nil
}

// Answers returns the stored answer history, oldest first.
func (s *Sink) Answers(ctx context.Context) ([]string, error) {
	return s.client.LRange(ctx, s.answersKey(), 0, -1).Result()
}

// Errors returns the stored tool errors, oldest first.
func (s *Sink) Errors(ctx context.Context) ([]string, error) {
	return s.client.LRange(ctx, s.errorsKey(), 0, -1).Result()
}

// Ping checks connectivity.
func (s *Sink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Sink) Close() error {
	return s.client.Close()
}
