package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/toolflow/internal/config"
	"github.com/aretw0/toolflow/pkg/adapters/console"
	"github.com/aretw0/toolflow/pkg/adapters/file"
	"github.com/aretw0/toolflow/pkg/adapters/llm"
	"github.com/aretw0/toolflow/pkg/adapters/llm/claude"
	"github.com/aretw0/toolflow/pkg/adapters/llm/gemini"
	"github.com/aretw0/toolflow/pkg/adapters/llm/openai"
	"github.com/aretw0/toolflow/pkg/adapters/mcp"
	"github.com/aretw0/toolflow/pkg/adapters/redis"
	"github.com/aretw0/toolflow/pkg/ports"
)

// NewCompleter builds the language model client named by cfg.Provider. The
// returned close function is never nil.
func NewCompleter(ctx context.Context, cfg config.Config) (ports.Completer, func() error, error) {
	var opts []llm.Option
	if cfg.Model != "" {
		opts = append(opts, llm.WithModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, llm.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(cfg.MaxTokens))
	}
	noop := func() error { return nil }

	switch strings.ToLower(cfg.Provider) {
	case "gemini":
		c, err := gemini.New(ctx, opts...)
		if err != nil {
			return nil, noop, err
		}
		return c, c.Close, nil
	case "claude":
		c, err := claude.New(opts...)
		if err != nil {
			return nil, noop, err
		}
		return c, noop, nil
	case "openai":
		c, err := openai.New(opts...)
		if err != nil {
			return nil, noop, err
		}
		return c, noop, nil
	}
	return nil, noop, fmt.Errorf("unknown provider %q", cfg.Provider)
}

// Sinks groups the answer and error sinks of one command invocation.
type Sinks struct {
	Answers ports.AnswerSink
	Errors  ports.ErrorSink
	closers []io.Closer
}

// Close releases sink connections.
func (s *Sinks) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewSinks builds the sinks enabled in cfg. Answers go to every enabled sink in
// the order file, redis, console. Tool errors always go to stderr.
func NewSinks(cfg config.AnswerConfig, stdout, stderr io.Writer) *Sinks {
	var answers ports.MultiSink
	s := &Sinks{Errors: console.NewErrorSink(stderr)}

	if cfg.File != "" {
		answers = append(answers, file.NewSink(cfg.File))
	}
	if cfg.Redis.Addr != "" {
		opts := []redis.Option{redis.WithTTL(cfg.Redis.TTL), redis.WithHistory(cfg.Redis.History)}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		r := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		answers = append(answers, r)
		s.closers = append(s.closers, r)
	}
	if cfg.Console {
		answers = append(answers, console.NewAnswerSink(stdout))
	}
	s.Answers = answers
	return s
}

// NewLauncher builds the MCP connector with the configured timeouts.
func NewLauncher(cfg config.TimeoutConfig, logger *slog.Logger) *mcp.Launcher {
	opts := []mcp.Option{mcp.WithLogger(logger)}
	if cfg.Handshake > 0 {
		opts = append(opts, mcp.WithHandshakeTimeout(cfg.Handshake))
	}
	if cfg.Request > 0 {
		opts = append(opts, mcp.WithRequestTimeout(cfg.Request))
	}
	if cfg.Shutdown > 0 {
		opts = append(opts, mcp.WithShutdownGrace(cfg.Shutdown))
	}
	return mcp.NewLauncher(opts...)
}
