package toolflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/toolflow/pkg/agent"
	"github.com/aretw0/toolflow/pkg/domain"
	"github.com/aretw0/toolflow/pkg/flow"
	"github.com/aretw0/toolflow/pkg/ports"
)

// Agent is the high-level entry point of the toolflow library.
// It assembles a fresh stage graph and toolbox per run and guarantees that every
// tool server it starts is stopped before the run returns.
type Agent struct {
	completer ports.Completer
	connector ports.Connector
	answers   ports.AnswerSink
	reports   ports.ErrorSink
	servers   []domain.LaunchSpec
	hooks     flow.Hooks
	logger    *slog.Logger
	attempts  int
	wait      time.Duration
	maxSteps  int
}

// Option defines a functional option for configuring the Agent.
type Option func(*Agent)

// WithCompleter sets the language model used to pick tools and write answers. Required.
func WithCompleter(c ports.Completer) Option {
	return func(a *Agent) {
		a.completer = c
	}
}

// WithConnector sets how tool servers are started. Required.
func WithConnector(c ports.Connector) Option {
	return func(a *Agent) {
		a.connector = c
	}
}

// WithAnswerSink sets where final answers are persisted.
func WithAnswerSink(s ports.AnswerSink) Option {
	return func(a *Agent) {
		a.answers = s
	}
}

// WithErrorSink sets where tool failures are reported. Without one they are logged.
func WithErrorSink(s ports.ErrorSink) Option {
	return func(a *Agent) {
		a.reports = s
	}
}

// WithServers sets the tool servers to start on every run, in catalog order.
func WithServers(specs ...domain.LaunchSpec) Option {
	return func(a *Agent) {
		a.servers = append(a.servers, specs...)
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks flow.Hooks) Option {
	return func(a *Agent) {
		a.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the agent.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithRetry bounds retries of model calls: attempts in total, wait in between.
func WithRetry(attempts int, wait time.Duration) Option {
	return func(a *Agent) {
		a.attempts = attempts
		a.wait = wait
	}
}

// WithMaxSteps overrides the stage execution limit of a run.
func WithMaxSteps(n int) Option {
	return func(a *Agent) {
		a.maxSteps = n
	}
}

// Result is the outcome of one run.
type Result struct {
	RunID  string
	Report *flow.Report
	Shared *agent.Shared
}

// Answered reports whether the run produced an answer.
func (r *Result) Answered() bool {
	return r != nil && r.Shared != nil && r.Shared.Answered()
}

// DecodeFailed reports whether the run stopped because the model's decision could not be read.
func (r *Result) DecodeFailed() bool {
	return r != nil && r.Report != nil && r.Report.Outcome == agent.OutcomeDecodeFailed
}

// New initializes an Agent.
func New(opts ...Option) (*Agent, error) {
	a := &Agent{attempts: 1}
	for _, opt := range opts {
		opt(a)
	}

	if a.completer == nil {
		return nil, errors.New("toolflow: a completer is required (use WithCompleter)")
	}
	if a.connector == nil {
		return nil, errors.New("toolflow: a connector is required (use WithConnector)")
	}

	// Ensure logger is initialized so stages never log to nil.
	if a.logger == nil {
		a.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return a, nil
}

// Servers returns the configured launch specs.
func (a *Agent) Servers() []domain.LaunchSpec {
	return append([]domain.LaunchSpec(nil), a.servers...)
}

// Run answers question with the configured tool servers. Stage faults are returned
// as *flow.StageError together with the partial result. Every started server is
// stopped before Run returns, including on cancellation.
func (a *Agent) Run(ctx context.Context, question string) (result *Result, err error) {
	toolbox := agent.NewToolbox(a.connector, a.logger)
	defer func() {
		if cerr := toolbox.Close(); cerr != nil {
			a.logger.Warn("failed to stop tool servers", "error", cerr)
		}
	}()

	f, err := agent.NewFlow(agent.Deps{
		Toolbox:   toolbox,
		Completer: a.completer,
		Answers:   a.answers,
		Errors:    a.reports,
		Logger:    a.logger,
		Attempts:  a.attempts,
		Wait:      a.wait,
	}, a.flowOptions()...)
	if err != nil {
		return nil, fmt.Errorf("build flow: %w", err)
	}

	shared := agent.NewShared(question, a.Servers())
	report, err := f.Run(ctx, shared)
	result = &Result{RunID: report.RunID, Report: report, Shared: shared}
	if err != nil {
		return result, err
	}
	if result.DecodeFailed() {
		a.logger.Warn("run ended without an answer", "run_id", report.RunID, "error", shared.DecodeErr)
	}
	return result, nil
}

// Discover starts the configured servers, lists their tools and stops them again.
func (a *Agent) Discover(ctx context.Context) (domain.ToolCatalog, error) {
	toolbox := agent.NewToolbox(a.connector, a.logger)
	defer toolbox.Close()

	f, err := agent.NewDiscoverFlow(toolbox, a.flowOptions()...)
	if err != nil {
		return nil, fmt.Errorf("build flow: %w", err)
	}

	shared := agent.NewShared("", a.Servers())
	if _, err := f.Run(ctx, shared); err != nil {
		return nil, err
	}
	return shared.Catalog, nil
}

func (a *Agent) flowOptions() []flow.Option {
	return []flow.Option{
		flow.WithLogger(a.logger),
		flow.WithHooks(a.hooks),
		flow.WithMaxSteps(a.maxSteps),
	}
}
