package flow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxSteps bounds the number of stage executions in one run.
const DefaultMaxSteps = 1000

type config struct {
	hooks    Hooks
	logger   *slog.Logger
	maxSteps int
	runID    string
}

func defaultConfig() config {
	return config{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxSteps: DefaultMaxSteps,
	}
}

// Option configures a Flow.
type Option func(*config)

// WithHooks registers observability hooks.
func WithHooks(hooks Hooks) Option {
	return func(c *config) {
		c.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the flow.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxSteps sets the step limit guarding against cycles that never terminate.
func WithMaxSteps(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

// WithRunID fixes the run identifier reported in events. By default every Run gets a new UUID.
func WithRunID(id string) Option {
	return func(c *config) {
		c.runID = id
	}
}

// Report summarises a finished run.
type Report struct {
	RunID string

	// Path lists the stages in execution order.
	Path []StageID

	// Outcome is the last outcome returned, the one with no matching edge.
	Outcome Outcome
}

// Steps returns the number of stage executions.
func (r *Report) Steps() int {
	return len(r.Path)
}

// Last returns the final stage of the path.
func (r *Report) Last() StageID {
	if len(r.Path) == 0 {
		return ""
	}
	return r.Path[len(r.Path)-1]
}

// Flow is a compiled, validated stage graph. It holds no per-run state and may be run
// repeatedly, though never concurrently over the same shared context.
type Flow[S any] struct {
	start  StageID
	stages map[StageID]Runnable[S]
	edges  map[edgeKey]StageID
	cfg    config
}

// Start returns the start stage.
func (f *Flow[S]) Start() StageID {
	return f.start
}

// Next resolves the edge for (from, outcome).
func (f *Flow[S]) Next(from StageID, outcome Outcome) (StageID, bool) {
	to, ok := f.edges[edgeKey{from: from, outcome: outcome}]
	return to, ok
}

// Run drives the graph from the start stage over shared until an outcome has no edge.
// A stage fault aborts the run and is returned as a *StageError; the partial report is
// returned alongside it.
func (f *Flow[S]) Run(ctx context.Context, shared *S) (*Report, error) {
	runID := f.cfg.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := f.cfg.logger.With("run_id", runID)
	report := &Report{RunID: runID}

	current := f.start
	for {
		if err := ctx.Err(); err != nil {
			logger.Info("flow cancelled", "next_stage", current, "error", err)
			return report, fmt.Errorf("flow cancelled before %s: %w", current, err)
		}
		if len(report.Path) >= f.cfg.maxSteps {
			return report, fmt.Errorf("%w: %d", ErrMaxSteps, f.cfg.maxSteps)
		}

		stage := f.stages[current]
		report.Path = append(report.Path, current)

		f.cfg.hooks.enter(ctx, &StageEvent{Timestamp: time.Now(), RunID: runID, Stage: current})
		logger.Debug("stage enter", "stage", current)

		started := time.Now()
		outcome, attempts, err := stage.run(ctx, shared, logger)

		f.cfg.hooks.leave(ctx, &StageEvent{
			Timestamp: time.Now(),
			RunID:     runID,
			Stage:     current,
			Outcome:   outcome,
			Attempts:  attempts,
			Duration:  time.Since(started),
			Err:       err,
		})

		if err != nil {
			logger.Error("stage failed", "stage", current, "error", err)
			return report, err
		}
		report.Outcome = outcome

		next, ok := f.Next(current, outcome)
		if !ok {
			logger.Info("flow finished", "stage", current, "outcome", outcome, "steps", len(report.Path))
			return report, nil
		}
		logger.Debug("transition", "from", current, "outcome", outcome, "to", next)
		current = next
	}
}
