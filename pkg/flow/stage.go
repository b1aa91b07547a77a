package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// StageID identifies a stage within a flow.
type StageID string

// Outcome is the label returned by Finalize. It selects the next stage.
type Outcome string

// Phase names one of the three stage phases.
type Phase string

const (
	PhasePrepare  Phase = "prepare"
	PhaseExecute  Phase = "execute"
	PhaseFinalize Phase = "finalize"
)

// Stage is a unit of work over a shared context S.
// P is the prepared input, R the execution result.
type Stage[S, P, R any] interface {
	// ID returns the identifier used in the edge table.
	ID() StageID

	// Outcomes returns the closed set of outcomes Finalize may return.
	Outcomes() []Outcome

	Prepare(ctx context.Context, shared *S) (P, error)
	Execute(ctx context.Context, prep P) (R, error)
	Finalize(ctx context.Context, shared *S, prep P, res R) (Outcome, error)
}

// Runnable is a stage with its input and result types erased, ready to be added to a Builder.
// Use Node to obtain one.
type Runnable[S any] interface {
	ID() StageID
	Outcomes() []Outcome
	run(ctx context.Context, shared *S, logger *slog.Logger) (Outcome, int, error)
}

// RetryPolicy bounds re-execution of the Execute phase.
type RetryPolicy struct {
	// MaxAttempts is the total number of Execute calls (values below 1 mean 1).
	MaxAttempts int

	// Wait is the pause between attempts.
	Wait time.Duration

	// RetryIf decides whether an error is transient. Nil retries every error.
	// Context cancellation is never retried.
	RetryIf func(error) bool
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if p.RetryIf != nil {
		return p.RetryIf(err)
	}
	return true
}

// NodeOption configures a Node.
type NodeOption func(*RetryPolicy)

// WithRetry sets the maximum number of Execute attempts and the wait between them.
func WithRetry(maxAttempts int, wait time.Duration) NodeOption {
	return func(p *RetryPolicy) {
		p.MaxAttempts = maxAttempts
		p.Wait = wait
	}
}

// WithRetryIf restricts retries to errors accepted by pred.
func WithRetryIf(pred func(error) bool) NodeOption {
	return func(p *RetryPolicy) {
		p.RetryIf = pred
	}
}

type node[S, P, R any] struct {
	stage Stage[S, P, R]
	retry RetryPolicy
}

// Node wraps a typed stage into a Runnable.
func Node[S, P, R any](stage Stage[S, P, R], opts ...NodeOption) Runnable[S] {
	n := &node[S, P, R]{stage: stage}
	for _, opt := range opts {
		opt(&n.retry)
	}
	return n
}

func (n *node[S, P, R]) ID() StageID         { return n.stage.ID() }
func (n *node[S, P, R]) Outcomes() []Outcome { return n.stage.Outcomes() }

func (n *node[S, P, R]) run(ctx context.Context, shared *S, logger *slog.Logger) (Outcome, int, error) {
	id := n.stage.ID()

	prep, err := n.stage.Prepare(ctx, shared)
	if err != nil {
		return "", 0, &StageError{Stage: id, Phase: PhasePrepare, Err: err}
	}

	res, attempts, err := n.execute(ctx, prep, logger)
	if err != nil {
		return "", attempts, &StageError{Stage: id, Phase: PhaseExecute, Attempts: attempts, Err: err}
	}

	outcome, err := n.stage.Finalize(ctx, shared, prep, res)
	if err != nil {
		return "", attempts, &StageError{Stage: id, Phase: PhaseFinalize, Attempts: attempts, Err: err}
	}
	if !slices.Contains(n.stage.Outcomes(), outcome) {
		return outcome, attempts, &StageError{
			Stage:    id,
			Phase:    PhaseFinalize,
			Attempts: attempts,
			Err:      fmt.Errorf("%w: %q", ErrUndeclaredOutcome, outcome),
		}
	}
	return outcome, attempts, nil
}

func (n *node[S, P, R]) execute(ctx context.Context, prep P, logger *slog.Logger) (R, int, error) {
	limit := n.retry.attempts()
	var (
		res R
		err error
	)
	for attempt := 1; ; attempt++ {
		res, err = n.stage.Execute(ctx, prep)
		if err == nil {
			return res, attempt, nil
		}
		if attempt >= limit || !n.retry.retryable(err) {
			return res, attempt, err
		}

		logger.Warn("stage execute failed, retrying",
			"stage", n.stage.ID(),
			"attempt", attempt,
			"max_attempts", limit,
			"error", err,
		)

		if n.retry.Wait > 0 {
			timer := time.NewTimer(n.retry.Wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return res, attempt, ctx.Err()
			case <-timer.C:
			}
		}
	}
}

// Funcs builds a Stage from plain functions. Nil phase functions are no-ops and a nil
// FinalizeFn returns the first declared outcome.
type Funcs[S, P, R any] struct {
	Name       StageID
	Results    []Outcome
	PrepareFn  func(ctx context.Context, shared *S) (P, error)
	ExecuteFn  func(ctx context.Context, prep P) (R, error)
	FinalizeFn func(ctx context.Context, shared *S, prep P, res R) (Outcome, error)
}

func (f Funcs[S, P, R]) ID() StageID         { return f.Name }
func (f Funcs[S, P, R]) Outcomes() []Outcome { return f.Results }

func (f Funcs[S, P, R]) Prepare(ctx context.Context, shared *S) (P, error) {
	if f.PrepareFn == nil {
		var zero P
		return zero, nil
	}
	return f.PrepareFn(ctx, shared)
}

func (f Funcs[S, P, R]) Execute(ctx context.Context, prep P) (R, error) {
	if f.ExecuteFn == nil {
		var zero R
		return zero, nil
	}
	return f.ExecuteFn(ctx, prep)
}

func (f Funcs[S, P, R]) Finalize(ctx context.Context, shared *S, prep P, res R) (Outcome, error) {
	if f.FinalizeFn == nil {
		if len(f.Results) == 0 {
			return "", nil
		}
		return f.Results[0], nil
	}
	return f.FinalizeFn(ctx, shared, prep, res)
}
