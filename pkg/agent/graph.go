package agent

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/toolflow/pkg/domain"
	"github.com/aretw0/toolflow/pkg/flow"
	"github.com/aretw0/toolflow/pkg/ports"
)

// Deps are the collaborators the stages need.
type Deps struct {
	Toolbox   *Toolbox
	Completer ports.Completer
	Answers   ports.AnswerSink
	Errors    ports.ErrorSink
	Logger    *slog.Logger

	// Attempts and Wait bound retries of the model calls.
	Attempts int
	Wait     time.Duration
}

// Retryable reports whether a failed model call is worth repeating. Session faults
// and context errors never are.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !domain.IsTransport(err) && !domain.IsProtocol(err)
}

// NewFlow wires the five stages into the run graph.
func NewFlow(deps Deps, opts ...flow.Option) (*flow.Flow[Shared], error) {
	if deps.Toolbox == nil {
		return nil, errors.New("agent: toolbox is required")
	}
	if deps.Completer == nil {
		return nil, errors.New("agent: completer is required")
	}

	retry := []flow.NodeOption{
		flow.WithRetry(deps.Attempts, deps.Wait),
		flow.WithRetryIf(Retryable),
	}

	b := flow.New[Shared]()
	b.Add(flow.Node[Shared](Discover{Toolbox: deps.Toolbox})).
		On(OutcomeDecide, StageDecide)
	b.Add(flow.Node[Shared](Decide{Completer: deps.Completer, Logger: deps.Logger}, retry...)).
		On(OutcomeExecute, StageExecute)
	b.Add(flow.Node[Shared](Execute{Toolbox: deps.Toolbox, Logger: deps.Logger})).
		On(OutcomeWriteAnswer, StageWriteAnswer).
		On(OutcomeHandleError, StageHandleError)
	b.Add(flow.Node[Shared](WriteAnswer{Completer: deps.Completer, Sink: deps.Answers}, retry...))
	b.Add(flow.Node[Shared](HandleError{Sink: deps.Errors, Logger: deps.Logger}))

	return b.Build(opts...)
}

// NewDiscoverFlow builds a single-stage graph that only fills the catalog.
func NewDiscoverFlow(toolbox *Toolbox, opts ...flow.Option) (*flow.Flow[Shared], error) {
	if toolbox == nil {
		return nil, errors.New("agent: toolbox is required")
	}
	b := flow.New[Shared]()
	b.Add(flow.Node[Shared](Discover{Toolbox: toolbox}))
	return b.Build(opts...)
}
