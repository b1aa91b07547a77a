package flow

import (
	"context"
	"time"
)

// StageEvent describes the entry into or exit from a stage.
type StageEvent struct {
	Timestamp time.Time
	RunID     string
	Stage     StageID

	// Set on leave only.
	Outcome  Outcome
	Attempts int
	Duration time.Duration
	Err      error
}

// Hooks defines callbacks for engine observability.
type Hooks struct {
	OnStageEnter func(context.Context, *StageEvent)
	OnStageLeave func(context.Context, *StageEvent)
}

// ChainHooks combines several hook sets. Callbacks fire in argument order.
func ChainHooks(all ...Hooks) Hooks {
	return Hooks{
		OnStageEnter: func(ctx context.Context, e *StageEvent) {
			for _, h := range all {
				if h.OnStageEnter != nil {
					h.OnStageEnter(ctx, e)
				}
			}
		},
		OnStageLeave: func(ctx context.Context, e *StageEvent) {
			for _, h := range all {
				if h.OnStageLeave != nil {
					h.OnStageLeave(ctx, e)
				}
			}
		},
	}
}

func (h Hooks) enter(ctx context.Context, e *StageEvent) {
	if h.OnStageEnter != nil {
		h.OnStageEnter(ctx, e)
	}
}

func (h Hooks) leave(ctx context.Context, e *StageEvent) {
	if h.OnStageLeave != nil {
		h.OnStageLeave(ctx, e)
	}
}
