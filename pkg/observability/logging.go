package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/toolflow/pkg/flow"
)

// LogHooks returns lifecycle hooks that log every stage transition at debug
// level and aborts at error level.
func LogHooks(logger *slog.Logger) flow.Hooks {
	return flow.Hooks{
		OnStageEnter: func(ctx context.Context, e *flow.StageEvent) {
			logger.DebugContext(ctx, "stage_enter", "run_id", e.RunID, "stage", e.Stage)
		},
		OnStageLeave: func(ctx context.Context, e *flow.StageEvent) {
			if e.Err != nil {
				logger.ErrorContext(ctx, "stage_failed",
					"run_id", e.RunID,
					"stage", e.Stage,
					"attempts", e.Attempts,
					"error", e.Err,
				)
				return
			}
			logger.DebugContext(ctx, "stage_leave",
				"run_id", e.RunID,
				"stage", e.Stage,
				"outcome", e.Outcome,
				"attempts", e.Attempts,
				"duration", e.Duration,
			)
		},
	}
}
