package flow

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateEdge is returned by Build when a (stage, outcome) pair has two targets.
	ErrDuplicateEdge = errors.New("duplicate edge")

	// ErrDuplicateStage is returned by Build when two stages share an ID.
	ErrDuplicateStage = errors.New("duplicate stage")

	// ErrUnknownStage is returned by Build when an edge or the start refers to a missing stage.
	ErrUnknownStage = errors.New("unknown stage")

	// ErrUndeclaredOutcome is returned when an outcome is not in the stage's declared set.
	ErrUndeclaredOutcome = errors.New("undeclared outcome")

	// ErrNoStart is returned by Build when the graph has no stages.
	ErrNoStart = errors.New("no start stage")

	// ErrMaxSteps is returned by Run when a run exceeds the configured step limit.
	ErrMaxSteps = errors.New("step limit exceeded")
)

// StageError reports an unrecovered fault in one phase of a stage. It aborts the run.
type StageError struct {
	Stage    StageID
	Phase    Phase
	Attempts int
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %s: %v", e.Stage, e.Phase, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
