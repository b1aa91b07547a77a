package flow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/toolflow/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledger struct {
	Visited []string
	Value   int
}

// step records its visit and returns a fixed outcome.
func step(id string, outcomes ...flow.Outcome) flow.Runnable[ledger] {
	return flow.Node[ledger](flow.Funcs[ledger, string, string]{
		Name:    flow.StageID(id),
		Results: outcomes,
		PrepareFn: func(_ context.Context, s *ledger) (string, error) {
			return id, nil
		},
		ExecuteFn: func(_ context.Context, prep string) (string, error) {
			return prep + "!", nil
		},
		FinalizeFn: func(_ context.Context, s *ledger, _ string, res string) (flow.Outcome, error) {
			s.Visited = append(s.Visited, res)
			if len(outcomes) == 0 {
				return "", nil
			}
			return outcomes[0], nil
		},
	})
}

func TestFlow_LinearRun(t *testing.T) {
	b := flow.New[ledger]()
	b.Add(step("a", "next")).On("next", "b")
	b.Add(step("b", "next")).On("next", "c")
	b.Add(step("c", "done"))

	f, err := b.Build()
	require.NoError(t, err)

	shared := &ledger{}
	report, err := f.Run(context.Background(), shared)
	require.NoError(t, err)

	assert.Equal(t, []string{"a!", "b!", "c!"}, shared.Visited)
	assert.Equal(t, []flow.StageID{"a", "b", "c"}, report.Path)
	assert.Equal(t, flow.Outcome("done"), report.Outcome)
	assert.Equal(t, flow.StageID("c"), report.Last())
	assert.NotEmpty(t, report.RunID)
}

func TestFlow_BranchSelectsByOutcome(t *testing.T) {
	decider := flow.Node[ledger](flow.Funcs[ledger, int, int]{
		Name:    "decide",
		Results: []flow.Outcome{"even", "odd"},
		PrepareFn: func(_ context.Context, s *ledger) (int, error) {
			return s.Value, nil
		},
		FinalizeFn: func(_ context.Context, _ *ledger, prep int, _ int) (flow.Outcome, error) {
			if prep%2 == 0 {
				return "even", nil
			}
			return "odd", nil
		},
	})

	b := flow.New[ledger]()
	b.Add(decider).On("even", "left").On("odd", "right")
	b.Add(step("left", "done"))
	b.Add(step("right", "done"))
	f, err := b.Build()
	require.NoError(t, err)

	shared := &ledger{Value: 3}
	report, err := f.Run(context.Background(), shared)
	require.NoError(t, err)
	assert.Equal(t, []flow.StageID{"decide", "right"}, report.Path)
	assert.Equal(t, []string{"right!"}, shared.Visited)
}

func TestBuilder_RejectsDuplicateEdge(t *testing.T) {
	b := flow.New[ledger]()
	b.Add(step("a", "next")).On("next", "b").On("next", "c")
	b.Add(step("b"))
	b.Add(step("c"))

	f, err := b.Build()
	assert.Nil(t, f)
	assert.ErrorIs(t, err, flow.ErrDuplicateEdge)
}

func TestBuilder_ValidationErrors(t *testing.T) {
	t.Run("Unknown Target", func(t *testing.T) {
		b := flow.New[ledger]()
		b.Add(step("a", "next")).On("next", "ghost")
		_, err := b.Build()
		assert.ErrorIs(t, err, flow.ErrUnknownStage)
	})

	t.Run("Undeclared Outcome", func(t *testing.T) {
		b := flow.New[ledger]()
		b.Add(step("a", "next")).On("other", "b")
		b.Add(step("b"))
		_, err := b.Build()
		assert.ErrorIs(t, err, flow.ErrUndeclaredOutcome)
	})

	t.Run("Duplicate Stage", func(t *testing.T) {
		b := flow.New[ledger]()
		b.Add(step("a"))
		b.Add(step("a"))
		_, err := b.Build()
		assert.ErrorIs(t, err, flow.ErrDuplicateStage)
	})

	t.Run("Empty Graph", func(t *testing.T) {
		_, err := flow.New[ledger]().Build()
		assert.ErrorIs(t, err, flow.ErrNoStart)
	})

	t.Run("Unknown Start", func(t *testing.T) {
		b := flow.New[ledger]()
		b.Add(step("a"))
		b.Start("z")
		_, err := b.Build()
		assert.ErrorIs(t, err, flow.ErrUnknownStage)
	})

	t.Run("Errors Are Joined", func(t *testing.T) {
		b := flow.New[ledger]()
		b.Add(step("a", "next")).On("next", "ghost").On("next", "phantom").On("nope", "a")
		_, err := b.Build()
		assert.ErrorIs(t, err, flow.ErrUnknownStage)
		assert.ErrorIs(t, err, flow.ErrDuplicateEdge)
		assert.ErrorIs(t, err, flow.ErrUndeclaredOutcome)
	})
}

func TestFlow_ExplicitStart(t *testing.T) {
	b := flow.New[ledger]()
	b.Add(step("a", "next")).On("next", "b")
	b.Add(step("b", "done"))
	f, err := b.Start("b").Build()
	require.NoError(t, err)
	assert.Equal(t, flow.StageID("b"), f.Start())

	report, err := f.Run(context.Background(), &ledger{})
	require.NoError(t, err)
	assert.Equal(t, []flow.StageID{"b"}, report.Path)
}

func TestFlow_ExecuteFaultAborts(t *testing.T) {
	boom := errors.New("subprocess died")
	failing := flow.Node[ledger](flow.Funcs[ledger, struct{}, struct{}]{
		Name:    "fail",
		Results: []flow.Outcome{"next"},
		ExecuteFn: func(context.Context, struct{}) (struct{}, error) {
			return struct{}{}, boom
		},
	})

	b := flow.New[ledger]()
	b.Add(failing).On("next", "after")
	b.Add(step("after"))
	f, err := b.Build()
	require.NoError(t, err)

	shared := &ledger{}
	report, err := f.Run(context.Background(), shared)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var stageErr *flow.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, flow.StageID("fail"), stageErr.Stage)
	assert.Equal(t, flow.PhaseExecute, stageErr.Phase)
	assert.Equal(t, []flow.StageID{"fail"}, report.Path)
	assert.Empty(t, shared.Visited, "no later stage may run")
}

func TestFlow_PrepareAndFinalizeFaults(t *testing.T) {
	boom := errors.New("missing key")

	b := flow.New[ledger]()
	b.Add(flow.Node[ledger](flow.Funcs[ledger, int, int]{
		Name:    "p",
		Results: []flow.Outcome{"done"},
		PrepareFn: func(context.Context, *ledger) (int, error) {
			return 0, boom
		},
	}))
	f, err := b.Build()
	require.NoError(t, err)
	_, err = f.Run(context.Background(), &ledger{})
	var stageErr *flow.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, flow.PhasePrepare, stageErr.Phase)

	b = flow.New[ledger]()
	b.Add(flow.Node[ledger](flow.Funcs[ledger, int, int]{
		Name:    "f",
		Results: []flow.Outcome{"done"},
		FinalizeFn: func(context.Context, *ledger, int, int) (flow.Outcome, error) {
			return "", boom
		},
	}))
	f, err = b.Build()
	require.NoError(t, err)
	_, err = f.Run(context.Background(), &ledger{})
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, flow.PhaseFinalize, stageErr.Phase)
}

func TestFlow_UndeclaredOutcomeAtRuntime(t *testing.T) {
	b := flow.New[ledger]()
	b.Add(flow.Node[ledger](flow.Funcs[ledger, int, int]{
		Name:    "rogue",
		Results: []flow.Outcome{"done"},
		FinalizeFn: func(context.Context, *ledger, int, int) (flow.Outcome, error) {
			return "surprise", nil
		},
	}))
	f, err := b.Build()
	require.NoError(t, err)

	_, err = f.Run(context.Background(), &ledger{})
	assert.ErrorIs(t, err, flow.ErrUndeclaredOutcome)
}

func flaky(failures int, calls *int, opts ...flow.NodeOption) flow.Runnable[ledger] {
	return flow.Node[ledger](flow.Funcs[ledger, struct{}, int]{
		Name:    "flaky",
		Results: []flow.Outcome{"done"},
		ExecuteFn: func(context.Context, struct{}) (int, error) {
			*calls++
			if *calls <= failures {
				return 0, errors.New("transient")
			}
			return *calls, nil
		},
		FinalizeFn: func(_ context.Context, s *ledger, _ struct{}, res int) (flow.Outcome, error) {
			s.Value = res
			return "done", nil
		},
	}, opts...)
}

func TestNode_RetryRecovers(t *testing.T) {
	calls := 0
	b := flow.New[ledger]()
	b.Add(flaky(2, &calls, flow.WithRetry(3, time.Millisecond)))
	f, err := b.Build()
	require.NoError(t, err)

	shared := &ledger{}
	_, err = f.Run(context.Background(), shared)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, shared.Value)
}

func TestNode_RetryExhausted(t *testing.T) {
	calls := 0
	b := flow.New[ledger]()
	b.Add(flaky(5, &calls, flow.WithRetry(2, 0)))
	f, err := b.Build()
	require.NoError(t, err)

	_, err = f.Run(context.Background(), &ledger{})
	var stageErr *flow.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, 2, stageErr.Attempts)
	assert.Equal(t, 2, calls)
}

func TestNode_RetryIfFiltersErrors(t *testing.T) {
	calls := 0
	b := flow.New[ledger]()
	b.Add(flaky(5, &calls,
		flow.WithRetry(4, 0),
		flow.WithRetryIf(func(error) bool { return false }),
	))
	f, err := b.Build()
	require.NoError(t, err)

	_, err = f.Run(context.Background(), &ledger{})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "permanent errors are not retried")
}

func TestNode_ContextErrorsAreNotRetried(t *testing.T) {
	calls := 0
	b := flow.New[ledger]()
	b.Add(flow.Node[ledger](flow.Funcs[ledger, struct{}, struct{}]{
		Name:    "slow",
		Results: []flow.Outcome{"done"},
		ExecuteFn: func(context.Context, struct{}) (struct{}, error) {
			calls++
			return struct{}{}, context.DeadlineExceeded
		},
	}, flow.WithRetry(5, 0)))
	f, err := b.Build()
	require.NoError(t, err)

	_, err = f.Run(context.Background(), &ledger{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}

func TestFlow_CancelledContextStopsBeforeStage(t *testing.T) {
	b := flow.New[ledger]()
	b.Add(step("a", "next")).On("next", "b")
	b.Add(step("b"))
	f, err := b.Build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	shared := &ledger{}
	report, err := f.Run(ctx, shared)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Path)
	assert.Empty(t, shared.Visited)
}

func TestFlow_MaxStepsGuardsCycles(t *testing.T) {
	b := flow.New[ledger]()
	b.Add(step("ping", "pong")).On("pong", "pong")
	b.Add(step("pong", "ping")).On("ping", "ping")
	f, err := b.Build(flow.WithMaxSteps(5))
	require.NoError(t, err)

	report, err := f.Run(context.Background(), &ledger{})
	assert.ErrorIs(t, err, flow.ErrMaxSteps)
	assert.Len(t, report.Path, 5)
}

func TestFlow_Hooks(t *testing.T) {
	var entered, left []flow.StageID
	var outcomes []flow.Outcome
	hooks := flow.Hooks{
		OnStageEnter: func(_ context.Context, e *flow.StageEvent) {
			entered = append(entered, e.Stage)
		},
		OnStageLeave: func(_ context.Context, e *flow.StageEvent) {
			left = append(left, e.Stage)
			outcomes = append(outcomes, e.Outcome)
			assert.Equal(t, "run-42", e.RunID)
			assert.Equal(t, 1, e.Attempts)
		},
	}
	counted := 0
	counter := flow.Hooks{OnStageLeave: func(context.Context, *flow.StageEvent) { counted++ }}

	b := flow.New[ledger]()
	b.Add(step("a", "next")).On("next", "b")
	b.Add(step("b", "done"))
	f, err := b.Build(flow.WithHooks(flow.ChainHooks(hooks, counter)), flow.WithRunID("run-42"))
	require.NoError(t, err)

	report, err := f.Run(context.Background(), &ledger{})
	require.NoError(t, err)
	assert.Equal(t, "run-42", report.RunID)
	assert.Equal(t, []flow.StageID{"a", "b"}, entered)
	assert.Equal(t, []flow.StageID{"a", "b"}, left)
	assert.Equal(t, []flow.Outcome{"next", "done"}, outcomes)
	assert.Equal(t, 2, counted)
}

func TestFlow_RunsAreDeterministic(t *testing.T) {
	b := flow.New[ledger]()
	b.Add(step("a", "next")).On("next", "b")
	b.Add(step("b", "done"))
	f, err := b.Build(flow.WithRunID("fixed"))
	require.NoError(t, err)

	first, second := &ledger{}, &ledger{}
	r1, err := f.Run(context.Background(), first)
	require.NoError(t, err)
	r2, err := f.Run(context.Background(), second)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, r1, r2)
}
