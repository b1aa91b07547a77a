package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/toolflow"
	"github.com/aretw0/toolflow/pkg/adapters/memory"
	"github.com/aretw0/toolflow/pkg/agent"
	"github.com/aretw0/toolflow/pkg/domain"
	"github.com/aretw0/toolflow/pkg/flow"
	"github.com/aretw0/toolflow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runAgent(t *testing.T, hooks flow.Hooks, handler memory.Handler) {
	t.Helper()
	server := memory.NewToolServer(memory.Tool{
		ToolDescriptor: domain.NewToolDescriptor("lookup", "Look something up", nil, nil),
		Handler:        handler,
	})
	model := memory.NewScriptedCompleter("```yaml\ntool: lookup\n```", "done")

	a, err := toolflow.New(
		toolflow.WithCompleter(model),
		toolflow.WithConnector(memory.NewConnector(map[string]*memory.ToolServer{"srv": server})),
		toolflow.WithServers(domain.LaunchSpec{Command: "srv"}),
		toolflow.WithAnswerSink(memory.NewSink()),
		toolflow.WithErrorSink(memory.NewSink()),
		toolflow.WithLifecycleHooks(hooks),
	)
	require.NoError(t, err)
	_, err = a.Run(context.Background(), "question")
	require.NoError(t, err)
}

func TestMetrics_SuccessfulRun(t *testing.T) {
	m := observability.NewMetrics()
	runAgent(t, m.Hooks(), func(context.Context, map[string]any) (domain.ToolCallResult, error) {
		return domain.ToolSuccess("42"), nil
	})

	for _, stage := range []string{"discover", "decide", "execute", "write_answer"} {
		assert.Equal(t, 1.0, testutil.ToFloat64(m.StageVisits.WithLabelValues(stage)), stage)
	}
	assert.Equal(t, 0.0, testutil.ToFloat64(m.StageVisits.WithLabelValues("handle_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageOutcomes.WithLabelValues("execute", "write_answer")))
	assert.Equal(t, 4, testutil.CollectAndCount(m.StageDuration))
}

func TestMetrics_ToolError(t *testing.T) {
	m := observability.NewMetrics()
	runAgent(t, m.Hooks(), func(context.Context, map[string]any) (domain.ToolCallResult, error) {
		return domain.ToolFailure("symbol not found"), nil
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageVisits.WithLabelValues("handle_error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.StageVisits.WithLabelValues("write_answer")))
}

func TestMetrics_StageFailure(t *testing.T) {
	m := observability.NewMetrics()
	hooks := m.Hooks()

	e := &flow.StageEvent{Stage: agent.StageExecute, Duration: time.Millisecond, Err: errors.New("broken pipe")}
	hooks.OnStageEnter(context.Background(), e)
	hooks.OnStageLeave(context.Background(), e)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageFailures.WithLabelValues("execute")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("fault")))
	assert.Equal(t, 0, testutil.CollectAndCount(m.StageOutcomes))
}

func TestMetrics_DedicatedRegistry(t *testing.T) {
	a := observability.NewMetrics()
	b := observability.NewMetrics()
	a.StageVisits.WithLabelValues("decide").Inc()

	families, err := a.Registry().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "toolflow_stage_visits_total")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.StageVisits.WithLabelValues("decide")))
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.LogHooks(logger)

	ctx := context.Background()
	hooks.OnStageEnter(ctx, &flow.StageEvent{RunID: "r1", Stage: agent.StageDecide})
	hooks.OnStageLeave(ctx, &flow.StageEvent{RunID: "r1", Stage: agent.StageDecide, Outcome: agent.OutcomeExecute, Attempts: 1})
	hooks.OnStageLeave(ctx, &flow.StageEvent{RunID: "r1", Stage: agent.StageExecute, Err: errors.New("boom")})

	out := buf.String()
	assert.Contains(t, out, "stage_enter")
	assert.Contains(t, out, "outcome=execute")
	assert.Contains(t, out, "level=ERROR")
	assert.Equal(t, 3, strings.Count(out, "run_id=r1"))
}
