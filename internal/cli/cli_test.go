package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/toolflow/internal/cli"
	"github.com/aretw0/toolflow/internal/config"
	"github.com/aretw0/toolflow/internal/testutils"
	"github.com/aretw0/toolflow/pkg/adapters/memory"
	"github.com/aretw0/toolflow/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	testutils.RunHelperIfRequested()
	os.Exit(m.Run())
}

const financeDecision = "```yaml\n" +
	"thinking: the user wants AOT figures\n" +
	"tool: get_financial_statement\n" +
	"reason: it returns statements per year\n" +
	"parameters:\n" +
	"  symbol: AOT\n" +
	"  from_year: 2022\n" +
	"  to_year: 2023\n" +
	"```"

// writeConfig writes a JSON config whose only server is the finance helper.
func writeConfig(t *testing.T, answerFile string) string {
	t.Helper()
	spec := testutils.HelperSpec(testutils.ModeFinance)
	cfg := map[string]any{
		"provider": "gemini",
		"servers": []map[string]any{{
			"command": spec.Command,
			"args":    spec.Args,
			"env":     map[string]string{testutils.HelperModeEnv: testutils.ModeFinance},
		}},
		"answer": map[string]any{"file": answerFile, "console": true},
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "toolflow.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestRun_Answer(t *testing.T) {
	answer := testutils.TempPath(t, "answer.md")
	var stdout, stderr bytes.Buffer
	model := memory.NewScriptedCompleter(financeDecision, "AOT revenue grew from 2022 to 2023.")

	code, err := cli.Run(testutils.Context(t), cli.Options{
		ConfigPath: writeConfig(t, answer),
		Stdout:     &stdout,
		Stderr:     &stderr,
		Completer:  model,
	}, "How did AOT revenue change?")

	require.NoError(t, err)
	assert.Equal(t, cli.ExitOK, code)
	assert.Equal(t, "AOT revenue grew from 2022 to 2023.", testutils.ReadFile(t, answer))
	assert.Contains(t, stdout.String(), "AOT revenue grew")
	assert.Contains(t, model.Prompts()[1], "get_financial_statement")
}

func TestRun_ToolError(t *testing.T) {
	answer := testutils.TempPath(t, "answer.md")
	var stdout, stderr bytes.Buffer
	model := memory.NewScriptedCompleter(
		"```yaml\ntool: get_financial_statement\nparameters:\n  symbol: ZZZ\n  from_year: 2022\n  to_year: 2023\n```",
	)

	code, err := cli.Run(testutils.Context(t), cli.Options{
		ConfigPath: writeConfig(t, answer),
		Stdout:     &stdout,
		Stderr:     &stderr,
		Completer:  model,
	}, "ZZZ?")

	require.NoError(t, err)
	assert.Equal(t, cli.ExitOK, code)
	assert.Contains(t, stderr.String(), "symbol not found")
	assert.NoFileExists(t, answer)
}

func TestRun_DecodeFailure(t *testing.T) {
	answer := testutils.TempPath(t, "answer.md")
	model := memory.NewScriptedCompleter("I would rather not pick a tool.")

	code, err := cli.Run(testutils.Context(t), cli.Options{
		ConfigPath: writeConfig(t, answer),
		Stdout:     io.Discard,
		Stderr:     io.Discard,
		Completer:  model,
	}, "?")

	assert.Error(t, err)
	assert.Equal(t, cli.ExitDecodeFailed, code)
	assert.NoFileExists(t, answer)
}

func TestRun_NoServers(t *testing.T) {
	t.Chdir(t.TempDir())

	code, err := cli.Run(context.Background(), cli.Options{
		Stdout:    io.Discard,
		Stderr:    io.Discard,
		Completer: memory.NewScriptedCompleter(),
	}, "?")

	assert.ErrorContains(t, err, "no tool servers")
	assert.Equal(t, cli.ExitFault, code)
}

func TestRun_SpawnFailure(t *testing.T) {
	t.Chdir(t.TempDir())

	code, err := cli.Run(testutils.Context(t), cli.Options{
		Servers:   []string{"/definitely/not/a/server --stdio"},
		NoConsole: true,
		Stdout:    io.Discard,
		Stderr:    io.Discard,
		Completer: memory.NewScriptedCompleter(),
	}, "?")

	assert.Error(t, err)
	assert.Equal(t, cli.ExitFault, code)
}

func TestListTools(t *testing.T) {
	var stdout bytes.Buffer
	err := cli.ListTools(testutils.Context(t), cli.Options{
		ConfigPath: writeConfig(t, ""),
		Stdout:     &stdout,
		Stderr:     io.Discard,
	})

	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "get_financial_statement")
	assert.Contains(t, stdout.String(), "list_symbols")
}

func TestMetricsHandler(t *testing.T) {
	m := observability.NewMetrics()
	m.StageVisits.WithLabelValues("decide").Inc()
	srv := httptest.NewServer(cli.NewMetricsHandler(m.Registry()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `toolflow_stage_visits_total{stage="decide"} 1`)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))
}

func TestNewSinks(t *testing.T) {
	mr := miniredis.RunT(t)
	answer := testutils.TempPath(t, "answer.md")
	var stdout bytes.Buffer

	sinks := cli.NewSinks(config.AnswerConfig{
		File:    answer,
		Console: true,
		Redis:   config.RedisConfig{Addr: mr.Addr(), Prefix: "test:"},
	}, &stdout, io.Discard)
	defer sinks.Close()

	require.NoError(t, sinks.Answers.Write(context.Background(), "hello"))
	assert.Equal(t, "hello", testutils.ReadFile(t, answer))
	assert.Equal(t, "hello\n", stdout.String())

	got, err := mr.Get("test:answer")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestNewCompleter_UnknownProvider(t *testing.T) {
	_, closeFn, err := cli.NewCompleter(context.Background(), config.Config{Provider: "llama"})
	assert.ErrorContains(t, err, "llama")
	assert.NoError(t, closeFn())
}

func TestNewCompleter_MissingKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, _, err := cli.NewCompleter(context.Background(), config.Config{Provider: "claude"})
	assert.Error(t, err)
}
