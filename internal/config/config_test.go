package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/toolflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := write(t, "toolflow.yaml", `
provider: claude
model: claude-3-5-haiku-latest
servers:
  - python3 simple_server.py
  - name: finance
    command: toolflow
    args: [serve]
    env:
      B: "2"
      A: "1"
answer:
  file: out.md
  redis:
    addr: localhost:6379
    ttl: 1h
retry:
  attempts: 5
  wait: 250ms
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "claude", cfg.Provider)
	assert.Equal(t, "claude-3-5-haiku-latest", cfg.Model)
	assert.Equal(t, "out.md", cfg.Answer.File)
	assert.True(t, cfg.Answer.Console, "unset keys keep their defaults")
	assert.Equal(t, time.Hour, cfg.Answer.Redis.TTL)
	assert.Equal(t, 5, cfg.Retry.Attempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.Wait)
	assert.Equal(t, 60*time.Second, cfg.Timeouts.Request)

	assert.Equal(t, []domain.LaunchSpec{
		{Command: "python3", Args: []string{"simple_server.py"}},
		{Command: "toolflow", Args: []string{"serve"}, Env: []string{"A=1", "B=2"}},
	}, cfg.LaunchSpecs())
}

func TestLoad_JSON(t *testing.T) {
	path := write(t, "toolflow.json", `{"provider": "openai", "servers": ["node server.js --stdio"]}`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, []domain.LaunchSpec{{Command: "node", Args: []string{"server.js", "--stdio"}}}, cfg.LaunchSpecs())
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"syntax":   "provider: [",
		"provider": "provider: llama",
		"server":   "servers:\n  - \"   \"",
		"retry":    "retry:\n  attempts: 0",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(write(t, "toolflow.yaml", content))
			assert.Error(t, err)
		})
	}
}
