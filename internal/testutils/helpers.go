package testutils

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/toolflow/pkg/domain"
	"github.com/stretchr/testify/require"
)

// HelperModeEnv selects the tool server a re-executed test binary plays.
const HelperModeEnv = "TOOLFLOW_HELPER_MODE"

// Helper modes understood by RunHelperIfRequested.
const (
	ModeFinance    = "finance"
	ModeEcho       = "echo"
	ModeSilent     = "silent"
	ModeNoisy      = "noisy"
	ModeBadVersion = "badversion"
	ModeGarbage    = "garbage"
	ModeCrash      = "crash"
	ModeSlow       = "slow"
	ModeStubborn   = "stubborn"
	ModePaged      = "paged"
)

// HelperSpec returns a launch spec that re-executes the current test binary as a
// tool server in the given mode. The calling package must invoke
// RunHelperIfRequested from its TestMain.
func HelperSpec(mode string) domain.LaunchSpec {
	return domain.LaunchSpec{
		Command: os.Args[0],
		Args:    []string{"-test.run=^$"},
		Env:     []string{HelperModeEnv + "=" + mode},
	}
}

// RunHelperIfRequested turns the process into a tool server when HelperModeEnv is
// set, and exits once the server returns. It is a no-op otherwise.
func RunHelperIfRequested() {
	mode := os.Getenv(HelperModeEnv)
	if mode == "" {
		return
	}
	code := 0
	if err := serveHelper(mode, os.Stdin, os.Stdout); err != nil {
		code = 1
	}
	os.Exit(code)
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Context returns a context cancelled when the test ends.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// ReadFile reads a file or fails the test immediately.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err, "Failed to read %s", path)
	return string(data)
}

// TempPath returns an absolute path for name inside a fresh temp dir.
func TempPath(t *testing.T, name string) string {
	t.Helper()
	absPath, err := filepath.Abs(filepath.Join(t.TempDir(), name))
	require.NoError(t, err, "Failed to get absolute path for temp file")
	return absPath
}
