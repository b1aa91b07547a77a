package ports

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunAnswerSinkContract runs a suite of tests to verify that an AnswerSink implementation
// adheres to the defined interface contract. readBack returns the last persisted answer.
func RunAnswerSinkContract(t *testing.T, sink AnswerSink, readBack func(t *testing.T) string) {
	t.Helper()
	ctx := context.Background()

	t.Run("Write and Read Back", func(t *testing.T) {
		err := sink.Write(ctx, "# Answer\n\nAOT revenue grew.")
		require.NoError(t, err, "Write should not return error")
		assert.Equal(t, "# Answer\n\nAOT revenue grew.", readBack(t))
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, sink.Write(ctx, "first"))
		require.NoError(t, sink.Write(ctx, "second"))
		assert.Equal(t, "second", readBack(t), "the latest answer should win")
	})

	t.Run("Empty Answer", func(t *testing.T) {
		require.NoError(t, sink.Write(ctx, ""))
		assert.Equal(t, "", readBack(t))
	})
}
