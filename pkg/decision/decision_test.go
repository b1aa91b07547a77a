package decision

import (
	"errors"
	"testing"

	"github.com/aretw0/toolflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	raw := "Let me look at the tools.\n\n```yaml\n" +
		"thinking: |\n" +
		"    The user wants statements for several years.\n" +
		"tool: get_financial_statement\n" +
		"reason: It returns yearly figures\n" +
		"parameters:\n" +
		"    symbol: AOT\n" +
		"    from_year: 2022\n" +
		"    to_year: 2024\n" +
		"```\n\nDone."

	d, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "get_financial_statement", d.ToolName)
	assert.Equal(t, "It returns yearly figures", d.Reason)
	assert.Equal(t, "The user wants statements for several years.", d.Thinking)
	assert.Equal(t, map[string]any{"symbol": "AOT", "from_year": 2022, "to_year": 2024}, d.Parameters)
}

func TestDecode_Variants(t *testing.T) {
	t.Run("Bare Fence", func(t *testing.T) {
		d, err := Decode("```\ntool: add\nparameters:\n  a: 1\n  b: 2\n```")
		require.NoError(t, err)
		assert.Equal(t, "add", d.ToolName)
		assert.Equal(t, map[string]any{"a": 1, "b": 2}, d.Parameters)
	})

	t.Run("Missing Parameters Default To Empty", func(t *testing.T) {
		d, err := Decode("```yaml\ntool: list_symbols\n```")
		require.NoError(t, err)
		assert.NotNil(t, d.Parameters)
		assert.Empty(t, d.Parameters)
	})

	t.Run("Unterminated Block", func(t *testing.T) {
		d, err := Decode("```yaml\ntool: list_symbols\nreason: nothing else needed\n")
		require.NoError(t, err)
		assert.Equal(t, "list_symbols", d.ToolName)
	})

	t.Run("First Yaml Block Wins", func(t *testing.T) {
		d, err := Decode("```\nnot: this\n```\n```yaml\ntool: first\n```\n```yaml\ntool: second\n```")
		require.NoError(t, err)
		assert.Equal(t, "first", d.ToolName)
	})

	t.Run("Json Block", func(t *testing.T) {
		d, err := Decode("```json\n{\"tool\": \"echo\", \"parameters\": {\"text\": \"hi\"}}\n```")
		require.NoError(t, err)
		assert.Equal(t, "echo", d.ToolName)
		assert.Equal(t, map[string]any{"text": "hi"}, d.Parameters)
	})
}

func TestDecode_Failures(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		target error
	}{
		{"No Block", "I think you should call the statement tool.", domain.ErrMissingDecisionBlock},
		{"Empty Block", "```yaml\n\n```", domain.ErrMissingDecisionBlock},
		{"No Tool", "```yaml\nreason: none\n```", ErrMissingTool},
		{"Blank Tool", "```yaml\ntool: \"  \"\n```", ErrMissingTool},
		{"Invalid Yaml", "```yaml\ntool: [unclosed\n```", nil},
		{"Not A Mapping", "```yaml\n- a\n- b\n```", nil},
		{"Parameters Not A Mapping", "```yaml\ntool: x\nparameters: [1, 2]\n```", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.raw)
			require.Error(t, err)

			var de *domain.DecodeError
			require.True(t, errors.As(err, &de), "got %T", err)
			assert.Equal(t, tc.raw, de.Raw)
			if tc.target != nil {
				assert.ErrorIs(t, err, tc.target)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	body, err := Extract("text\n```yaml\ntool: x\n```\ntrailing")
	require.NoError(t, err)
	assert.Equal(t, "tool: x\n", body)

	_, err = Extract("```yaml")
	assert.ErrorIs(t, err, domain.ErrMissingDecisionBlock)
}
