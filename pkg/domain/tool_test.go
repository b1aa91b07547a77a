package domain

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func financialTool() ToolDescriptor {
	return NewToolDescriptor("get_financial_statement", "Get financial statements for a symbol",
		map[string]any{
			"to_year":   map[string]any{"type": "integer"},
			"symbol":    map[string]any{"type": "string", "description": "Stock symbol"},
			"from_year": map[string]any{"type": "integer"},
			"currency":  map[string]any{},
		},
		[]string{"symbol", "from_year", "to_year"},
	)
}

func TestNewToolDescriptor_OrdersParameters(t *testing.T) {
	tool := financialTool()

	require.Len(t, tool.Parameters, 4)
	assert.Equal(t, "currency", tool.Parameters[0].Name)
	assert.Equal(t, "unknown", tool.Parameters[0].Type)
	assert.False(t, tool.Parameters[0].Required)
	assert.Equal(t, "symbol", tool.Parameters[2].Name)
	assert.Equal(t, "Stock symbol", tool.Parameters[2].Description)
	assert.True(t, tool.Parameters[2].Required)
}

func TestToolCatalog_Summary(t *testing.T) {
	catalog := ToolCatalog{
		financialTool(),
		NewToolDescriptor("ping", "Health check", nil, nil),
	}

	want := "[1] get_financial_statement\n" +
		"  Description: Get financial statements for a symbol\n" +
		"  Parameters:\n" +
		"    - currency (unknown): (Optional)\n" +
		"    - from_year (integer): (Required)\n" +
		"    - symbol (string): (Required)\n" +
		"    - to_year (integer): (Required)\n" +
		"[2] ping\n" +
		"  Description: Health check\n" +
		"  Parameters:"
	assert.Equal(t, want, catalog.Summary())
	assert.Equal(t, []string{"get_financial_statement", "ping"}, catalog.Names())

	_, ok := catalog.Lookup("ping")
	assert.True(t, ok)
	_, ok = catalog.Lookup("missing")
	assert.False(t, ok)
}

func TestToolCallResult_String(t *testing.T) {
	assert.Equal(t, "symbol not found", ToolFailure("symbol not found").String())
	assert.Equal(t, "<data>", ToolSuccess("<data>").String())
	assert.Equal(t, `{"a":1}`, ToolSuccess(map[string]int{"a": 1}).String())
	assert.Equal(t, "", ToolCallResult{}.String())
}

func TestParseLaunchSpec(t *testing.T) {
	spec, err := ParseLaunchSpec("  uvx   set-mcp --verbose ")
	require.NoError(t, err)
	assert.Equal(t, "uvx", spec.Command)
	assert.Equal(t, []string{"set-mcp", "--verbose"}, spec.Args)
	assert.Equal(t, "uvx set-mcp --verbose", spec.String())

	_, err = ParseLaunchSpec("   ")
	assert.Error(t, err)
}

func TestErrorTaxonomy(t *testing.T) {
	var err error = &TransportError{Op: "spawn", Err: io.EOF}
	assert.True(t, IsTransport(err))
	assert.False(t, IsProtocol(err))
	assert.True(t, errors.Is(err, io.EOF))
	assert.Equal(t, "transport: spawn: EOF", err.Error())

	err = &DecodeError{Raw: "hello", Err: ErrMissingDecisionBlock}
	assert.ErrorIs(t, err, ErrMissingDecisionBlock)
}
