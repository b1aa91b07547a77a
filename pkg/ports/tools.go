package ports

import (
	"context"

	"github.com/aretw0/toolflow/pkg/domain"
)

// ToolSource is an open connection to one tool server.
type ToolSource interface {
	// ListTools returns the tools advertised by the server.
	ListTools(ctx context.Context) ([]domain.ToolDescriptor, error)

	// CallTool invokes a tool. Tool-level failures are reported through
	// ToolCallResult.IsError; the error return is reserved for transport and
	// protocol faults.
	CallTool(ctx context.Context, name string, params map[string]any) (domain.ToolCallResult, error)

	// Close terminates the connection. It must be idempotent.
	Close() error
}

// Connector opens tool sources from launch specs.
type Connector interface {
	Connect(ctx context.Context, spec domain.LaunchSpec) (ToolSource, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context, spec domain.LaunchSpec) (ToolSource, error)

// Connect calls f(ctx, spec).
func (f ConnectorFunc) Connect(ctx context.Context, spec domain.LaunchSpec) (ToolSource, error) {
	return f(ctx, spec)
}
