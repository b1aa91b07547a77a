package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/toolflow/pkg/domain"
	"github.com/aretw0/toolflow/pkg/ports"
)

// Handler serves one tool call.
type Handler func(ctx context.Context, params map[string]any) (domain.ToolCallResult, error)

// Tool pairs a descriptor with its handler.
type Tool struct {
	domain.ToolDescriptor
	Handler Handler
}

// ToolServer is an in-process ports.ToolSource. Calls are recorded for inspection.
type ToolServer struct {
	tools []Tool

	mu     sync.Mutex
	calls  []string
	closed bool
}

// NewToolServer creates a server advertising tools in the given order.
func NewToolServer(tools ...Tool) *ToolServer {
	return &ToolServer{tools: tools}
}

// ListTools returns the descriptors of every tool.
func (s *ToolServer) ListTools(ctx context.Context) ([]domain.ToolDescriptor, error) {
	if err := s.check("tools/list"); err != nil {
		return nil, err
	}
	out := make([]domain.ToolDescriptor, len(s.tools))
	for i, t := range s.tools {
		out[i] = t.ToolDescriptor
	}
	return out, nil
}

// CallTool runs the handler registered for name. Unknown names are a tool failure.
func (s *ToolServer) CallTool(ctx context.Context, name string, params map[string]any) (domain.ToolCallResult, error) {
	if err := s.check("tools/call"); err != nil {
		return domain.ToolCallResult{}, err
	}
	s.mu.Lock()
	s.calls = append(s.calls, name)
	s.mu.Unlock()

	for _, t := range s.tools {
		if t.Name != name {
			continue
		}
		if t.Handler == nil {
			return domain.ToolSuccess(""), nil
		}
		return t.Handler(ctx, params)
	}
	return domain.ToolFailure(fmt.Sprintf("Unknown tool: %s", name)), nil
}

// Close marks the server closed. Further calls fail with domain.ErrSessionClosed.
func (s *ToolServer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *ToolServer) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Calls returns the names of the tools called so far.
func (s *ToolServer) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *ToolServer) check(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &domain.TransportError{Op: op, Err: domain.ErrSessionClosed}
	}
	return nil
}

// ErrUnknownServer is returned by Connector for launch specs it does not know.
var ErrUnknownServer = errors.New("executable not found")

// Connector hands out in-process servers keyed by the launch spec's command line.
type Connector struct {
	Servers map[string]*ToolServer

	mu     sync.Mutex
	opened []string
}

// NewConnector creates a connector over servers keyed by LaunchSpec.String().
func NewConnector(servers map[string]*ToolServer) *Connector {
	return &Connector{Servers: servers}
}

// Connect returns the server registered for spec.
func (c *Connector) Connect(ctx context.Context, spec domain.LaunchSpec) (ports.ToolSource, error) {
	srv, ok := c.Servers[spec.String()]
	if !ok {
		return nil, &domain.TransportError{Op: "spawn", Err: fmt.Errorf("%s: %w", spec.Command, ErrUnknownServer)}
	}
	c.mu.Lock()
	c.opened = append(c.opened, spec.String())
	c.mu.Unlock()
	return srv, nil
}

// Opened returns the launch specs connected so far, in order.
func (c *Connector) Opened() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.opened...)
}
