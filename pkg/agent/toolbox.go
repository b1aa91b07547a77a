package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/toolflow/pkg/domain"
	"github.com/aretw0/toolflow/pkg/ports"
)

// ErrNoToolServer is returned when a tool is called before any server was opened.
var ErrNoToolServer = errors.New("no tool server open")

// Toolbox tracks the tool sources opened during one run and routes calls to the
// server that advertised each tool. It is not safe for concurrent use.
type Toolbox struct {
	connector ports.Connector
	logger    *slog.Logger

	sources []ports.ToolSource
	owners  map[string]ports.ToolSource
}

// NewToolbox creates an empty toolbox. A nil logger discards output.
func NewToolbox(connector ports.Connector, logger *slog.Logger) *Toolbox {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Toolbox{
		connector: connector,
		logger:    logger,
		owners:    make(map[string]ports.ToolSource),
	}
}

// Discover opens one source per spec, in order, and concatenates their tools.
// When two servers advertise the same name the first one owns it.
func (t *Toolbox) Discover(ctx context.Context, specs []domain.LaunchSpec) (domain.ToolCatalog, error) {
	var catalog domain.ToolCatalog
	for _, spec := range specs {
		t.logger.Info("connecting to tool server", "server", spec.String())

		src, err := t.connector.Connect(ctx, spec)
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", spec, err)
		}
		t.sources = append(t.sources, src)

		tools, err := src.ListTools(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tools of %s: %w", spec, err)
		}
		for _, tool := range tools {
			if tool.Server == "" {
				tool.Server = spec.String()
			}
			if _, taken := t.owners[tool.Name]; taken {
				t.logger.Warn("tool advertised by several servers, keeping the first",
					"tool", tool.Name, "server", tool.Server)
				continue
			}
			t.owners[tool.Name] = src
			catalog = append(catalog, tool)
		}
	}
	return catalog, nil
}

// CallTool invokes name on the server that advertised it. Names that no server
// advertised go to the first server, which reports them as a tool failure.
func (t *Toolbox) CallTool(ctx context.Context, name string, params map[string]any) (domain.ToolCallResult, error) {
	src, ok := t.owners[name]
	if !ok {
		if len(t.sources) == 0 {
			return domain.ToolCallResult{}, fmt.Errorf("call %s: %w", name, ErrNoToolServer)
		}
		t.logger.Warn("tool not in catalog, forwarding to first server", "tool", name)
		src = t.sources[0]
	}
	return src.CallTool(ctx, name, params)
}

// Len returns the number of open sources.
func (t *Toolbox) Len() int {
	return len(t.sources)
}

// Close closes every source opened so far. It is idempotent.
func (t *Toolbox) Close() error {
	var errs []error
	for _, src := range t.sources {
		if err := src.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	t.sources = nil
	clear(t.owners)
	return errors.Join(errs...)
}
