package mcp

import (
	"context"

	"github.com/aretw0/toolflow/pkg/domain"
	"github.com/aretw0/toolflow/pkg/ports"
)

// Launcher opens a Session per launch spec. It implements ports.Connector.
type Launcher struct {
	Options []Option
}

// NewLauncher returns a Launcher that applies opts to every session it opens.
func NewLauncher(opts ...Option) *Launcher {
	return &Launcher{Options: opts}
}

// Connect spawns and initializes the server described by spec.
func (l *Launcher) Connect(ctx context.Context, spec domain.LaunchSpec) (ports.ToolSource, error) {
	s, err := Open(ctx, spec, l.Options...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

var _ ports.Connector = (*Launcher)(nil)
var _ ports.ToolSource = (*Session)(nil)
