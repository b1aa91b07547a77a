package flow

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

type edgeKey struct {
	from    StageID
	outcome Outcome
}

type edge struct {
	edgeKey
	to StageID
}

// Builder manages the graph construction.
type Builder[S any] struct {
	stages map[StageID]Runnable[S]
	order  []StageID
	edges  []edge
	start  StageID
	errs   []error
}

// New creates a new graph builder for shared context type S.
func New[S any]() *Builder[S] {
	return &Builder[S]{
		stages: make(map[StageID]Runnable[S]),
	}
}

// Add registers a stage. The first stage added is the default start.
func (b *Builder[S]) Add(r Runnable[S]) *EdgeBuilder[S] {
	id := r.ID()
	if _, ok := b.stages[id]; ok {
		b.errs = append(b.errs, fmt.Errorf("%w: %s", ErrDuplicateStage, id))
	} else {
		b.stages[id] = r
		b.order = append(b.order, id)
	}
	return &EdgeBuilder[S]{from: id, builder: b}
}

// Start overrides the start stage.
func (b *Builder[S]) Start(id StageID) *Builder[S] {
	b.start = id
	return b
}

// Connect adds an edge from (from, outcome) to target.
func (b *Builder[S]) Connect(from StageID, outcome Outcome, to StageID) *Builder[S] {
	b.edges = append(b.edges, edge{edgeKey: edgeKey{from: from, outcome: outcome}, to: to})
	return b
}

// Build validates the graph and compiles it into a Flow.
func (b *Builder[S]) Build(opts ...Option) (*Flow[S], error) {
	errs := slices.Clone(b.errs)

	start := b.start
	if start == "" && len(b.order) > 0 {
		start = b.order[0]
	}
	if start == "" {
		errs = append(errs, ErrNoStart)
	} else if _, ok := b.stages[start]; !ok {
		errs = append(errs, fmt.Errorf("%w: start %s", ErrUnknownStage, start))
	}

	table := make(map[edgeKey]StageID, len(b.edges))
	for _, e := range b.edges {
		src, ok := b.stages[e.from]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: edge source %s", ErrUnknownStage, e.from))
			continue
		}
		if _, ok := b.stages[e.to]; !ok {
			errs = append(errs, fmt.Errorf("%w: edge %s -%s-> %s", ErrUnknownStage, e.from, e.outcome, e.to))
		}
		if !slices.Contains(src.Outcomes(), e.outcome) {
			errs = append(errs, fmt.Errorf("%w: stage %s never returns %q", ErrUndeclaredOutcome, e.from, e.outcome))
		}
		if prev, dup := table[e.edgeKey]; dup {
			errs = append(errs, fmt.Errorf("%w: %s -%s-> %s and %s", ErrDuplicateEdge, e.from, e.outcome, prev, e.to))
			continue
		}
		table[e.edgeKey] = e.to
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid flow: %w", errors.Join(errs...))
	}

	f := &Flow[S]{
		start:  start,
		stages: maps.Clone(b.stages),
		edges:  table,
		cfg:    defaultConfig(),
	}
	for _, opt := range opts {
		opt(&f.cfg)
	}
	return f, nil
}

// EdgeBuilder provides a fluent API for declaring the edges leaving one stage.
type EdgeBuilder[S any] struct {
	from    StageID
	builder *Builder[S]
}

// On adds a transition taken when the stage returns outcome.
func (e *EdgeBuilder[S]) On(outcome Outcome, target StageID) *EdgeBuilder[S] {
	e.builder.Connect(e.from, outcome, target)
	return e
}
