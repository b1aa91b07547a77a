/*
Package flow is a minimal, deterministic state machine for staged processing.

A Flow is a directed graph of stages connected by outcome-labeled edges. Every stage runs
three ordered phases over one shared, typed context:

  - Prepare reads the shared context and produces the stage input.
  - Execute performs the slow or external work (model call, subprocess, I/O). It never
    sees the shared context and is the only retryable phase.
  - Finalize writes the shared context and returns the outcome selecting the next stage.

The run stops when an outcome has no matching edge. Graph mistakes (duplicate edges,
unknown targets, outcomes a stage never declares) are rejected by Builder.Build, before
any run starts.

Example usage:

	b := flow.New[Shared]()
	b.Add(flow.Node[Shared](fetch, flow.WithRetry(3, time.Second))).On("parse", "parse")
	b.Add(flow.Node[Shared](parse))

	f, err := b.Build(flow.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}
	report, err := f.Run(ctx, &Shared{})
*/
package flow
