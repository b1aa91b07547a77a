package ports

import "context"

// AnswerSink persists the final answer of a run. A write failure is fatal to the run.
type AnswerSink interface {
	Write(ctx context.Context, text string) error
}

// ErrorSink surfaces tool failures to the operator.
type ErrorSink interface {
	Report(ctx context.Context, message string) error
}

// MultiSink fans an answer out to several sinks in order. The first error wins.
type MultiSink []AnswerSink

// Write writes text to every sink.
func (m MultiSink) Write(ctx context.Context, text string) error {
	for _, s := range m {
		if err := s.Write(ctx, text); err != nil {
			return err
		}
	}
	return nil
}
