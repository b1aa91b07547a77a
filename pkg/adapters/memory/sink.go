package memory

import (
	"context"
	"sync"
)

// Sink records answers and tool errors in memory. It implements ports.AnswerSink
// and ports.ErrorSink. Safe for concurrent use.
type Sink struct {
	mu      sync.RWMutex
	answers []string
	errors  []string
}

// NewSink creates an empty sink.
func NewSink() *Sink {
	return &Sink{}
}

// Write records an answer.
func (s *Sink) Write(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = append(s.answers, text)
	return nil
}

// Report records a tool error.
func (s *Sink) Report(ctx context.Context, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, message)
	return nil
}

// Last returns the most recent answer, or "" when none was written.
func (s *Sink) Last() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.answers) == 0 {
		return ""
	}
	return s.answers[len(s.answers)-1]
}

// Answers returns a copy of every recorded answer in write order.
func (s *Sink) Answers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.answers...)
}

// Errors returns a copy of every reported error in order.
func (s *Sink) Errors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.errors...)
}
