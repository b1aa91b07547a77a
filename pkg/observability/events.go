package observability

import (
	"context"
	"sync"

	"github.com/aretw0/toolflow/pkg/flow"
)

// Event is a stage transition seen by a Stream.
type Event struct {
	Kind  string // "enter" or "leave"
	Stage flow.StageEvent
}

// Stream fans stage transitions out to watchers. Slow watchers miss events
// rather than block the run.
type Stream struct {
	mu       sync.Mutex
	watchers map[chan Event]struct{}
	buffer   int
}

// NewStream creates a stream whose watcher channels hold buffer events.
func NewStream(buffer int) *Stream {
	if buffer < 1 {
		buffer = 1
	}
	return &Stream{watchers: make(map[chan Event]struct{}), buffer: buffer}
}

// Watch returns a channel of events, closed when ctx is done.
func (s *Stream) Watch(ctx context.Context) <-chan Event {
	ch := make(chan Event, s.buffer)
	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, ch)
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

// Hooks returns lifecycle hooks that publish to the stream.
func (s *Stream) Hooks() flow.Hooks {
	return flow.Hooks{
		OnStageEnter: func(_ context.Context, e *flow.StageEvent) { s.publish("enter", e) },
		OnStageLeave: func(_ context.Context, e *flow.StageEvent) { s.publish("leave", e) },
	}
}

func (s *Stream) publish(kind string, e *flow.StageEvent) {
	ev := Event{Kind: kind, Stage: *e}
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
}
