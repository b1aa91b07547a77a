package memory

import (
	"context"
	"errors"
	"sync"
)

// ErrNoReply is returned when a ScriptedCompleter runs out of replies.
var ErrNoReply = errors.New("no scripted reply left")

// Reply is one canned completer response.
type Reply struct {
	Text string
	Err  error
}

// ScriptedCompleter returns canned replies in order and records the prompts it saw.
// It implements ports.Completer.
type ScriptedCompleter struct {
	mu      sync.Mutex
	replies []Reply
	prompts []string
}

// NewScriptedCompleter creates a completer replying with texts in order.
func NewScriptedCompleter(texts ...string) *ScriptedCompleter {
	c := &ScriptedCompleter{}
	for _, t := range texts {
		c.replies = append(c.replies, Reply{Text: t})
	}
	return c
}

// Then appends a reply.
func (c *ScriptedCompleter) Then(r Reply) *ScriptedCompleter {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, r)
	return c
}

// Complete pops the next reply.
func (c *ScriptedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	if len(c.replies) == 0 {
		return "", ErrNoReply
	}
	r := c.replies[0]
	c.replies = c.replies[1:]
	return r.Text, r.Err
}

// Prompts returns the prompts received so far.
func (c *ScriptedCompleter) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}
