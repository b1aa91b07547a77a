package agent

import (
	"github.com/aretw0/toolflow/pkg/domain"
)

// Shared is the context threaded through every stage of one run. Stages run
// sequentially, so it needs no locking. Each field notes the stage that writes it.
type Shared struct {
	// Servers and Question are inputs set before the run.
	Servers  []domain.LaunchSpec
	Question string

	// Discover.
	Catalog     domain.ToolCatalog
	ToolSummary string

	// Decide.
	ToolName    string
	Parameters  map[string]any
	Reason      string
	Thinking    string
	RawResponse string
	DecodeErr   error

	// Execute. Result is the raw tool output; CallResult is its prompt rendering.
	Result     domain.ToolCallResult
	CallResult string
	ToolError  string

	// WriteAnswer.
	Answer string
}

// NewShared creates the context for a run.
func NewShared(question string, servers []domain.LaunchSpec) *Shared {
	return &Shared{
		Question: question,
		Servers:  servers,
	}
}

// Answered reports whether the run produced an answer.
func (s *Shared) Answered() bool {
	return s.Answer != ""
}
