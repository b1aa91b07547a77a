package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ParameterSpec describes one input parameter of a tool.
type ParameterSpec struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool   `json:"required" yaml:"required"`
}

// ToolDescriptor defines metadata about a tool available on a tool server.
// It is immutable once fetched.
type ToolDescriptor struct {
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Parameters  []ParameterSpec `json:"parameters,omitempty" yaml:"parameters,omitempty"`

	// Server is the launch spec of the server that advertised the tool.
	Server string `json:"server,omitempty" yaml:"server,omitempty"`
}

// NewToolDescriptor builds a descriptor from a JSON-schema style property map.
// Parameters are ordered by name so that rendering is deterministic.
func NewToolDescriptor(name, description string, properties map[string]any, required []string) ToolDescriptor {
	req := make(map[string]bool, len(required))
	for _, r := range required {
		req[r] = true
	}

	params := make([]ParameterSpec, 0, len(properties))
	for pname, raw := range properties {
		spec := ParameterSpec{Name: pname, Type: "unknown", Required: req[pname]}
		if info, ok := raw.(map[string]any); ok {
			if t, ok := info["type"].(string); ok && t != "" {
				spec.Type = t
			}
			if d, ok := info["description"].(string); ok {
				spec.Description = d
			}
		}
		params = append(params, spec)
	}
	sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })

	return ToolDescriptor{
		Name:        name,
		Description: description,
		Parameters:  params,
	}
}

// ToolCatalog is the ordered set of tools discovered during one run.
// It is read-only after construction.
type ToolCatalog []ToolDescriptor

// Lookup returns the descriptor with the given name.
func (c ToolCatalog) Lookup(name string) (ToolDescriptor, bool) {
	for _, t := range c {
		if t.Name == name {
			return t, true
		}
	}
	return ToolDescriptor{}, false
}

// Names returns the tool names in catalog order.
func (c ToolCatalog) Names() []string {
	names := make([]string, len(c))
	for i, t := range c {
		names[i] = t.Name
	}
	return names
}

// Summary formats the catalog as a numbered, human-readable list for prompts.
func (c ToolCatalog) Summary() string {
	blocks := make([]string, 0, len(c))
	for i, tool := range c {
		var b strings.Builder
		fmt.Fprintf(&b, "[%d] %s\n  Description: %s\n  Parameters:", i+1, tool.Name, tool.Description)
		for _, p := range tool.Parameters {
			status := "(Optional)"
			if p.Required {
				status = "(Required)"
			}
			fmt.Fprintf(&b, "\n    - %s (%s): %s", p.Name, p.Type, status)
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n")
}

// ToolInvocationDecision is the model's choice of tool and arguments.
// ToolName is not checked against the catalog before invocation; the server
// rejecting an unknown name surfaces as a tool-level failure.
type ToolInvocationDecision struct {
	ToolName   string         `json:"tool" yaml:"tool" mapstructure:"tool"`
	Parameters map[string]any `json:"parameters" yaml:"parameters" mapstructure:"parameters"`
	Reason     string         `json:"reason,omitempty" yaml:"reason,omitempty" mapstructure:"reason"`
	Thinking   string         `json:"thinking,omitempty" yaml:"thinking,omitempty" mapstructure:"thinking"`
}

// ToolCallResult represents the output of a tool invocation.
// Exactly one of Value or ErrorMessage is meaningful, selected by IsError.
type ToolCallResult struct {
	IsError      bool   `json:"is_error,omitempty"`
	Value        any    `json:"value,omitempty"`
	ErrorMessage string `json:"error,omitempty"`
}

// ToolFailure builds an error result.
func ToolFailure(msg string) ToolCallResult {
	return ToolCallResult{IsError: true, ErrorMessage: msg}
}

// ToolSuccess builds a value result.
func ToolSuccess(v any) ToolCallResult {
	return ToolCallResult{Value: v}
}

// String renders the meaningful payload. Structured values are rendered as JSON.
func (r ToolCallResult) String() string {
	if r.IsError {
		return r.ErrorMessage
	}
	switch v := r.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", v)
	}
}
