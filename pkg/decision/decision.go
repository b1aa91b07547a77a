// Package decision decodes the tool choice a language model writes into its reply.
//
// The model is asked to answer with a fenced YAML block:
//
//	```yaml
//	thinking: |
//	    step-by-step reasoning
//	tool: get_financial_statement
//	reason: why this tool fits
//	parameters:
//	    symbol: AOT
//	    from_year: 2022
//	    to_year: 2024
//	```
//
// Decode extracts the first such block and maps it onto a domain.ToolInvocationDecision.
package decision

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/toolflow/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

const (
	yamlFence = "```yaml"
	fence     = "```"
)

// ErrMissingTool is returned when the decision block names no tool.
var ErrMissingTool = errors.New("decision block has no tool")

// Extract returns the body of the first ```yaml fenced block in raw. When there is
// none, the first bare ``` block is used. The closing fence is optional.
func Extract(raw string) (string, error) {
	start := strings.Index(raw, yamlFence)
	skip := len(yamlFence)
	if start < 0 {
		start = strings.Index(raw, fence)
		skip = len(fence)
	}
	if start < 0 {
		return "", domain.ErrMissingDecisionBlock
	}

	body := raw[start+skip:]
	// Drop the rest of the info-string line (e.g. "```yml" or "```yaml  ").
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		return "", domain.ErrMissingDecisionBlock
	}
	if end := strings.Index(body, fence); end >= 0 {
		body = body[:end]
	}
	if strings.TrimSpace(body) == "" {
		return "", domain.ErrMissingDecisionBlock
	}
	return body, nil
}

// Decode parses the decision block in raw model output. Any failure is returned as
// a *domain.DecodeError carrying raw.
func Decode(raw string) (domain.ToolInvocationDecision, error) {
	d, err := decode(raw)
	if err != nil {
		return domain.ToolInvocationDecision{}, &domain.DecodeError{Raw: raw, Err: err}
	}
	return d, nil
}

func decode(raw string) (domain.ToolInvocationDecision, error) {
	var d domain.ToolInvocationDecision

	block, err := Extract(raw)
	if err != nil {
		return d, err
	}

	var fields map[string]any
	if err := yaml.Unmarshal([]byte(block), &fields); err != nil {
		return d, fmt.Errorf("invalid yaml: %w", err)
	}
	if fields == nil {
		return d, fmt.Errorf("decision block is not a mapping")
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &d,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return d, err
	}
	if err := dec.Decode(fields); err != nil {
		return d, fmt.Errorf("map decision fields: %w", err)
	}

	d.ToolName = strings.TrimSpace(d.ToolName)
	if d.ToolName == "" {
		return d, ErrMissingTool
	}
	if d.Parameters == nil {
		d.Parameters = map[string]any{}
	}
	d.Reason = strings.TrimSpace(d.Reason)
	d.Thinking = strings.TrimSpace(d.Thinking)
	return d, nil
}
