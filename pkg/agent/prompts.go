package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/aretw0/toolflow/pkg/domain"
)

const decisionPrompt = `
### CONTEXT
You are an assistant that can use tools via Model Context Protocol (MCP).

### ACTION SPACE
{{ .ToolSummary | trim }}

### TASK
Answer this question: "{{ .Question | trim }}"

## NEXT ACTION
Analyze the question, extract parameters, and decide which tool to use.
Return your response in this format:

` + "```yaml" + `
thinking: |
    <your step-by-step reasoning about what the question is asking and what parameters to extract>
tool: <name of the tool to use>
reason: <why you chose this tool>
parameters:
    <parameter_name>: <parameter_value>
    <parameter_name>: <parameter_value>
` + "```" + `
IMPORTANT:
1. Extract parameters from the question properly
2. Use proper indentation (4 spaces) for multi-line fields
3. Use the | character for multi-line text fields
`

const answerPrompt = `
### CONTEXT
You are an assistant that can use tools via Model Context Protocol (MCP).

### TASK
Answer this question: "{{ .Question | trim }}"

### TOOL CALL RESULT
{{ .CallResult | trim }}

### ANSWER
Write the answer to the question based on the tool call result in Markdown format.
`

var (
	decisionTmpl = template.Must(template.New("decision").Funcs(sprig.TxtFuncMap()).Parse(decisionPrompt))
	answerTmpl   = template.Must(template.New("answer").Funcs(sprig.TxtFuncMap()).Parse(answerPrompt))
)

// DecisionPrompt renders the prompt asking the model to pick a tool.
func DecisionPrompt(question, toolSummary string) (string, error) {
	return render(decisionTmpl, map[string]string{
		"Question":    question,
		"ToolSummary": toolSummary,
	})
}

// AnswerPrompt renders the prompt asking the model to answer from a tool result.
func AnswerPrompt(question, callResult string) (string, error) {
	return render(answerTmpl, map[string]string{
		"Question":   question,
		"CallResult": callResult,
	})
}

// FormatCallResult renders a successful tool call for the answer prompt.
// Parameters are JSON-encoded so key order is stable.
func FormatCallResult(name string, params map[string]any, result domain.ToolCallResult) string {
	encoded, err := json.Marshal(params)
	if err != nil {
		encoded = []byte(fmt.Sprintf("%v", params))
	}
	return fmt.Sprintf("From calling the tool '%s' with parameters '%s', we got the following result:\n\n%s",
		name, encoded, result.String())
}

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return b.String(), nil
}
