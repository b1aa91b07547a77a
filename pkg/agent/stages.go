package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/toolflow/pkg/decision"
	"github.com/aretw0/toolflow/pkg/domain"
	"github.com/aretw0/toolflow/pkg/flow"
	"github.com/aretw0/toolflow/pkg/ports"
)

// Stage identifiers.
const (
	StageDiscover    flow.StageID = "discover"
	StageDecide      flow.StageID = "decide"
	StageExecute     flow.StageID = "execute"
	StageWriteAnswer flow.StageID = "write_answer"
	StageHandleError flow.StageID = "handle_error"
)

// Outcomes returned by the stages.
const (
	OutcomeDecide       flow.Outcome = "decide"
	OutcomeExecute      flow.Outcome = "execute"
	OutcomeDecodeFailed flow.Outcome = "decode_failed"
	OutcomeWriteAnswer  flow.Outcome = "write_answer"
	OutcomeHandleError  flow.Outcome = "handle_error"
	OutcomeDone         flow.Outcome = "done"
)

// Discover opens every configured server and builds the tool catalog.
// Reads Servers; writes Catalog and ToolSummary.
type Discover struct {
	Toolbox *Toolbox
}

func (Discover) ID() flow.StageID         { return StageDiscover }
func (Discover) Outcomes() []flow.Outcome { return []flow.Outcome{OutcomeDecide} }

func (d Discover) Prepare(ctx context.Context, s *Shared) ([]domain.LaunchSpec, error) {
	if len(s.Servers) == 0 {
		return nil, errors.New("no tool servers configured")
	}
	return s.Servers, nil
}

func (d Discover) Execute(ctx context.Context, specs []domain.LaunchSpec) (domain.ToolCatalog, error) {
	return d.Toolbox.Discover(ctx, specs)
}

func (d Discover) Finalize(ctx context.Context, s *Shared, _ []domain.LaunchSpec, catalog domain.ToolCatalog) (flow.Outcome, error) {
	s.Catalog = catalog
	s.ToolSummary = catalog.Summary()
	return OutcomeDecide, nil
}

// Decide asks the model which tool to call.
// Reads Question and ToolSummary; writes ToolName, Parameters, Reason, Thinking and
// RawResponse, or DecodeErr when the reply has no usable decision block.
type Decide struct {
	Completer ports.Completer
	Logger    *slog.Logger
}

func (Decide) ID() flow.StageID         { return StageDecide }
func (Decide) Outcomes() []flow.Outcome { return []flow.Outcome{OutcomeExecute, OutcomeDecodeFailed} }

func (d Decide) Prepare(ctx context.Context, s *Shared) (string, error) {
	return DecisionPrompt(s.Question, s.ToolSummary)
}

func (d Decide) Execute(ctx context.Context, prompt string) (string, error) {
	return d.Completer.Complete(ctx, prompt)
}

func (d Decide) Finalize(ctx context.Context, s *Shared, _ string, raw string) (flow.Outcome, error) {
	s.RawResponse = raw

	choice, err := decision.Decode(raw)
	if err != nil {
		var de *domain.DecodeError
		if !errors.As(err, &de) {
			return "", err
		}
		s.DecodeErr = de
		logger(d.Logger).Warn("could not decode tool decision", "error", de.Err, "raw", raw)
		return OutcomeDecodeFailed, nil
	}

	s.ToolName = choice.ToolName
	s.Parameters = choice.Parameters
	s.Reason = choice.Reason
	s.Thinking = choice.Thinking
	logger(d.Logger).Info("selected tool", "tool", choice.ToolName, "parameters", choice.Parameters)
	return OutcomeExecute, nil
}

type invocation struct {
	name   string
	params map[string]any
}

// Execute calls the chosen tool.
// Reads ToolName and Parameters; writes Result and either CallResult or ToolError.
type Execute struct {
	Toolbox *Toolbox
	Logger  *slog.Logger
}

func (Execute) ID() flow.StageID { return StageExecute }
func (Execute) Outcomes() []flow.Outcome {
	return []flow.Outcome{OutcomeWriteAnswer, OutcomeHandleError}
}

func (e Execute) Prepare(ctx context.Context, s *Shared) (invocation, error) {
	if s.ToolName == "" {
		return invocation{}, errors.New("no tool selected")
	}
	return invocation{name: s.ToolName, params: s.Parameters}, nil
}

func (e Execute) Execute(ctx context.Context, in invocation) (domain.ToolCallResult, error) {
	logger(e.Logger).Info("executing tool", "tool", in.name, "parameters", in.params)
	return e.Toolbox.CallTool(ctx, in.name, in.params)
}

func (e Execute) Finalize(ctx context.Context, s *Shared, in invocation, res domain.ToolCallResult) (flow.Outcome, error) {
	s.Result = res
	if res.IsError {
		s.ToolError = res.ErrorMessage
		logger(e.Logger).Warn("tool reported an error", "tool", in.name, "error", res.ErrorMessage)
		return OutcomeHandleError, nil
	}
	s.CallResult = FormatCallResult(in.name, in.params, res)
	return OutcomeWriteAnswer, nil
}

// WriteAnswer asks the model for the final answer and persists it.
// Reads Question and CallResult; writes Answer.
type WriteAnswer struct {
	Completer ports.Completer
	Sink      ports.AnswerSink
}

func (WriteAnswer) ID() flow.StageID         { return StageWriteAnswer }
func (WriteAnswer) Outcomes() []flow.Outcome { return []flow.Outcome{OutcomeDone} }

func (w WriteAnswer) Prepare(ctx context.Context, s *Shared) (string, error) {
	return AnswerPrompt(s.Question, s.CallResult)
}

func (w WriteAnswer) Execute(ctx context.Context, prompt string) (string, error) {
	return w.Completer.Complete(ctx, prompt)
}

func (w WriteAnswer) Finalize(ctx context.Context, s *Shared, _ string, answer string) (flow.Outcome, error) {
	s.Answer = answer
	if w.Sink != nil {
		if err := w.Sink.Write(ctx, answer); err != nil {
			return "", fmt.Errorf("persist answer: %w", err)
		}
	}
	return OutcomeDone, nil
}

// HandleError reports a tool failure to the operator.
// Reads ToolError.
type HandleError struct {
	Sink   ports.ErrorSink
	Logger *slog.Logger
}

func (HandleError) ID() flow.StageID         { return StageHandleError }
func (HandleError) Outcomes() []flow.Outcome { return []flow.Outcome{OutcomeDone} }

func (h HandleError) Prepare(ctx context.Context, s *Shared) (string, error) {
	return s.ToolError, nil
}

func (h HandleError) Execute(ctx context.Context, message string) (struct{}, error) {
	if h.Sink == nil {
		logger(h.Logger).Error("tool failed", "error", message)
		return struct{}{}, nil
	}
	return struct{}{}, h.Sink.Report(ctx, message)
}

func (h HandleError) Finalize(ctx context.Context, _ *Shared, _ string, _ struct{}) (flow.Outcome, error) {
	return OutcomeDone, nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}

var (
	_ flow.Stage[Shared, []domain.LaunchSpec, domain.ToolCatalog] = Discover{}
	_ flow.Stage[Shared, string, string]                          = Decide{}
	_ flow.Stage[Shared, invocation, domain.ToolCallResult]       = Execute{}
	_ flow.Stage[Shared, string, string]                          = WriteAnswer{}
	_ flow.Stage[Shared, string, struct{}]                        = HandleError{}
)
