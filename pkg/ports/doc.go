/*
Package ports defines the driven ports (interfaces) for the toolflow engine.

These interfaces decouple the orchestration stages from concrete adapters, so the same
flow runs against real tool servers and language models or against test doubles.

# Key Interfaces

  - Completer: the text-completion collaborator (Gemini, Claude, OpenAI, fakes).
  - Connector / ToolSource: opens tool servers and exchanges list/call requests.
  - AnswerSink: persists the final answer (file, Redis, console).
  - ErrorSink: surfaces tool failures to the operator.
*/
package ports
