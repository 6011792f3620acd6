// Package engine defines the sole abstraction boundary to the external
// text-generation capability. An Engine maps a rendered behavior contract,
// a history snapshot and a tool catalog to a Decision: either a final
// answer or a single tool invocation request. Adapters must not retain
// state between calls; all context travels in the Request, which is what
// makes agent behavior reproducible from its three inputs alone.
package engine

import (
	"context"
	"fmt"

	"github.com/parley-ai/parley/core"
)

// ToolDefinition declaratively exposes a callable tool to the engine.
// Parameters is a minimal JSON Schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request carries everything an engine call may depend on.
type Request struct {
	// Instructions is the rendered behavior contract, composed verbatim.
	Instructions string
	// History is a point-in-time snapshot of the conversation log.
	History []core.Turn
	// Tools is the catalog of callable capabilities, sorted by name.
	Tools []ToolDefinition
}

// DecisionKind discriminates the two Decision variants.
type DecisionKind string

const (
	// DecisionFinalAnswer means the engine produced the answer text.
	DecisionFinalAnswer DecisionKind = "final_answer"
	// DecisionToolCall means the engine requests one tool invocation.
	DecisionToolCall DecisionKind = "tool_call"
)

// ToolCall identifies the tool the engine wants invoked and its serialized
// JSON arguments. ID correlates the request with its result turn.
type ToolCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// Decision is the engine's verdict for one DECIDING step.
type Decision struct {
	Kind     DecisionKind
	Answer   string    // set when Kind == DecisionFinalAnswer
	ToolCall *ToolCall // set when Kind == DecisionToolCall
}

// FinalAnswer builds a final-answer decision.
func FinalAnswer(text string) *Decision {
	return &Decision{Kind: DecisionFinalAnswer, Answer: text}
}

// RequestTool builds a tool-call decision.
func RequestTool(id, name, arguments string) *Decision {
	return &Decision{Kind: DecisionToolCall, ToolCall: &ToolCall{ID: id, Name: name, Arguments: arguments}}
}

// Info describes an engine implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Engine is the uniform request/response contract over the external
// text-generation capability.
type Engine interface {
	// Complete performs one reasoning step. Transport, quota and timeout
	// failures are reported as *ReasoningUnavailableError; adapters retry
	// at most their own configured budget and never silently beyond it.
	Complete(ctx context.Context, req Request) (*Decision, error)

	// Info returns metadata about the engine implementation.
	Info() Info
}

// ReasoningUnavailableError reports an infrastructure failure of the
// reasoning capability. It always surfaces to the caller, distinct from
// content-boundary fallbacks.
type ReasoningUnavailableError struct {
	Provider string
	Err      error
}

func (e *ReasoningUnavailableError) Error() string {
	return fmt.Sprintf("reasoning engine %q unavailable: %v", e.Provider, e.Err)
}

func (e *ReasoningUnavailableError) Unwrap() error { return e.Err }
