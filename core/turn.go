package core

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a Turn as seen by the reasoning engine.
type Role string

const (
	// RoleUser marks input supplied by the caller.
	RoleUser Role = "user"
	// RoleAssistant marks answers produced by the reasoning engine.
	RoleAssistant Role = "assistant"
	// RoleTool marks tool invocation requests and their results.
	RoleTool Role = "tool"
)

// TurnKind distinguishes the four turn shapes that share the Turn struct.
// RoleTool covers two kinds (request and result), so Kind is stored
// explicitly instead of being inferred from which fields happen to be set.
type TurnKind string

const (
	// TurnUser is a caller utterance.
	TurnUser TurnKind = "user"
	// TurnAssistant is a final (or fallback) answer.
	TurnAssistant TurnKind = "assistant"
	// TurnToolRequest records that the engine asked for a tool invocation.
	TurnToolRequest TurnKind = "tool_request"
	// TurnToolResult records the outcome of a tool invocation.
	TurnToolResult TurnKind = "tool_result"
)

// Turn is one immutable record in a ConversationLog. Sequence and a
// normalized Timestamp are assigned by ConversationLog.Append; a Turn is
// never modified after it has been appended.
type Turn struct {
	Kind          TurnKind  `json:"kind"`
	Role          Role      `json:"role"`
	Content       string    `json:"content,omitempty"`
	ToolCallID    string    `json:"tool_call_id,omitempty"`
	ToolName      string    `json:"tool_name,omitempty"`
	ToolArguments string    `json:"tool_arguments,omitempty"`
	ToolResult    string    `json:"tool_result,omitempty"`
	Sequence      int       `json:"sequence"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewUserTurn builds an unappended user turn carrying the raw input text.
func NewUserTurn(text string) Turn {
	return Turn{Kind: TurnUser, Role: RoleUser, Content: text, Timestamp: time.Now().UTC()}
}

// NewAssistantTurn builds an unappended assistant turn with the answer text.
func NewAssistantTurn(text string) Turn {
	return Turn{Kind: TurnAssistant, Role: RoleAssistant, Content: text, Timestamp: time.Now().UTC()}
}

// NewToolRequestTurn records the engine requesting tool `name` with the
// serialized JSON arguments. callID correlates the request with its result;
// engines that do not supply one get a generated id.
func NewToolRequestTurn(callID, name, arguments string) Turn {
	if callID == "" {
		callID = NewID()
	}
	return Turn{
		Kind:          TurnToolRequest,
		Role:          RoleTool,
		ToolCallID:    callID,
		ToolName:      name,
		ToolArguments: arguments,
		Timestamp:     time.Now().UTC(),
	}
}

// NewToolResultTurn records the outcome of the tool invocation identified by
// callID. For failed invocations the result carries a standardized error
// string, never a raw error value.
func NewToolResultTurn(callID, name, result string) Turn {
	return Turn{
		Kind:       TurnToolResult,
		Role:       RoleTool,
		ToolCallID: callID,
		ToolName:   name,
		ToolResult: result,
		Timestamp:  time.Now().UTC(),
	}
}

// NewID generates a unique identifier used for tool call correlation,
// invocation tracking and generated session ids.
func NewID() string { return uuid.NewString() }
