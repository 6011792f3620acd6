// Package tool implements the capability table an agent may call: the Tool
// interface, a schema-validating FunctionTool adapter, and the Registry
// that closes the set of callable tools at construction time.
package tool

import (
	"context"
	"fmt"

	"github.com/parley-ai/parley/internal/util"
)

// Tool is a named, registered capability invocable with structured
// arguments, returning text or failing.
//
// Implementations must be safe for concurrent use and must not mutate
// conversation state; only the orchestration loop appends turns. The loop
// imposes invocation timeouts through ctx, so long-running tools should
// honor cancellation.
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case).
	Name() string

	// Description summarizes the capability for the reasoning engine.
	Description() string

	// Parameters returns a JSON schema describing the accepted arguments.
	Parameters() map[string]any

	// Call executes the tool with already-decoded arguments.
	Call(ctx context.Context, args map[string]any) (string, error)
}

// ValidationError re-exports the schema validation error for callers that
// want to inspect which argument failed.
type ValidationError = util.ValidationError

// DuplicateToolError reports a second registration under an existing name.
// Construction-time only; fatal at startup.
type DuplicateToolError struct {
	Tool string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.Tool)
}

// UnknownToolError reports an invocation of a name absent from the
// registry. The orchestration loop treats it as recoverable: the engine's
// tool-usage rules are advisory, so the loop must defend against requests
// for nonexistent tools.
type UnknownToolError struct {
	Tool string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Tool)
}

// ToolExecutionError wraps a failure inside a registered tool, including
// argument decode failures, validation failures and timeouts.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q execution failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }
