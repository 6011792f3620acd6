package tool

import (
	"context"

	"github.com/parley-ai/parley/internal/util"
)

// FunctionTool adapts a plain Go function into a Tool. It validates
// arguments against the declared schema before invoking the function, so
// implementations receive only schema-conforming input.
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(ctx context.Context, args map[string]any) (string, error)
}

// NewFunctionTool constructs a FunctionTool from an explicit schema.
//
// Example:
//
//	lookup := tool.NewFunctionTool(
//	  "lookup_faq",
//	  "Lookup an internal policy document by key.",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "key": map[string]any{"type": "string"},
//	    },
//	    "required": []string{"key"},
//	  },
//	  func(ctx context.Context, args map[string]any) (string, error) {
//	    return docs[args["key"].(string)], nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, args map[string]any) (string, error),
) *FunctionTool {
	return &FunctionTool{name: name, description: description, parameters: parameters, fn: fn}
}

// NewFunctionToolFromStruct derives the parameter schema from a struct's
// json and description tags, equivalent to util.SchemaFromStruct.
func NewFunctionToolFromStruct(
	name, description string,
	argsType any,
	fn func(ctx context.Context, args map[string]any) (string, error),
) *FunctionTool {
	return NewFunctionTool(name, description, util.SchemaFromStruct(argsType), fn)
}

// Name returns the unique tool name.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the capability summary shown to the engine.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the declared argument schema.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates args against the schema then invokes the wrapped function.
// Validation failures surface as *ValidationError; the Registry wraps both
// validation and function errors into *ToolExecutionError.
func (t *FunctionTool) Call(ctx context.Context, args map[string]any) (string, error) {
	if err := util.ValidateArguments(args, t.parameters); err != nil {
		return "", err
	}
	return t.fn(ctx, args)
}
