package tool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-ai/parley/internal/util"
)

func echoTool(name string) Tool {
	return NewFunctionTool(name, "Echo the message back",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message": map[string]any{"type": "string"},
			},
			"required": []string{"message"},
		},
		func(_ context.Context, args map[string]any) (string, error) {
			return args["message"].(string), nil
		},
	)
}

// -------------------- Schema helpers --------------------

type lookupArgs struct {
	Key     string  `json:"key" description:"Policy document key"`
	Verbose *bool   `json:"verbose" description:"Optional flag"`
	Limit   float64 `json:"limit,omitempty"`
}

func TestSchemaFromStruct(t *testing.T) {
	schema := util.SchemaFromStruct(lookupArgs{})

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "key")
	assert.Contains(t, props, "verbose")
	assert.Contains(t, props, "limit")

	req, _ := schema["required"].([]string)
	assert.ElementsMatch(t, []string{"key"}, req, "pointer and omitempty fields are optional")
}

func TestValidateArguments(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"key": map[string]any{"type": "string", "enum": []string{"release-freeze", "incident-sev1"}},
		},
		"required": []any{"key"},
	}

	assert.NoError(t, util.ValidateArguments(map[string]any{"key": "release-freeze"}, schema))

	err := util.ValidateArguments(map[string]any{}, schema)
	var vErr *util.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "key", vErr.Field)

	err = util.ValidateArguments(map[string]any{"key": 7}, schema)
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "expected type string")

	err = util.ValidateArguments(map[string]any{"key": "other"}, schema)
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "enum")
}

// -------------------- Registry --------------------

func TestRegistry_DuplicateRejected(t *testing.T) {
	r, err := NewRegistry(echoTool("echo"))
	require.NoError(t, err)

	err = r.Register(echoTool("echo"))
	var dErr *DuplicateToolError
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, "echo", dErr.Tool)

	_, err = NewRegistry(echoTool("a"), echoTool("a"))
	assert.ErrorAs(t, err, &dErr)
}

func TestRegistry_ListSorted(t *testing.T) {
	r, err := NewRegistry(echoTool("zulu"), echoTool("alpha"), echoTool("mike"))
	require.NoError(t, err)

	var names []string
	for _, tl := range r.List() {
		names = append(names, tl.Name())
	}
	assert.Equal(t, []string{"alpha", "mike", "zulu"}, names)
}

func TestRegistry_InvokeSuccess(t *testing.T) {
	r, err := NewRegistry(echoTool("echo"))
	require.NoError(t, err)

	out, err := r.Invoke(context.Background(), "echo", `{"message":"hi"}`)
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}

func TestRegistry_InvokeUnknown(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	_, err = r.Invoke(context.Background(), "delete_everything", `{}`)
	var uErr *UnknownToolError
	require.ErrorAs(t, err, &uErr)
	assert.Equal(t, "delete_everything", uErr.Tool)
}

func TestRegistry_InvokeBadArguments(t *testing.T) {
	r, err := NewRegistry(echoTool("echo"))
	require.NoError(t, err)

	_, err = r.Invoke(context.Background(), "echo", `{not json`)
	var xErr *ToolExecutionError
	require.ErrorAs(t, err, &xErr)
	assert.Equal(t, "echo", xErr.Tool)

	// Missing required field fails validation inside FunctionTool.
	_, err = r.Invoke(context.Background(), "echo", `{}`)
	require.ErrorAs(t, err, &xErr)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestRegistry_InvokeToolFailureWrapped(t *testing.T) {
	boom := errors.New("backend unavailable")
	failing := NewFunctionTool("broken", "Always fails",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ map[string]any) (string, error) { return "", boom },
	)
	r, err := NewRegistry(failing)
	require.NoError(t, err)

	_, err = r.Invoke(context.Background(), "broken", "")
	var xErr *ToolExecutionError
	require.ErrorAs(t, err, &xErr)
	assert.ErrorIs(t, err, boom)
}

func TestRegistry_InvokeHonorsContext(t *testing.T) {
	slow := NewFunctionTool("slow", "Waits for cancellation",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, _ map[string]any) (string, error) {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(5 * time.Second):
				return "too late", nil
			}
		},
	)
	r, err := NewRegistry(slow)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = r.Invoke(ctx, "slow", "")
	var xErr *ToolExecutionError
	require.ErrorAs(t, err, &xErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// -------------------- FunctionTool from struct --------------------

func TestNewFunctionToolFromStruct(t *testing.T) {
	tl := NewFunctionToolFromStruct("lookup_faq", "Lookup a policy document", lookupArgs{},
		func(_ context.Context, args map[string]any) (string, error) {
			return "doc:" + args["key"].(string), nil
		},
	)

	out, err := tl.Call(context.Background(), map[string]any{"key": "release-freeze"})
	require.NoError(t, err)
	assert.Equal(t, "doc:release-freeze", out)

	_, err = tl.Call(context.Background(), map[string]any{})
	assert.Error(t, err)
}
