package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-ai/parley/core"
)

var _ Engine = (*ScriptedEngine)(nil)

func TestScriptedEngine_ReplaysInOrder(t *testing.T) {
	e := NewScriptedEngine().
		Expect(RequestTool("call-1", "lookup_faq", `{"key":"release-freeze"}`)).
		Expect(FinalAnswer("done"))

	d, err := e.Complete(context.Background(), Request{})
	require.NoError(t, err)
	require.Equal(t, DecisionToolCall, d.Kind)
	assert.Equal(t, "lookup_faq", d.ToolCall.Name)

	d, err = e.Complete(context.Background(), Request{})
	require.NoError(t, err)
	require.Equal(t, DecisionFinalAnswer, d.Kind)
	assert.Equal(t, "done", d.Answer)

	assert.Equal(t, 2, e.Calls())
}

func TestScriptedEngine_RecordsRequests(t *testing.T) {
	e := NewScriptedEngine().Expect(FinalAnswer("ok"))

	req := Request{
		Instructions: "## PERSONA\nassistant",
		History:      []core.Turn{core.NewUserTurn("hi")},
		Tools:        []ToolDefinition{{Name: "lookup_faq"}},
	}
	_, err := e.Complete(context.Background(), req)
	require.NoError(t, err)

	got := e.Requests()
	require.Len(t, got, 1)
	assert.Equal(t, req.Instructions, got[0].Instructions)
	require.Len(t, got[0].History, 1)
	assert.Equal(t, core.TurnUser, got[0].History[0].Kind)
}

func TestScriptedEngine_ErrorStep(t *testing.T) {
	boom := &ReasoningUnavailableError{Provider: "test", Err: errors.New("quota")}
	e := NewScriptedEngine().ExpectError(boom)

	_, err := e.Complete(context.Background(), Request{})
	var rErr *ReasoningUnavailableError
	require.ErrorAs(t, err, &rErr)
	assert.Equal(t, "test", rErr.Provider)
}

func TestScriptedEngine_CancelledContext(t *testing.T) {
	e := NewScriptedEngine().Expect(FinalAnswer("never"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Complete(ctx, Request{})
	var rErr *ReasoningUnavailableError
	require.ErrorAs(t, err, &rErr)
	assert.ErrorIs(t, err, context.Canceled)
}
