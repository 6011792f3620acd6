package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-ai/parley/contract"
	"github.com/parley-ai/parley/core"
	"github.com/parley-ai/parley/engine"
	"github.com/parley-ai/parley/runner"
	"github.com/parley-ai/parley/session"
	"github.com/parley-ai/parley/tool"
)

func testRunner(t *testing.T, eng engine.Engine) *runner.Runner {
	t.Helper()

	c, err := contract.New(contract.Config{
		Persona:           "You are the internal policy assistant.",
		Scope:             "Release freeze and SEV1 incidents only.",
		Refusal:           "I can only answer questions about release freeze and SEV1 incidents.",
		ToolUsageRules:    "Always call lookup_faq before answering.",
		ResponseFormat:    "End every answer with: Source: <key>",
		UncertaintyPolicy: "Ask one clarifying question on ambiguity.",
		Fallback:          "Policy not found. Please check with your Release Manager.",
	})
	require.NoError(t, err)

	lookup := tool.NewFunctionTool("lookup_faq", "Lookup a policy document.",
		map[string]any{
			"type":       "object",
			"properties": map[string]any{"key": map[string]any{"type": "string"}},
			"required":   []string{"key"},
		},
		func(_ context.Context, _ map[string]any) (string, error) {
			return "The freeze starts Monday.", nil
		},
	)
	reg, err := tool.NewRegistry(lookup)
	require.NoError(t, err)

	return runner.New(c, eng, reg, session.NewInMemoryStore())
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAsk_Success(t *testing.T) {
	eng := engine.NewScriptedEngine().
		Expect(engine.RequestTool("call-1", "lookup_faq", `{"key":"release-freeze"}`)).
		Expect(engine.FinalAnswer("The freeze starts Monday. Source: release-freeze"))

	srv := New(testRunner(t, eng))
	rec := postJSON(t, srv.Router(), "/ask", AskRequest{
		Question:  "When does the freeze start?",
		SessionID: "s1",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "The freeze starts Monday. Source: release-freeze", resp.Answer)
	assert.Equal(t, "s1", resp.SessionID)
	assert.Equal(t, 1, resp.Rounds)
}

func TestAsk_DefaultSession(t *testing.T) {
	eng := engine.NewScriptedEngine().Expect(engine.FinalAnswer("ok"))
	srv := New(testRunner(t, eng))

	rec := postJSON(t, srv.Router(), "/ask", AskRequest{Question: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "default", resp.SessionID)
}

func TestAsk_EmptyQuestion(t *testing.T) {
	srv := New(testRunner(t, engine.NewScriptedEngine()))
	rec := postJSON(t, srv.Router(), "/ask", AskRequest{Question: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAsk_InvalidBody(t *testing.T) {
	srv := New(testRunner(t, engine.NewScriptedEngine()))

	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAsk_EngineUnavailableMapsTo503(t *testing.T) {
	eng := engine.NewScriptedEngine().ExpectError(&engine.ReasoningUnavailableError{
		Provider: "test",
		Err:      errors.New("quota exhausted"),
	})
	srv := New(testRunner(t, eng))

	rec := postJSON(t, srv.Router(), "/ask", AskRequest{Question: "hi", SessionID: "s1"})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotContains(t, resp["error"], "quota", "provider errors stay out of client responses")
}

func TestReset(t *testing.T) {
	eng := engine.NewScriptedEngine().Expect(engine.FinalAnswer("ok"))
	srv := New(testRunner(t, eng))
	router := srv.Router()

	rec := postJSON(t, router, "/ask", AskRequest{Question: "hello", SessionID: "s1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, router, "/reset", ResetRequest{SessionID: "s1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ResetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "reset", resp.Status)
	assert.Equal(t, "s1", resp.SessionID)
}

func TestReset_EmptyBodyResetsDefaultSession(t *testing.T) {
	srv := New(testRunner(t, engine.NewScriptedEngine()))

	req := httptest.NewRequest(http.MethodPost, "/reset", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ResetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "reset", resp.Status)
	assert.Equal(t, "default", resp.SessionID)
}

func TestReset_UnknownSessionIsOK(t *testing.T) {
	srv := New(testRunner(t, engine.NewScriptedEngine()))
	rec := postJSON(t, srv.Router(), "/reset", ResetRequest{SessionID: "never-seen"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWriteError_SessionBusyMapsTo409(t *testing.T) {
	srv := New(testRunner(t, engine.NewScriptedEngine()))
	rec := httptest.NewRecorder()
	srv.writeError(rec, &core.SessionBusyError{SessionID: "s1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv := New(testRunner(t, engine.NewScriptedEngine()))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
