package engine

import (
	"context"
	"sync"
)

// ScriptedEngine is a deterministic in-memory Engine for tests and
// examples. It replays a fixed sequence of decisions (or errors) and
// records every request it receives so tests can assert on the rendered
// contract, history snapshots and tool catalogs the loop produced.
type ScriptedEngine struct {
	mu       sync.Mutex
	steps    []scriptedStep
	next     int
	requests []Request
}

type scriptedStep struct {
	decision *Decision
	err      error
}

var _ Engine = (*ScriptedEngine)(nil)

// NewScriptedEngine creates an engine with an empty script. Use Expect /
// ExpectError to enqueue steps in order.
func NewScriptedEngine() *ScriptedEngine {
	return &ScriptedEngine{}
}

// Expect enqueues a decision to be returned by the next Complete call.
func (e *ScriptedEngine) Expect(d *Decision) *ScriptedEngine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.steps = append(e.steps, scriptedStep{decision: d})
	return e
}

// ExpectError enqueues a failure for the next Complete call.
func (e *ScriptedEngine) ExpectError(err error) *ScriptedEngine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.steps = append(e.steps, scriptedStep{err: err})
	return e
}

// Complete replays the next scripted step. Past the end of the script it
// answers with a fixed final answer, so budget tests can script unlimited
// tool requests by re-enqueueing in a loop instead.
func (e *ScriptedEngine) Complete(ctx context.Context, req Request) (*Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ReasoningUnavailableError{Provider: "scripted", Err: err}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.requests = append(e.requests, req)

	if e.next >= len(e.steps) {
		return FinalAnswer("scripted engine: script exhausted"), nil
	}

	step := e.steps[e.next]
	e.next++

	if step.err != nil {
		return nil, step.err
	}
	return step.decision, nil
}

// Info implements Engine.
func (e *ScriptedEngine) Info() Info {
	return Info{Name: "scripted", Provider: "test", SupportsTools: true}
}

// Requests returns a copy of every request received so far, in order.
func (e *ScriptedEngine) Requests() []Request {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Request, len(e.requests))
	copy(out, e.requests)
	return out
}

// Calls returns how many times Complete has been invoked.
func (e *ScriptedEngine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.requests)
}
