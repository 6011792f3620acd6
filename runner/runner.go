// Package runner implements the orchestration loop: the state machine that
// turns one user utterance into a grounded answer by composing the behavior
// contract, the conversation log and the tool registry into reasoning
// engine requests, executing requested tools, and folding results back
// into history until a final answer or a stop condition.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/parley-ai/parley/contract"
	"github.com/parley-ai/parley/core"
	"github.com/parley-ai/parley/engine"
	"github.com/parley-ai/parley/logging"
	"github.com/parley-ai/parley/tool"
)

// State names the loop's position for logging and result reporting.
type State string

const (
	// StateAwaitingInput is the entry state: resolve the session, append
	// the user turn.
	StateAwaitingInput State = "AWAITING_INPUT"
	// StateDeciding is an engine call with the current history snapshot.
	StateDeciding State = "DECIDING"
	// StateActing is a tool invocation for the engine's last request.
	StateActing State = "ACTING"
	// StateComplete is the terminal success state.
	StateComplete State = "COMPLETE"
	// StateFailed is the terminal infrastructure-failure state.
	StateFailed State = "FAILED"
)

// FailureReason classifies why a turn stopped short of a engine-authored
// answer. IterationLimitExceeded is recovered inside the loop (the caller
// still gets an answer, the contract fallback); it never escapes as an
// error.
type FailureReason string

const (
	// ReasonIterationLimitExceeded means the tool budget ran out.
	ReasonIterationLimitExceeded FailureReason = "IterationLimitExceeded"
)

// Defaults applied by New when the corresponding option is unset.
const (
	DefaultIterationBudget = 5
	DefaultEngineTimeout   = 30 * time.Second
	DefaultToolTimeout     = 15 * time.Second
)

// UnknownToolResult is the standardized tool-result text recorded when the
// engine requests a tool absent from the registry. The engine sees this in
// the next snapshot and may recover with a corrected request.
func UnknownToolResult(name string) string {
	return fmt.Sprintf("error: tool %q is not available", name)
}

// FailedToolResult is the standardized tool-result text recorded when a
// registered tool fails or times out. Raw error values never enter the log.
func FailedToolResult(name string) string {
	return fmt.Sprintf("error: tool %q failed to execute", name)
}

// Options configure a Runner.
type Options struct {
	// IterationBudget caps tool invocations per submitted turn. When the
	// engine still wants a tool past the cap, the loop answers with the
	// contract's fallback text instead.
	IterationBudget int
	// EngineTimeout bounds each reasoning engine call.
	EngineTimeout time.Duration
	// ToolTimeout bounds each tool invocation.
	ToolTimeout time.Duration
	// Logger receives structured loop events. Defaults to NoOp.
	Logger logging.Logger
}

// Result reports the outcome of one submitted turn.
type Result struct {
	SessionID string
	Answer    string
	// Rounds is the number of tool invocations performed.
	Rounds int
	// LimitHit is true when Answer is the contract fallback because the
	// iteration budget ran out.
	LimitHit bool
}

// Runner drives the plan, act, observe loop for an agent instance.
// The contract and engine are read-only after construction and the
// registry guards its own state, so a Runner is safe for concurrent use
// across sessions.
type Runner struct {
	contract *contract.Contract
	engine   engine.Engine
	registry *tool.Registry
	store    core.Store

	rendered string

	iterationBudget int
	engineTimeout   time.Duration
	toolTimeout     time.Duration
	logger          logging.Logger
}

// New wires a Runner from its four collaborators.
func New(
	c *contract.Contract,
	eng engine.Engine,
	registry *tool.Registry,
	store core.Store,
	optFns ...func(o *Options),
) *Runner {
	opts := Options{
		IterationBudget: DefaultIterationBudget,
		EngineTimeout:   DefaultEngineTimeout,
		ToolTimeout:     DefaultToolTimeout,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Runner{
		contract:        c,
		engine:          eng,
		registry:        registry,
		store:           store,
		rendered:        c.Render(),
		iterationBudget: opts.IterationBudget,
		engineTimeout:   opts.EngineTimeout,
		toolTimeout:     opts.ToolTimeout,
		logger:          opts.Logger,
	}
}

// SubmitTurn processes one user utterance for the given session and
// returns the answer the user saw.
//
// Turn lifecycle: AWAITING_INPUT -> DECIDING -> (ACTING -> DECIDING)* ->
// COMPLETE, with FAILED reachable from any non-terminal state.
//
// An empty sessionID selects core.DefaultSessionID. A concurrent turn for
// the same session is rejected with *core.SessionBusyError. Infrastructure
// failures (*engine.ReasoningUnavailableError, context cancellation)
// surface as errors; content-boundary outcomes, including iteration budget
// exhaustion, are answers. Turns already appended are never rolled back on
// cancellation, so a retried turn observes accurate history instead of
// silently repeating a side-effecting tool call.
func (r *Runner) SubmitTurn(ctx context.Context, sessionID, input string) (*Result, error) {
	if sessionID == "" {
		sessionID = core.DefaultSessionID
	}

	release, err := r.store.Acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := r.store.ResolveOrCreate(sessionID)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	invocationID := core.NewID()
	r.logger.Info("runner.turn.start",
		"session_id", sessionID,
		"invocation_id", invocationID,
		"state", StateAwaitingInput,
	)

	sess.Log.Append(core.NewUserTurn(input))
	sess.Touch()

	rounds := 0
	for {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("runner.turn.cancelled", "session_id", sessionID, "invocation_id", invocationID, "state", StateFailed)
			return nil, err
		}

		decision, err := r.decide(ctx, sess)
		if err != nil {
			r.logger.Error("runner.engine.unavailable",
				"session_id", sessionID,
				"invocation_id", invocationID,
				"state", StateFailed,
				"error", err.Error(),
			)
			return nil, err
		}

		switch decision.Kind {
		case engine.DecisionFinalAnswer:
			sess.Log.Append(core.NewAssistantTurn(decision.Answer))
			sess.Touch()
			r.logger.Info("runner.turn.complete",
				"session_id", sessionID,
				"invocation_id", invocationID,
				"state", StateComplete,
				"rounds", rounds,
			)
			return &Result{SessionID: sessionID, Answer: decision.Answer, Rounds: rounds}, nil

		case engine.DecisionToolCall:
			if rounds >= r.iterationBudget {
				// The user sees the contract fallback, never raw engine
				// output, and the log records exactly what was returned.
				fallback := r.contract.Fallback()
				sess.Log.Append(core.NewAssistantTurn(fallback))
				sess.Touch()
				r.logger.Warn("runner.turn.budget_exhausted",
					"session_id", sessionID,
					"invocation_id", invocationID,
					"reason", ReasonIterationLimitExceeded,
					"rounds", rounds,
				)
				return &Result{SessionID: sessionID, Answer: fallback, Rounds: rounds, LimitHit: true}, nil
			}

			r.act(ctx, sess, invocationID, decision.ToolCall)
			rounds++
			// OBSERVING is implicit: the next decide() snapshot already
			// contains the tool result turn.

		default:
			err := &engine.ReasoningUnavailableError{
				Provider: r.engine.Info().Provider,
				Err:      fmt.Errorf("malformed decision kind %q", decision.Kind),
			}
			r.logger.Error("runner.engine.malformed_decision", "session_id", sessionID, "invocation_id", invocationID, "error", err.Error())
			return nil, err
		}
	}
}

// decide takes a snapshot and performs one engine call under the engine
// timeout. Every failure is normalized to *engine.ReasoningUnavailableError.
func (r *Runner) decide(ctx context.Context, sess *core.Session) (*engine.Decision, error) {
	if r.engineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.engineTimeout)
		defer cancel()
	}

	req := engine.Request{
		Instructions: r.rendered,
		History:      sess.Log.Snapshot(),
		Tools:        r.toolCatalog(),
	}

	decision, err := r.engine.Complete(ctx, req)
	if err != nil {
		var rErr *engine.ReasoningUnavailableError
		if !errors.As(err, &rErr) {
			err = &engine.ReasoningUnavailableError{Provider: r.engine.Info().Provider, Err: err}
		}
		return nil, err
	}

	return decision, nil
}

// toolCatalog builds the definitions handed to the engine from the current
// registry contents, so tools registered after construction are visible on
// the next turn.
func (r *Runner) toolCatalog() []engine.ToolDefinition {
	tools := r.registry.List()
	defs := make([]engine.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, engine.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// act records the tool request, invokes the registry under the tool
// timeout, and records exactly one result turn, standardized on failure.
// Tool failures are recoverable: the engine observes the error text in the
// next round and may retry with corrected arguments.
func (r *Runner) act(ctx context.Context, sess *core.Session, invocationID string, call *engine.ToolCall) {
	request := sess.Log.Append(core.NewToolRequestTurn(call.ID, call.Name, call.Arguments))
	sess.Touch()

	toolCtx := ctx
	if r.toolTimeout > 0 {
		var cancel context.CancelFunc
		toolCtx, cancel = context.WithTimeout(ctx, r.toolTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := r.registry.Invoke(toolCtx, call.Name, call.Arguments)
	duration := time.Since(start)

	if err != nil {
		var unknown *tool.UnknownToolError
		text := FailedToolResult(call.Name)
		if errors.As(err, &unknown) {
			text = UnknownToolResult(call.Name)
		}
		r.logger.Warn("runner.tool.failed",
			"invocation_id", invocationID,
			"tool", call.Name,
			"duration_ms", duration.Milliseconds(),
			"error", err.Error(),
		)
		sess.Log.Append(core.NewToolResultTurn(request.ToolCallID, call.Name, text))
		sess.Touch()
		return
	}

	r.logger.Info("runner.tool.executed",
		"invocation_id", invocationID,
		"tool", call.Name,
		"duration_ms", duration.Milliseconds(),
	)
	sess.Log.Append(core.NewToolResultTurn(request.ToolCallID, call.Name, result))
	sess.Touch()
}

// ResetSession discards the session's log and returns the resolved id.
// Resetting twice equals resetting once.
func (r *Runner) ResetSession(sessionID string) string {
	if sessionID == "" {
		sessionID = core.DefaultSessionID
	}
	r.store.Reset(sessionID)
	r.logger.Info("runner.session.reset", "session_id", sessionID)
	return sessionID
}
