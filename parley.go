// Package parley provides a high-level façade over the orchestration core
// (behavior contracts, tool registry, reasoning engines and sessions) for
// building policy-bounded, tool-grounded conversational assistants. Most
// applications interact with this package by:
//  1. Creating an Agent via New() with a contract and a reasoning engine
//  2. Registering one or more tools (RegisterTool)
//  3. Submitting user turns (SubmitTurn) and resetting sessions (ResetSession)
//
// The façade delegates the turn lifecycle to runner.Runner while keeping
// setup ergonomics concise. All defaults are safe for local development;
// production deployments typically supply a structured logger and tuned
// timeouts.
package parley

import (
	"context"
	"time"

	"github.com/parley-ai/parley/contract"
	"github.com/parley-ai/parley/core"
	"github.com/parley-ai/parley/engine"
	"github.com/parley-ai/parley/logging"
	"github.com/parley-ai/parley/runner"
	"github.com/parley-ai/parley/session"
	"github.com/parley-ai/parley/tool"
)

// Options configures the Agent instance.
type Options struct {
	// IterationBudget caps tool invocations per submitted turn.
	IterationBudget int

	// EngineTimeout bounds a single reasoning engine call.
	EngineTimeout time.Duration

	// ToolTimeout bounds a single tool invocation.
	ToolTimeout time.Duration

	// SessionStore defaults to an in-memory implementation.
	SessionStore core.Store

	// Logger defaults to a NoOp logger if nil.
	Logger logging.Logger
}

// Agent is the high-level façade aggregating the contract, the tool
// registry, the reasoning engine and the session store.
type Agent struct {
	opts     Options
	registry *tool.Registry
	runner   *runner.Runner
}

// New creates an Agent from a behavior contract and a reasoning engine.
// Any unset service is initialized with an in-memory implementation.
func New(c *contract.Contract, eng engine.Engine, tools []tool.Tool, optFns ...func(o *Options)) (*Agent, error) {
	opts := Options{
		IterationBudget: runner.DefaultIterationBudget,
		EngineTimeout:   runner.DefaultEngineTimeout,
		ToolTimeout:     runner.DefaultToolTimeout,
		SessionStore:    session.NewInMemoryStore(),
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	registry, err := tool.NewRegistry(tools...)
	if err != nil {
		return nil, err
	}

	r := runner.New(c, eng, registry, opts.SessionStore, func(o *runner.Options) {
		o.IterationBudget = opts.IterationBudget
		o.EngineTimeout = opts.EngineTimeout
		o.ToolTimeout = opts.ToolTimeout
		o.Logger = opts.Logger
	})

	return &Agent{opts: opts, registry: registry, runner: r}, nil
}

// RegisterTool adds a tool to the registry. The tool becomes visible to
// the reasoning engine on the next submitted turn.
func (a *Agent) RegisterTool(t tool.Tool) error {
	return a.registry.Register(t)
}

// SubmitTurn runs one full user turn against the session and returns the
// assistant's answer. An empty sessionID addresses the default session.
func (a *Agent) SubmitTurn(ctx context.Context, sessionID, message string) (*runner.Result, error) {
	return a.runner.SubmitTurn(ctx, sessionID, message)
}

// ResetSession clears the conversation log of the session, keeping its
// identity. Resetting an unknown session is a no-op.
func (a *Agent) ResetSession(sessionID string) string {
	return a.runner.ResetSession(sessionID)
}

// Runner exposes the underlying runner for transports that serve it
// directly, such as the HTTP server.
func (a *Agent) Runner() *runner.Runner {
	return a.runner
}
