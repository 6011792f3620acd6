// Package openai implements engine.Engine on the OpenAI Chat Completions
// API with function calling. It adapts the conversation log's turn shapes
// into the SDK's message format and the completion back into a Decision.
package openai

import (
	"context"

	"github.com/openai/openai-go"

	"github.com/parley-ai/parley/core"
	"github.com/parley-ai/parley/engine"
)

// Options configure the OpenAI engine adapter. The field set intentionally
// mirrors a small subset of Chat Completion parameters; extend via
// functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Engine wraps the OpenAI Chat Completions API behind engine.Engine.
type Engine struct {
	client *openai.Client
	opts   Options
}

var _ engine.Engine = (*Engine)(nil)

// New creates an adapter using the default client (credentials from the
// environment).
func New(optFns ...func(o *Options)) *Engine {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates an adapter from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.1,
		MaxCompletionTokens: 600,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{client: client, opts: opts}
}

// Complete performs one non-streaming chat completion. Transport failures
// and empty responses surface as *engine.ReasoningUnavailableError.
func (e *Engine) Complete(ctx context.Context, req engine.Request) (*engine.Decision, error) {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req),
		Model:               e.opts.Model,
		Temperature:         openai.Float(e.opts.Temperature),
		MaxCompletionTokens: openai.Int(e.opts.MaxCompletionTokens),
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	resp, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, &engine.ReasoningUnavailableError{Provider: "openai", Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &engine.ReasoningUnavailableError{Provider: "openai", Err: errNoChoices}
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		// One tool per round; additional parallel calls are ignored and the
		// engine re-requests them on the next round if still needed.
		tc := msg.ToolCalls[0]
		return engine.RequestTool(tc.ID, tc.Function.Name, tc.Function.Arguments), nil
	}

	return engine.FinalAnswer(msg.Content), nil
}

// Info implements engine.Engine.
func (e *Engine) Info() engine.Info {
	return engine.Info{Name: e.opts.Model, Provider: "openai", SupportsTools: true}
}

// buildMessages converts the rendered contract and turn history into chat
// messages. Tool request turns become assistant tool_calls entries, tool
// result turns become tool role messages correlated by call id.
func buildMessages(req engine.Request) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+1)
	messages = append(messages, openai.SystemMessage(req.Instructions))

	for _, turn := range req.History {
		switch turn.Kind {
		case core.TurnUser:
			messages = append(messages, openai.UserMessage(turn.Content))
		case core.TurnAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		case core.TurnToolRequest:
			messages = append(messages, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Role: "assistant",
					ToolCalls: []openai.ChatCompletionMessageToolCallParam{{
						ID:   turn.ToolCallID,
						Type: "function",
						Function: openai.ChatCompletionMessageToolCallFunctionParam{
							Name:      turn.ToolName,
							Arguments: turn.ToolArguments,
						},
					}},
				},
			})
		case core.TurnToolResult:
			messages = append(messages, openai.ToolMessage(turn.ToolResult, turn.ToolCallID))
		}
	}

	return messages
}

func buildTools(defs []engine.ToolDefinition) []openai.ChatCompletionToolParam {
	tools := make([]openai.ChatCompletionToolParam, len(defs))
	for i, def := range defs {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  def.Parameters,
			},
		}
	}
	return tools
}

type noChoicesError struct{}

func (noChoicesError) Error() string { return "no choices returned" }

var errNoChoices = noChoicesError{}
