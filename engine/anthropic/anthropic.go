// Package anthropic implements engine.Engine on the Anthropic Messages API
// with tool use. Turn history maps onto alternating user/assistant messages
// with tool_use and tool_result content blocks.
package anthropic

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/parley-ai/parley/core"
	"github.com/parley-ai/parley/engine"
)

// Options configure the Anthropic engine adapter.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Engine wraps the Anthropic Messages API behind engine.Engine.
type Engine struct {
	client *anthropic.Client
	opts   Options
}

var _ engine.Engine = (*Engine)(nil)

// New creates an adapter using the official client. An empty APIKey falls
// back to the SDK's environment lookup.
func New(optFns ...func(o *Options)) *Engine {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Engine{client: &client, opts: opts}
}

// NewFromClient creates an adapter from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Engine {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.1,
		MaxTokens:   600,
	}
}

// Complete performs one message turn. API failures surface as
// *engine.ReasoningUnavailableError.
func (e *Engine) Complete(ctx context.Context, req engine.Request) (*engine.Decision, error) {
	params := anthropic.MessageNewParams{
		Model:       e.opts.Model,
		Messages:    buildMessages(req.History),
		MaxTokens:   e.opts.MaxTokens,
		Temperature: anthropic.Float(e.opts.Temperature),
		System:      []anthropic.TextBlockParam{{Text: req.Instructions}},
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	resp, err := e.client.Messages.New(ctx, params)
	if err != nil {
		return nil, &engine.ReasoningUnavailableError{Provider: "anthropic", Err: err}
	}

	var answer string
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			answer += block.AsText().Text
		case "tool_use":
			toolBlock := block.AsToolUse()
			args := ""
			if toolBlock.Input != nil {
				if raw, err := json.Marshal(toolBlock.Input); err == nil {
					args = string(raw)
				}
			}
			return engine.RequestTool(toolBlock.ID, toolBlock.Name, args), nil
		}
	}

	return engine.FinalAnswer(answer), nil
}

// Info implements engine.Engine.
func (e *Engine) Info() engine.Info {
	return engine.Info{Name: string(e.opts.Model), Provider: "anthropic", SupportsTools: true}
}

// buildMessages converts turn history into Messages API form. A tool
// request becomes an assistant message carrying a tool_use block; the
// matching result becomes a user message carrying a tool_result block,
// which is the sequencing the API requires.
func buildMessages(history []core.Turn) []anthropic.MessageParam {
	var messages []anthropic.MessageParam

	for _, turn := range history {
		switch turn.Kind {
		case core.TurnUser:
			if turn.Content != "" {
				messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Content)))
			}
		case core.TurnAssistant:
			if turn.Content != "" {
				messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(turn.Content)))
			}
		case core.TurnToolRequest:
			var input any
			if turn.ToolArguments != "" {
				if err := json.Unmarshal([]byte(turn.ToolArguments), &input); err != nil {
					input = turn.ToolArguments
				}
			}
			messages = append(messages, anthropic.NewAssistantMessage(
				anthropic.NewToolUseBlock(turn.ToolCallID, input, turn.ToolName),
			))
		case core.TurnToolResult:
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(turn.ToolCallID, turn.ToolResult, false),
			))
		}
	}

	return messages
}

func buildTools(defs []engine.ToolDefinition) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, len(defs))

	for i, def := range defs {
		inputSchema := anthropic.ToolInputSchemaParam{Type: constant.Object("object")}
		if def.Parameters != nil {
			if properties, ok := def.Parameters["properties"]; ok {
				inputSchema.Properties = properties
			}
			if required, ok := def.Parameters["required"]; ok {
				inputSchema.Required = requiredStrings(required)
			}
		}

		tools[i] = anthropic.ToolUnionParamOfTool(inputSchema, def.Name)
		if tools[i].OfTool != nil && def.Description != "" {
			tools[i].OfTool.Description = anthropic.String(def.Description)
		}
	}

	return tools
}

func requiredStrings(required any) []string {
	switch req := required.(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
