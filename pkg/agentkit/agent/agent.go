package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tinselworks/elfagent/pkg/agentkit/provider"
	"github.com/tinselworks/elfagent/pkg/agentkit/tool"
	"github.com/tinselworks/elfagent/pkg/agentkit/types"
)

// Agent is one node of the orchestration graph. Run drives the node to
// completion and returns its final text response. Nodes that declare an
// output slot write their final response to it before returning, so a
// sequential successor never starts before the slot is durably written.
type Agent interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) (string, error)
}

// LLMAgent is a model-backed graph node: a fixed instruction, an
// optional set of tools, and an optional output slot. The instruction
// may reference output slots of earlier nodes as {slot_name}; the
// references are re-expanded from session state before every model
// call, so slots written by this agent's own tools are visible to its
// next iteration.
type LLMAgent struct {
	name          string
	description   string
	instruction   string
	outputKey     string
	model         provider.LanguageModel
	tools         []tool.Tool
	maxIterations int

	// transform post-processes the final response before it is stored
	// in the output slot (e.g. to enforce a JSON schema).
	transform func(string) string
}

// New builds an LLMAgent. Construction is side-effect-free and fails
// fast on a missing name or model.
func New(name string, opts ...Option) (*LLMAgent, error) {
	if name == "" {
		return nil, errors.New("agent name is required")
	}

	a := &LLMAgent{
		name:          name,
		maxIterations: 10,
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.model == nil {
		return nil, fmt.Errorf("agent %s: %w", name, types.ErrModelNotSet)
	}

	return a, nil
}

func (a *LLMAgent) Name() string        { return a.name }
func (a *LLMAgent) Description() string { return a.description }
func (a *LLMAgent) OutputKey() string   { return a.outputKey }
func (a *LLMAgent) Instruction() string { return a.instruction }
func (a *LLMAgent) Tools() []tool.Tool  { return a.tools }

func (a *LLMAgent) Run(ctx context.Context, inv *Invocation) (string, error) {
	base := inv.Session.History()
	base = append(base, inv.Transcript()...)

	if inv.UserContent != "" {
		base = append(base, types.Message{
			Role:      types.RoleUser,
			Content:   inv.UserContent,
			Timestamp: time.Now(),
		})
	}

	specs := make([]types.Tool, 0, len(a.tools))
	for _, t := range a.tools {
		specs = append(specs, types.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}

	var local []types.Message

	for iteration := 0; iteration < a.maxIterations; iteration++ {
		system := ExpandSlots(a.instruction, inv.Session)

		resp, err := a.model.Generate(ctx, provider.GenerateRequest{
			Messages: append(append([]types.Message{}, base...), local...),
			System:   system,
			Tools:    specs,
		})
		if err != nil {
			return "", fmt.Errorf("agent %s: %w", a.name, err)
		}

		if resp.Content != "" {
			inv.Emit(types.NewTextEvent(a.name, resp.Content))
		}

		if len(resp.ToolCalls) == 0 {
			return a.finish(inv, resp.Content), nil
		}

		local = append(local, types.Message{
			Role:      types.RoleAssistant,
			Author:    a.name,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
			Timestamp: time.Now(),
		})

		results, err := a.executeToolCalls(ctx, inv, resp.ToolCalls)
		if err != nil {
			return "", fmt.Errorf("agent %s: %w", a.name, err)
		}

		local = append(local, types.Message{
			Role:        types.RoleTool,
			ToolResults: results,
			Timestamp:   time.Now(),
		})
	}

	return "", fmt.Errorf("agent %s: %w", a.name, types.ErrMaxIterationsReached)
}

func (a *LLMAgent) finish(inv *Invocation, content string) string {
	final := content
	if a.transform != nil {
		final = a.transform(final)
	}

	if a.outputKey != "" {
		inv.Session.SetState(a.outputKey, final)
	}

	inv.appendTranscript(types.Message{
		Role:      types.RoleAssistant,
		Author:    a.name,
		Content:   final,
		Timestamp: time.Now(),
	})

	return final
}

func (a *LLMAgent) executeToolCalls(ctx context.Context, inv *Invocation, calls []types.ToolCall) ([]types.ToolResult, error) {
	results := make([]types.ToolResult, 0, len(calls))

	for _, call := range calls {
		t, ok := a.lookupTool(call.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", types.ErrToolNotFound, call.Name)
		}

		argsJSON, err := json.Marshal(call.Arguments)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tool call arguments: %w", err)
		}

		inv.Emit(types.NewToolStartEvent(a.name, call.Name))

		tctx := &tool.Context{
			Session:    inv.Session,
			AgentName:  a.name,
			ToolName:   call.Name,
			ToolCallID: call.ID,
		}

		var content string
		if it, isInvocationTool := t.(invocationTool); isInvocationTool {
			content, err = it.executeWithInvocation(ctx, inv, tctx, string(argsJSON))
		} else {
			content, err = t.Execute(ctx, tctx, string(argsJSON))
		}

		result := types.ToolResult{
			ToolCallID: call.ID,
			Content:    content,
			IsError:    err != nil,
		}
		if err != nil {
			result.Content = fmt.Sprintf("Error: %v", err)
			log.Warn().Err(err).Str("agent", a.name).Str("tool", call.Name).Msg("Tool call failed")
		}

		inv.Emit(types.NewToolCompleteEvent(a.name, call.Name))

		results = append(results, result)
	}

	return results, nil
}

func (a *LLMAgent) lookupTool(name string) (tool.Tool, bool) {
	for _, t := range a.tools {
		if t.Name() == name {
			return t, true
		}
	}

	return nil, false
}
