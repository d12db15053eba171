package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tinselworks/elfagent/pkg/agentkit/tool"
)

// invocationTool is implemented by tools that need the live invocation
// rather than just the tool context. The agent loop dispatches to it
// when present.
type invocationTool interface {
	tool.Tool
	executeWithInvocation(ctx context.Context, inv *Invocation, tctx *tool.Context, args string) (string, error)
}

// AgentTool exposes an agent (or a whole composition) as a callable
// tool of a higher-level agent. The wrapped agent runs against the same
// session within the calling turn, so its output slots are visible to
// the caller's next model call.
type AgentTool struct {
	agent Agent
}

func NewAgentTool(a Agent) *AgentTool {
	return &AgentTool{agent: a}
}

func (t *AgentTool) Agent() Agent {
	return t.agent
}

func (t *AgentTool) Name() string {
	return t.agent.Name()
}

func (t *AgentTool) Description() string {
	return t.agent.Description()
}

func (t *AgentTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"request": map[string]any{
				"type":        "string",
				"description": "The request to hand to the agent",
			},
		},
		"required": []string{"request"},
	}
}

// Execute is never called directly; the agent loop routes AgentTool
// calls through executeWithInvocation.
func (t *AgentTool) Execute(ctx context.Context, tctx *tool.Context, args string) (string, error) {
	return "", fmt.Errorf("agent tool %s requires an invocation", t.agent.Name())
}

func (t *AgentTool) executeWithInvocation(ctx context.Context, inv *Invocation, tctx *tool.Context, args string) (string, error) {
	var parsed struct {
		Request string `json:"request"`
	}
	if args != "" {
		if err := json.Unmarshal([]byte(args), &parsed); err != nil {
			return "", fmt.Errorf("agent tool %s: invalid arguments: %w", t.agent.Name(), err)
		}
	}

	return t.agent.Run(ctx, inv.fork(parsed.Request))
}
