package tool

import (
	"context"

	"github.com/tinselworks/elfagent/pkg/agentkit/session"
)

// Tool is a callable capability exposed to a model. Parameters returns a
// JSON-schema object describing the arguments; Execute receives the raw
// argument JSON produced by the model.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, tctx *Context, args string) (string, error)
}

// Context carries per-invocation state into a tool call: the session the
// turn runs against and the identity of the calling agent. Tools that
// need human approval use the confirmation API, which is backed by the
// session's confirmation records.
type Context struct {
	Session    *session.Session
	AgentName  string
	ToolName   string
	ToolCallID string
}

// Confirmation returns the recorded decision for this tool, if any.
func (c *Context) Confirmation() (session.Confirmation, bool) {
	if c.Session == nil {
		return session.Confirmation{}, false
	}

	conf, ok := c.Session.Confirmation(c.ToolName)
	if !ok || conf.Status == session.ConfirmationPending {
		return conf, false
	}

	return conf, true
}

// RequestConfirmation records a pending approval request for this tool.
func (c *Context) RequestConfirmation(hint, payload string) {
	if c.Session == nil {
		return
	}

	c.Session.RequestConfirmation(c.ToolName, hint, payload)
}

// FuncTool adapts a plain function into a Tool.
type FuncTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(ctx context.Context, tctx *Context, args string) (string, error)
}

func (t *FuncTool) Name() string {
	return t.name
}

func (t *FuncTool) Description() string {
	return t.description
}

func (t *FuncTool) Parameters() map[string]any {
	return t.parameters
}

func (t *FuncTool) Execute(ctx context.Context, tctx *Context, args string) (string, error) {
	return t.fn(ctx, tctx, args)
}

func Define(name, description string, parameters map[string]any, fn func(ctx context.Context, tctx *Context, args string) (string, error)) Tool {
	return &FuncTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}
