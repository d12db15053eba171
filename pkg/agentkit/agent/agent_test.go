package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinselworks/elfagent/pkg/agentkit/provider"
	"github.com/tinselworks/elfagent/pkg/agentkit/session"
	"github.com/tinselworks/elfagent/pkg/agentkit/tool"
	"github.com/tinselworks/elfagent/pkg/agentkit/types"
)

// fakeModel replays a scripted sequence of responses and records every
// request it receives.
type fakeModel struct {
	mu       sync.Mutex
	requests []provider.GenerateRequest
	script   []*types.GenerateResponse
	err      error
}

func (m *fakeModel) ID() string { return "fake-model" }

func (m *fakeModel) Generate(ctx context.Context, req provider.GenerateRequest) (*types.GenerateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if m.err != nil {
		return nil, m.err
	}

	if len(m.script) == 0 {
		return &types.GenerateResponse{Content: "done", FinishReason: types.FinishReasonStop}, nil
	}

	resp := m.script[0]
	m.script = m.script[1:]

	return resp, nil
}

func textResponse(content string) *types.GenerateResponse {
	return &types.GenerateResponse{Content: content, FinishReason: types.FinishReasonStop}
}

func toolCallResponse(name string, args map[string]any) *types.GenerateResponse {
	return &types.GenerateResponse{
		ToolCalls:    []types.ToolCall{{ID: "call-1", Name: name, Arguments: args}},
		FinishReason: types.FinishReasonToolCalls,
	}
}

func newTestSession(t *testing.T) *session.Session {
	t.Helper()

	sess, err := session.NewService().Create(context.Background(), "test-app", "user-1", "sess-1")
	require.NoError(t, err)

	return sess
}

func TestNew_Validation(t *testing.T) {
	_, err := New("")
	require.Error(t, err)

	_, err = New("no-model")
	require.ErrorIs(t, err, types.ErrModelNotSet)

	a, err := New("ok", WithModel(&fakeModel{}))
	require.NoError(t, err)
	assert.Equal(t, "ok", a.Name())
}

func TestLLMAgent_SingleTurn(t *testing.T) {
	model := &fakeModel{script: []*types.GenerateResponse{textResponse("here are the gifts")}}

	a, err := New("advisor",
		WithModel(model),
		WithOutputKey("answer"),
	)
	require.NoError(t, err)

	sess := newTestSession(t)
	inv := NewInvocation(sess, nil)

	out, err := a.Run(context.Background(), inv)
	require.NoError(t, err)
	assert.Equal(t, "here are the gifts", out)

	val, ok := sess.State("answer")
	require.True(t, ok)
	assert.Equal(t, "here are the gifts", val)

	transcript := inv.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, "advisor", transcript[0].Author)
}

func TestLLMAgent_OutputTransform(t *testing.T) {
	model := &fakeModel{script: []*types.GenerateResponse{textResponse("raw")}}

	a, err := New("advisor",
		WithModel(model),
		WithOutputKey("answer"),
		WithOutputTransform(func(raw string) string { return raw + "-shaped" }),
	)
	require.NoError(t, err)

	sess := newTestSession(t)

	out, err := a.Run(context.Background(), NewInvocation(sess, nil))
	require.NoError(t, err)
	assert.Equal(t, "raw-shaped", out)

	val, _ := sess.State("answer")
	assert.Equal(t, "raw-shaped", val)
}

func TestLLMAgent_ToolLoop(t *testing.T) {
	var gotArgs string
	echo := tool.Define("echo", "echoes", map[string]any{"type": "object"},
		func(ctx context.Context, tctx *tool.Context, args string) (string, error) {
			gotArgs = args
			return "echoed", nil
		})

	model := &fakeModel{script: []*types.GenerateResponse{
		toolCallResponse("echo", map[string]any{"text": "hi"}),
		textResponse("final answer"),
	}}

	a, err := New("advisor", WithModel(model), WithTools(echo))
	require.NoError(t, err)

	out, err := a.Run(context.Background(), NewInvocation(newTestSession(t), nil))
	require.NoError(t, err)
	assert.Equal(t, "final answer", out)
	assert.JSONEq(t, `{"text": "hi"}`, gotArgs)

	// The second model call must see the assistant tool call and the
	// tool result.
	require.Len(t, model.requests, 2)
	msgs := model.requests[1].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, types.RoleAssistant, msgs[0].Role)
	require.Len(t, msgs[1].ToolResults, 1)
	assert.Equal(t, "echoed", msgs[1].ToolResults[0].Content)
	assert.False(t, msgs[1].ToolResults[0].IsError)
}

func TestLLMAgent_ToolErrorBecomesResult(t *testing.T) {
	failing := tool.Define("boom", "fails", map[string]any{"type": "object"},
		func(ctx context.Context, tctx *tool.Context, args string) (string, error) {
			return "", errors.New("provider unavailable")
		})

	model := &fakeModel{script: []*types.GenerateResponse{
		toolCallResponse("boom", nil),
		textResponse("recovered"),
	}}

	a, err := New("advisor", WithModel(model), WithTools(failing))
	require.NoError(t, err)

	out, err := a.Run(context.Background(), NewInvocation(newTestSession(t), nil))
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)

	msgs := model.requests[1].Messages
	require.Len(t, msgs[1].ToolResults, 1)
	assert.True(t, msgs[1].ToolResults[0].IsError)
	assert.Contains(t, msgs[1].ToolResults[0].Content, "provider unavailable")
}

func TestLLMAgent_UnknownToolFailsTurn(t *testing.T) {
	model := &fakeModel{script: []*types.GenerateResponse{
		toolCallResponse("missing", nil),
	}}

	a, err := New("advisor", WithModel(model))
	require.NoError(t, err)

	_, err = a.Run(context.Background(), NewInvocation(newTestSession(t), nil))
	require.ErrorIs(t, err, types.ErrToolNotFound)
}

func TestLLMAgent_MaxIterations(t *testing.T) {
	noop := tool.Define("noop", "does nothing", map[string]any{"type": "object"},
		func(ctx context.Context, tctx *tool.Context, args string) (string, error) {
			return "ok", nil
		})

	model := &fakeModel{script: []*types.GenerateResponse{
		toolCallResponse("noop", nil),
		toolCallResponse("noop", nil),
		toolCallResponse("noop", nil),
	}}

	a, err := New("advisor", WithModel(model), WithTools(noop), WithMaxIterations(2))
	require.NoError(t, err)

	_, err = a.Run(context.Background(), NewInvocation(newTestSession(t), nil))
	require.ErrorIs(t, err, types.ErrMaxIterationsReached)
}

func TestLLMAgent_SlotRefreshedBetweenIterations(t *testing.T) {
	writer := tool.Define("write_slot", "writes a slot", map[string]any{"type": "object"},
		func(ctx context.Context, tctx *tool.Context, args string) (string, error) {
			tctx.Session.SetState("findings", "three candidate gifts")
			return "written", nil
		})

	model := &fakeModel{script: []*types.GenerateResponse{
		toolCallResponse("write_slot", nil),
		textResponse("done"),
	}}

	a, err := New("advisor",
		WithModel(model),
		WithTools(writer),
		WithInstruction("Summarize: {findings}"),
	)
	require.NoError(t, err)

	_, err = a.Run(context.Background(), NewInvocation(newTestSession(t), nil))
	require.NoError(t, err)

	require.Len(t, model.requests, 2)
	assert.Equal(t, "Summarize: ", model.requests[0].System)
	assert.Equal(t, "Summarize: three candidate gifts", model.requests[1].System)
}

func TestLLMAgent_EmitsEvents(t *testing.T) {
	model := &fakeModel{script: []*types.GenerateResponse{textResponse("hello")}}

	a, err := New("advisor", WithModel(model))
	require.NoError(t, err)

	var events []types.Event
	inv := NewInvocation(newTestSession(t), func(e types.Event) { events = append(events, e) })

	_, err = a.Run(context.Background(), inv)
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, types.EventText, events[0].Type)
	assert.Equal(t, "advisor", events[0].Author)
}
