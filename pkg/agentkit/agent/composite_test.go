package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinselworks/elfagent/pkg/agentkit/types"
)

// stubAgent is a scripted graph node for composition tests.
type stubAgent struct {
	name   string
	output string
	err    error
	run    func(ctx context.Context, inv *Invocation) (string, error)
}

func (a *stubAgent) Name() string        { return a.name }
func (a *stubAgent) Description() string { return "stub" }

func (a *stubAgent) Run(ctx context.Context, inv *Invocation) (string, error) {
	if a.run != nil {
		return a.run(ctx, inv)
	}

	return a.output, a.err
}

func TestSequential_RunsInOrder(t *testing.T) {
	var order []string
	var mu sync.Mutex

	record := func(name, output string) *stubAgent {
		return &stubAgent{name: name, run: func(ctx context.Context, inv *Invocation) (string, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return output, nil
		}}
	}

	seq := NewSequential("pipeline", "ordered",
		record("first", "a"),
		record("second", "b"),
		record("third", "c"),
	)

	out, err := seq.Run(context.Background(), NewInvocation(newTestSession(t), nil))
	require.NoError(t, err)
	assert.Equal(t, "c", out)
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestSequential_StopsOnChildError(t *testing.T) {
	boom := errors.New("child failed")

	reached := false
	seq := NewSequential("pipeline", "ordered",
		&stubAgent{name: "first", output: "a"},
		&stubAgent{name: "second", err: boom},
		&stubAgent{name: "third", run: func(ctx context.Context, inv *Invocation) (string, error) {
			reached = true
			return "c", nil
		}},
	)

	_, err := seq.Run(context.Background(), NewInvocation(newTestSession(t), nil))
	require.ErrorIs(t, err, boom)
	assert.False(t, reached)
}

func TestParallel_RunsChildrenConcurrently(t *testing.T) {
	// Every child blocks until all children have started; a sequential
	// execution would never release the barrier.
	const children = 3

	var wg sync.WaitGroup
	wg.Add(children)

	allStarted := make(chan struct{})
	go func() {
		wg.Wait()
		close(allStarted)
	}()

	barrier := func(name string) *stubAgent {
		return &stubAgent{name: name, run: func(ctx context.Context, inv *Invocation) (string, error) {
			wg.Done()
			select {
			case <-allStarted:
				return name + "-done", nil
			case <-time.After(2 * time.Second):
				return "", errors.New("children did not run concurrently")
			}
		}}
	}

	par := NewParallel("team", "concurrent", barrier("a"), barrier("b"), barrier("c"))

	out, err := par.Run(context.Background(), NewInvocation(newTestSession(t), nil))
	require.NoError(t, err)
	assert.Equal(t, "a: a-done\n\nb: b-done\n\nc: c-done", out)
}

func TestParallel_ChildErrorFailsGroup(t *testing.T) {
	boom := errors.New("marketplace down")

	par := NewParallel("team", "concurrent",
		&stubAgent{name: "ok", output: "fine"},
		&stubAgent{name: "bad", err: boom},
	)

	_, err := par.Run(context.Background(), NewInvocation(newTestSession(t), nil))
	require.ErrorIs(t, err, boom)
}

func TestAgentTool_ForwardsRequest(t *testing.T) {
	var gotRequest string
	child := &stubAgent{name: "helper", run: func(ctx context.Context, inv *Invocation) (string, error) {
		gotRequest = inv.UserContent
		return "helper-out", nil
	}}

	model := &fakeModel{script: []*types.GenerateResponse{
		toolCallResponse("helper", map[string]any{"request": "find gifts"}),
		textResponse("wrapped up"),
	}}

	parent, err := New("director", WithModel(model), WithTools(NewAgentTool(child)))
	require.NoError(t, err)

	out, err := parent.Run(context.Background(), NewInvocation(newTestSession(t), nil))
	require.NoError(t, err)
	assert.Equal(t, "wrapped up", out)
	assert.Equal(t, "find gifts", gotRequest)

	msgs := model.requests[1].Messages
	require.Len(t, msgs[1].ToolResults, 1)
	assert.Equal(t, "helper-out", msgs[1].ToolResults[0].Content)
}

func TestAgentTool_SharesSessionAndTranscript(t *testing.T) {
	childModel := &fakeModel{script: []*types.GenerateResponse{textResponse("research notes")}}
	child, err := New("researcher", WithModel(childModel), WithOutputKey("notes"))
	require.NoError(t, err)

	parentModel := &fakeModel{script: []*types.GenerateResponse{
		toolCallResponse("researcher", map[string]any{"request": "dig in"}),
		textResponse("summary"),
	}}
	parent, err := New("director",
		WithModel(parentModel),
		WithTools(NewAgentTool(child)),
		WithInstruction("Use {notes}"),
	)
	require.NoError(t, err)

	sess := newTestSession(t)
	inv := NewInvocation(sess, nil)

	_, err = parent.Run(context.Background(), inv)
	require.NoError(t, err)

	// The child's slot is written on the shared session and visible to
	// the parent's second model call.
	val, ok := sess.State("notes")
	require.True(t, ok)
	assert.Equal(t, "research notes", val)
	assert.Equal(t, "Use research notes", parentModel.requests[1].System)

	// Both finals land on the same turn transcript.
	transcript := inv.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, "researcher", transcript[0].Author)
	assert.Equal(t, "director", transcript[1].Author)
}

func TestAgentTool_DirectExecuteRefused(t *testing.T) {
	at := NewAgentTool(&stubAgent{name: "helper"})

	_, err := at.Execute(context.Background(), nil, "{}")
	require.Error(t, err)
}
