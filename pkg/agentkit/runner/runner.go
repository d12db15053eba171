package runner

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tinselworks/elfagent/pkg/agentkit/agent"
	"github.com/tinselworks/elfagent/pkg/agentkit/session"
	"github.com/tinselworks/elfagent/pkg/agentkit/types"
)

// DefaultEmptyResponse is returned for a turn where the graph produced
// no final text at all.
const DefaultEmptyResponse = `{"products": [], "message": "No products found"}`

// Runner drives turns through a root agent against per-user sessions.
// One Run call is one turn: the user message is appended to the
// session, the root agent runs to completion, and the final response is
// recorded in the session history.
type Runner struct {
	appName  string
	root     agent.Agent
	sessions *session.Service
}

type Dependencies struct {
	AppName        string
	RootAgent      agent.Agent
	SessionService *session.Service
}

func New(deps Dependencies) (*Runner, error) {
	if deps.AppName == "" {
		return nil, errors.New("app name is required")
	}
	if deps.RootAgent == nil {
		return nil, errors.New("root agent is required")
	}
	if deps.SessionService == nil {
		return nil, errors.New("session service is required")
	}

	return &Runner{
		appName:  deps.AppName,
		root:     deps.RootAgent,
		sessions: deps.SessionService,
	}, nil
}

func (r *Runner) AppName() string {
	return r.appName
}

func (r *Runner) Sessions() *session.Service {
	return r.sessions
}

// Run executes one turn and streams its events. The channel closes
// after the final (or error) event. Cancelling ctx stops event
// delivery; the in-flight model and tool calls run to completion and
// still write their output slots.
func (r *Runner) Run(ctx context.Context, userID, sessionID, query string) (<-chan types.Event, error) {
	sess, err := r.sessions.GetOrCreate(ctx, r.appName, userID, sessionID)
	if err != nil {
		return nil, err
	}

	sess.AppendMessage(types.Message{
		Role:      types.RoleUser,
		Content:   query,
		Timestamp: time.Now(),
	})

	events := make(chan types.Event, 64)

	emit := func(event types.Event) {
		select {
		case events <- event:
		case <-ctx.Done():
			// Caller went away; drop delivery but keep running.
		}
	}

	go func() {
		defer close(events)

		inv := agent.NewInvocation(sess, emit)

		final, err := r.root.Run(ctx, inv)
		if err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("Turn failed")
			emit(types.NewErrorEvent(r.root.Name(), err))
			return
		}

		if final == "" {
			final = DefaultEmptyResponse
		}

		sess.AppendMessage(types.Message{
			Role:      types.RoleAssistant,
			Author:    r.root.Name(),
			Content:   final,
			Timestamp: time.Now(),
		})

		emit(types.NewFinalEvent(r.root.Name(), final))
	}()

	return events, nil
}

// RunSync executes one turn and blocks until its final response.
func (r *Runner) RunSync(ctx context.Context, userID, sessionID, query string) (string, error) {
	events, err := r.Run(ctx, userID, sessionID, query)
	if err != nil {
		return "", err
	}

	final := DefaultEmptyResponse

	for event := range events {
		switch event.Type {
		case types.EventFinal:
			final = event.Content
		case types.EventError:
			return "", errors.New(event.Content)
		}
	}

	return final, nil
}
