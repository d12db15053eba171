package agent

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tinselworks/elfagent/pkg/agentkit/session"
	"github.com/tinselworks/elfagent/pkg/agentkit/types"
)

// Invocation is the shared state of one turn through the agent graph.
// Every agent in the graph runs against the same session; agents append
// their final responses to the turn transcript so later sequential
// siblings can see them. Emit is safe for concurrent use by parallel
// siblings.
type Invocation struct {
	ID      string
	Session *session.Session

	// UserContent carries the request text when an agent is invoked as
	// a tool. Top-level turns leave it empty; the user's message is
	// already in the session history.
	UserContent string

	parent *Invocation
	emit   func(types.Event)

	mu         sync.Mutex
	transcript []types.Message
}

func NewInvocation(sess *session.Session, emit func(types.Event)) *Invocation {
	return &Invocation{
		ID:      uuid.New().String(),
		Session: sess,
		emit:    emit,
	}
}

// Emit publishes a turn event. Safe to call from parallel siblings.
func (inv *Invocation) Emit(event types.Event) {
	if inv.emit != nil {
		inv.emit(event)
	}
}

// fork derives an invocation for an agent invoked as a tool. The
// session, emitter and transcript are shared; only the request text
// differs.
func (inv *Invocation) fork(userContent string) *Invocation {
	return &Invocation{
		ID:          inv.ID,
		Session:     inv.Session,
		UserContent: userContent,
		parent:      inv,
		emit:        inv.emit,
	}
}

// appendTranscript records an agent's final response for later agents
// in the same turn.
func (inv *Invocation) appendTranscript(msg types.Message) {
	root := inv.root()
	root.mu.Lock()
	defer root.mu.Unlock()

	root.transcript = append(root.transcript, msg)
}

// Transcript returns a copy of the responses produced so far this turn.
func (inv *Invocation) Transcript() []types.Message {
	root := inv.root()
	root.mu.Lock()
	defer root.mu.Unlock()

	out := make([]types.Message, len(root.transcript))
	copy(out, root.transcript)

	return out
}

func (inv *Invocation) root() *Invocation {
	cur := inv
	for cur.parent != nil {
		cur = cur.parent
	}

	return cur
}
