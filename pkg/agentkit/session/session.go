package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tinselworks/elfagent/pkg/agentkit/types"
)

// Session holds one user's conversation with an application: the ordered
// turn history, the output-slot state written by agents, and any
// human-in-the-loop confirmation records. A slot is written by exactly
// one agent and read only by agents that run after it; parallel
// siblings use disjoint slot names by construction.
type Session struct {
	AppName   string    `json:"app_name"`
	UserID    string    `json:"user_id"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	mu            sync.RWMutex
	history       []types.Message
	state         map[string]string
	confirmations map[string]Confirmation
}

// Confirmation is the tri-state human approval record for one tool.
type Confirmation struct {
	Status  ConfirmationStatus `json:"status"`
	Hint    string             `json:"hint,omitempty"`
	Payload string             `json:"payload,omitempty"`
}

type ConfirmationStatus string

const (
	ConfirmationPending  ConfirmationStatus = "pending"
	ConfirmationApproved ConfirmationStatus = "approved"
	ConfirmationRejected ConfirmationStatus = "rejected"
)

// AppendMessage adds a message to the session history.
func (s *Session) AppendMessage(msg types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	s.history = append(s.history, msg)
	s.UpdatedAt = time.Now()
}

// History returns a copy of the session's message history.
func (s *Session) History() []types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Message, len(s.history))
	copy(out, s.history)

	return out
}

// State returns the last value written to the named output slot.
func (s *Session) State(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.state[key]

	return val, ok
}

// SetState writes an output slot. The writing agent owns the slot name;
// concurrent writers must use disjoint keys.
func (s *Session) SetState(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state[key] = value
	s.UpdatedAt = time.Now()
}

// StateKeys returns the slot names currently populated, sorted.
func (s *Session) StateKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.state))
	for k := range s.state {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// Confirmation returns the confirmation record for the given tool key.
func (s *Session) Confirmation(key string) (Confirmation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.confirmations[key]

	return c, ok
}

// RequestConfirmation records a pending confirmation for the given tool
// key. It is a no-op when a record already exists; the tool consumes a
// resolved record on its next invocation.
func (s *Session) RequestConfirmation(key, hint, payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.confirmations[key]; ok {
		return
	}

	s.confirmations[key] = Confirmation{
		Status:  ConfirmationPending,
		Hint:    hint,
		Payload: payload,
	}
	s.UpdatedAt = time.Now()
}

// ResolveConfirmation records the external actor's decision for a
// pending confirmation. It fails if nothing is pending for the key.
func (s *Session) ResolveConfirmation(key string, approved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.confirmations[key]
	if !ok {
		return fmt.Errorf("no pending confirmation for %q", key)
	}

	if approved {
		c.Status = ConfirmationApproved
	} else {
		c.Status = ConfirmationRejected
	}

	s.confirmations[key] = c
	s.UpdatedAt = time.Now()

	return nil
}

// ClearConfirmation removes a consumed confirmation record.
func (s *Session) ClearConfirmation(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.confirmations, key)
}
