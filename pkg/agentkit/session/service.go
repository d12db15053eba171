package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tinselworks/elfagent/pkg/agentkit/types"
)

// Service is an in-memory session store keyed by the
// (app name, user id, session id) triple. Sessions are created on first
// use and live for the lifetime of the process.
type Service struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	userIndex map[string][]string
}

func NewService() *Service {
	return &Service{
		sessions:  make(map[string]*Session),
		userIndex: make(map[string][]string),
	}
}

func sessionKey(appName, userID, sessionID string) string {
	return appName + "/" + userID + "/" + sessionID
}

func userKey(appName, userID string) string {
	return appName + "/" + userID
}

// Create registers a new session for the triple. It fails with
// types.ErrSessionExists when the id is already in use.
func (s *Service) Create(ctx context.Context, appName, userID, sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey(appName, userID, sessionID)
	if _, ok := s.sessions[key]; ok {
		return nil, types.ErrSessionExists
	}

	now := time.Now()
	sess := &Session{
		AppName:       appName,
		UserID:        userID,
		ID:            sessionID,
		CreatedAt:     now,
		UpdatedAt:     now,
		state:         make(map[string]string),
		confirmations: make(map[string]Confirmation),
	}

	s.sessions[key] = sess
	s.userIndex[userKey(appName, userID)] = append(s.userIndex[userKey(appName, userID)], key)

	return sess, nil
}

// Get looks up an existing session.
func (s *Service) Get(ctx context.Context, appName, userID, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionKey(appName, userID, sessionID)]
	if !ok {
		return nil, types.ErrSessionNotFound
	}

	return sess, nil
}

// GetOrCreate returns the session for the triple, creating it on first use.
func (s *Service) GetOrCreate(ctx context.Context, appName, userID, sessionID string) (*Session, error) {
	sess, err := s.Create(ctx, appName, userID, sessionID)
	if err == nil {
		return sess, nil
	}

	return s.Get(ctx, appName, userID, sessionID)
}

// List returns all sessions for a user within an application, oldest first.
func (s *Service) List(ctx context.Context, appName, userID string) []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.userIndex[userKey(appName, userID)]

	out := make([]*Session, 0, len(keys))
	for _, key := range keys {
		if sess, ok := s.sessions[key]; ok {
			out = append(out, sess)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out
}
