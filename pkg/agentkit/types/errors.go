package types

import "errors"

var (
	// ErrModelNotSet is returned when an agent is built without a model
	ErrModelNotSet = errors.New("model not set")

	// ErrToolNotFound is returned when the model calls an unknown tool
	ErrToolNotFound = errors.New("tool not found")

	// ErrMaxIterationsReached is returned when an agent loop exhausts its budget
	ErrMaxIterationsReached = errors.New("max iterations reached")

	// ErrEmptyResponse is returned when the provider returns an empty response
	ErrEmptyResponse = errors.New("empty response from provider")

	// ErrSessionExists is returned when creating a session id that is already in use
	ErrSessionExists = errors.New("session already exists")

	// ErrSessionNotFound is returned when a session lookup misses
	ErrSessionNotFound = errors.New("session not found")
)
