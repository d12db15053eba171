package types

import "time"

// EventType identifies the kind of event emitted while a turn runs.
type EventType string

const (
	EventText         EventType = "text"
	EventToolStart    EventType = "tool_start"
	EventToolComplete EventType = "tool_complete"
	EventFinal        EventType = "final"
	EventError        EventType = "error"
)

// Event is one observable step of a turn. The transport layer forwards
// text events to streaming clients; the final event carries the turn's
// formatted response.
type Event struct {
	Type      EventType `json:"type"`
	Author    string    `json:"author,omitempty"`
	Content   string    `json:"content,omitempty"`
	ToolName  string    `json:"tool_name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTextEvent(author, content string) Event {
	return Event{Type: EventText, Author: author, Content: content, Timestamp: time.Now()}
}

func NewToolStartEvent(author, toolName string) Event {
	return Event{Type: EventToolStart, Author: author, ToolName: toolName, Timestamp: time.Now()}
}

func NewToolCompleteEvent(author, toolName string) Event {
	return Event{Type: EventToolComplete, Author: author, ToolName: toolName, Timestamp: time.Now()}
}

func NewFinalEvent(author, content string) Event {
	return Event{Type: EventFinal, Author: author, Content: content, Timestamp: time.Now()}
}

func NewErrorEvent(author string, err error) Event {
	return Event{Type: EventError, Author: author, Content: err.Error(), Timestamp: time.Now()}
}

// IsFinal reports whether the event terminates a turn.
func (e Event) IsFinal() bool {
	return e.Type == EventFinal || e.Type == EventError
}
