package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tinselworks/elfagent/pkg/agentkit/runner"
	"github.com/tinselworks/elfagent/pkg/agentkit/types"
)

// WebSocketController streams conversation turns over a socket. The
// client opens with an optional identity message, then sends one query
// per turn and receives intermediate agent output as it is produced.
type WebSocketController struct {
	runner *runner.Runner
}

type WebSocketControllerDependencies struct {
	Runner *runner.Runner
}

func NewWebSocketController(deps WebSocketControllerDependencies) *WebSocketController {
	return &WebSocketController{
		runner: deps.Runner,
	}
}

type wsHello struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

type wsQuery struct {
	Query string `json:"query"`
}

type wsMessage struct {
	Type      string `json:"type,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Content   string `json:"content,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Handle runs the per-connection loop. The first client message carries
// the identity; both ids are minted server side when absent so a bare
// "{}" opens a fresh conversation.
func (c *WebSocketController) Handle(conn *websocket.Conn) {
	defer conn.Close()

	if c.runner == nil {
		_ = conn.WriteJSON(wsMessage{Type: "error", Message: "Agent runtime is not initialized"})
		return
	}

	var hello wsHello
	if err := conn.ReadJSON(&hello); err != nil {
		log.Debug().Err(err).Msg("WebSocket closed before handshake")
		return
	}

	if hello.UserID == "" {
		hello.UserID = uuid.NewString()
	}
	if hello.SessionID == "" {
		hello.SessionID = uuid.NewString()
	}

	if err := conn.WriteJSON(wsMessage{
		Type:      "session_info",
		UserID:    hello.UserID,
		SessionID: hello.SessionID,
	}); err != nil {
		return
	}

	log.Info().
		Str("user_id", hello.UserID).
		Str("session_id", hello.SessionID).
		Msg("WebSocket conversation started")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		var req wsQuery
		if err := conn.ReadJSON(&req); err != nil {
			log.Debug().Str("session_id", hello.SessionID).Msg("WebSocket conversation ended")
			return
		}

		if req.Query == "" {
			if err := conn.WriteJSON(wsMessage{Error: "No query provided"}); err != nil {
				return
			}
			continue
		}

		if err := c.streamTurn(ctx, conn, hello, req.Query); err != nil {
			return
		}
	}
}

// streamTurn forwards one turn's events to the client. A turn failure
// is reported and closes the connection; write failures just close.
func (c *WebSocketController) streamTurn(ctx context.Context, conn *websocket.Conn, hello wsHello, query string) error {
	events, err := c.runner.Run(ctx, hello.UserID, hello.SessionID, query)
	if err != nil {
		_ = conn.WriteJSON(wsMessage{Type: "error", Message: err.Error()})
		return err
	}

	for event := range events {
		switch event.Type {
		case types.EventText, types.EventFinal:
			if event.Content == "" {
				continue
			}
			if err := conn.WriteJSON(wsMessage{Type: "response", Content: event.Content}); err != nil {
				return err
			}
		case types.EventError:
			_ = conn.WriteJSON(wsMessage{Type: "error", Message: event.Content})
			return errors.New(event.Content)
		}
	}

	return conn.WriteJSON(wsMessage{Type: "complete"})
}
