package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tinselworks/elfagent/internal/version"
	"github.com/tinselworks/elfagent/pkg/agentkit/runner"
	"github.com/tinselworks/elfagent/pkg/agentkit/session"
	"github.com/tinselworks/elfagent/pkg/agentkit/types"
)

// QueryController handles the REST surface of the assistant: one-shot
// queries, session listing, health, and confirmation decisions.
type QueryController struct {
	runner   *runner.Runner
	sessions *session.Service
}

type QueryControllerDependencies struct {
	Runner         *runner.Runner
	SessionService *session.Service
}

func NewQueryController(deps QueryControllerDependencies) *QueryController {
	return &QueryController{
		runner:   deps.Runner,
		sessions: deps.SessionService,
	}
}

type queryRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

type queryResponse struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
	Status    string `json:"status"`
}

// Query runs one blocking turn through the agent graph.
func (c *QueryController) Query(ctx *fiber.Ctx) error {
	if c.runner == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Agent runtime is not initialized")
	}

	var req queryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.Query == "" {
		return fiber.NewError(fiber.StatusBadRequest, "No query provided")
	}

	if req.UserID == "" {
		req.UserID = uuid.NewString()
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	log.Info().
		Str("user_id", req.UserID).
		Str("session_id", req.SessionID).
		Msg("Processing query")

	answer, err := c.runner.RunSync(ctx.UserContext(), req.UserID, req.SessionID, req.Query)
	if err != nil {
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("Query failed")
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("Failed to process query: %v", err))
	}

	return ctx.JSON(queryResponse{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Response:  answer,
		Status:    "completed",
	})
}

// Health reports service liveness and whether the agent runtime came up.
func (c *QueryController) Health(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":                      "healthy",
		"service":                     c.appName(),
		"version":                     version.GetVersion(),
		"runner_initialized":          c.runner != nil,
		"session_service_initialized": c.sessions != nil,
		"timestamp":                   time.Now().UTC().Format(time.RFC3339),
	})
}

// Root greets callers that hit the bare host.
func (c *QueryController) Root(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"status":  "ok",
		"service": c.appName(),
		"version": version.GetVersion(),
		"message": "Ho ho ho! ElfAgent is ready to find the best Christmas gift deals. POST /api/query to start.",
	})
}

type sessionInfo struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  int       `json:"messages"`
}

// ListSessions returns the sessions recorded for a user, oldest first.
func (c *QueryController) ListSessions(ctx *fiber.Ctx) error {
	if c.sessions == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Session service is not initialized")
	}

	userID := ctx.Params("userID")
	if userID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "No user id provided")
	}

	sessions := c.sessions.List(ctx.UserContext(), c.appName(), userID)

	out := make([]sessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionInfo{
			SessionID: sess.ID,
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.UpdatedAt,
			Messages:  len(sess.History()),
		})
	}

	return ctx.JSON(fiber.Map{
		"user_id":  userID,
		"sessions": out,
	})
}

type confirmationRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Tool      string `json:"tool"`
	Approved  bool   `json:"approved"`
}

// ResolveConfirmation records the user's decision for a pending
// confirmation request, unblocking the next turn of the conversation.
func (c *QueryController) ResolveConfirmation(ctx *fiber.Ctx) error {
	if c.sessions == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Session service is not initialized")
	}

	var req confirmationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.UserID == "" || req.SessionID == "" || req.Tool == "" {
		return fiber.NewError(fiber.StatusBadRequest, "user_id, session_id and tool are required")
	}

	sess, err := c.sessions.Get(ctx.UserContext(), c.appName(), req.UserID, req.SessionID)
	if err != nil {
		if errors.Is(err, types.ErrSessionNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Session not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to load session")
	}

	if err := sess.ResolveConfirmation(req.Tool, req.Approved); err != nil {
		return fiber.NewError(fiber.StatusConflict, "No pending confirmation for this tool")
	}

	log.Info().
		Str("session_id", req.SessionID).
		Str("tool", req.Tool).
		Bool("approved", req.Approved).
		Msg("Confirmation resolved")

	return ctx.JSON(fiber.Map{
		"status": "recorded",
	})
}

func (c *QueryController) appName() string {
	if c.runner != nil {
		return c.runner.AppName()
	}

	return "elfagent"
}
