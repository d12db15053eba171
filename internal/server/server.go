package server

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/tinselworks/elfagent/internal/controllers"
)

type HTTPServerDependencies struct {
	AppName             string
	AllowedOrigins      string
	QueryController     *controllers.QueryController
	WebSocketController *controllers.WebSocketController
}

// NewHTTPServer assembles the fiber app: REST endpoints for one-shot
// queries and confirmation decisions, plus the websocket conversation
// endpoint.
func NewHTTPServer(deps HTTPServerDependencies) *fiber.App {
	router := fiber.New(fiber.Config{
		AppName: deps.AppName,
	})

	corsConfig := cors.Config{}
	if deps.AllowedOrigins != "" {
		corsConfig.AllowOrigins = deps.AllowedOrigins
	}

	router.Use(cors.New(corsConfig))
	router.Use(logger.New())
	router.Use(recover.New())

	router.Get("/", deps.QueryController.Root)
	router.Get("/health", deps.QueryController.Health)

	api := router.Group("/api")
	api.Post("/query", deps.QueryController.Query)
	api.Get("/sessions/:userID", deps.QueryController.ListSessions)
	api.Post("/confirmations", deps.QueryController.ResolveConfirmation)

	ws := router.Group("/ws")
	ws.Use(func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}

		return fiber.ErrUpgradeRequired
	})
	ws.Get("/query", websocket.New(deps.WebSocketController.Handle))

	return router
}
