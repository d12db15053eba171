package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tinselworks/elfagent/internal/controllers"
	"github.com/tinselworks/elfagent/internal/server"
)

func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gift advisor service",
		Long:  `Start the HTTP and WebSocket service that answers gift deal queries through the agent team.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}

			return runServe()
		},
	}

	return cmd
}

func runServe() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().Msg("Starting gift advisor service")

	config, err := LoadConfig()
	if err != nil {
		return err
	}

	deps, err := BuildAppDependencies(ctx, config)
	if err != nil {
		return err
	}

	log.Info().
		Str("http_address", config.HTTPAddress).
		Bool("verification_enabled", config.EnableVerification).
		Msg("Agent runtime ready")

	queryController := controllers.NewQueryController(controllers.QueryControllerDependencies{
		Runner:         deps.Runner,
		SessionService: deps.SessionService,
	})

	wsController := controllers.NewWebSocketController(controllers.WebSocketControllerDependencies{
		Runner: deps.Runner,
	})

	app := server.NewHTTPServer(server.HTTPServerDependencies{
		AppName:             appName,
		AllowedOrigins:      config.AllowedOrigins,
		QueryController:     queryController,
		WebSocketController: wsController,
	})

	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down")

		if err := app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	if err := app.Listen(config.HTTPAddress); err != nil {
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	}

	log.Info().Msg("Gift advisor service stopped")
	return nil
}
