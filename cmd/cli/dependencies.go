package cli

import (
	"context"
	"fmt"

	"github.com/tinselworks/elfagent/internal/elf"
	"github.com/tinselworks/elfagent/internal/gate"
	"github.com/tinselworks/elfagent/internal/marketplace"
	"github.com/tinselworks/elfagent/pkg/agentkit/provider"
	"github.com/tinselworks/elfagent/pkg/agentkit/provider/gemini"
	"github.com/tinselworks/elfagent/pkg/agentkit/provider/openai"
	"github.com/tinselworks/elfagent/pkg/agentkit/runner"
	"github.com/tinselworks/elfagent/pkg/agentkit/session"
)

const appName = "elfagent"

// AppDependencies is the wired agent runtime handed to the server layer.
type AppDependencies struct {
	Runner         *runner.Runner
	SessionService *session.Service
}

// BuildAppDependencies constructs the models, the marketplace clients,
// the agent graph and the runner from configuration. Everything is
// validated here so the process refuses to start half-wired.
func BuildAppDependencies(ctx context.Context, config *Config) (*AppDependencies, error) {
	retryPolicy := provider.DefaultRetryPolicy()

	conversationModel, err := openai.New(config.OpenAIAPIKey, config.LLMModel,
		openai.WithRetryPolicy(retryPolicy),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation model: %w", err)
	}

	researchModel, err := gemini.New(ctx, config.GoogleAPIKey, config.GoogleModel,
		gemini.WithGoogleSearch(),
		gemini.WithRetryPolicy(retryPolicy),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create research model: %w", err)
	}

	searchModel, err := gemini.New(ctx, config.GoogleAPIKey, config.GoogleModel,
		gemini.WithRetryPolicy(retryPolicy),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search model: %w", err)
	}

	amazonClient, err := marketplace.NewAmazonClient(marketplace.AmazonClientDependencies{
		APIKey: config.RapidAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create amazon client: %w", err)
	}

	alibabaClient, err := marketplace.NewAlibabaClient(marketplace.AlibabaClientDependencies{
		APIKey: config.RapidAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create alibaba client: %w", err)
	}

	rootAgent, err := elf.BuildRootAgent(elf.GraphDependencies{
		ConversationModel:  conversationModel,
		ResearchModel:      researchModel,
		SearchModel:        searchModel,
		AmazonTool:         marketplace.NewAmazonSearchTool(amazonClient),
		AlibabaTool:        marketplace.NewAlibabaSearchTool(alibabaClient),
		ConfirmTool:        gate.NewConfirmationTool(),
		EnableVerification: config.EnableVerification,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build agent graph: %w", err)
	}

	sessionService := session.NewService()

	agentRunner, err := runner.New(runner.Dependencies{
		AppName:        appName,
		RootAgent:      rootAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}

	return &AppDependencies{
		Runner:         agentRunner,
		SessionService: sessionService,
	}, nil
}
