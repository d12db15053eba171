package agent

import (
	"github.com/tinselworks/elfagent/pkg/agentkit/provider"
	"github.com/tinselworks/elfagent/pkg/agentkit/tool"
)

type Option func(*LLMAgent)

func WithModel(m provider.LanguageModel) Option {
	return func(a *LLMAgent) {
		a.model = m
	}
}

func WithDescription(description string) Option {
	return func(a *LLMAgent) {
		a.description = description
	}
}

func WithInstruction(instruction string) Option {
	return func(a *LLMAgent) {
		a.instruction = instruction
	}
}

// WithOutputKey names the session slot the agent's final response is
// written to. Later agents reference it as {key} in their instructions.
func WithOutputKey(key string) Option {
	return func(a *LLMAgent) {
		a.outputKey = key
	}
}

func WithTools(tools ...tool.Tool) Option {
	return func(a *LLMAgent) {
		a.tools = append(a.tools, tools...)
	}
}

func WithMaxIterations(iterations int) Option {
	return func(a *LLMAgent) {
		if iterations > 0 {
			a.maxIterations = iterations
		}
	}
}

// WithOutputTransform installs a deterministic post-processing step
// applied to the agent's final response before it is stored.
func WithOutputTransform(transform func(string) string) Option {
	return func(a *LLMAgent) {
		a.transform = transform
	}
}
