package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/tinselworks/elfagent/pkg/agentkit/provider"
	"github.com/tinselworks/elfagent/pkg/agentkit/types"
)

// Provider implements the LanguageModel interface for OpenAI-compatible
// chat-completion APIs.
type Provider struct {
	client *openai.Client

	RequestSettings RequestSettings

	retry provider.RetryPolicy
}

type RequestSettings struct {
	Model       string
	Temperature float32
	MaxTokens   int
	TopP        float32
}

type Option func(*Provider)

func WithRetryPolicy(policy provider.RetryPolicy) Option {
	return func(p *Provider) {
		p.retry = policy
	}
}

// New creates a new OpenAI provider. It fails fast on a missing API key
// or model identifier.
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if model == "" {
		return nil, errors.New("openai model identifier is required")
	}

	p := &Provider{
		client: openai.NewClientWithConfig(openai.DefaultConfig(apiKey)),
		RequestSettings: RequestSettings{
			Model: model,
		},
		retry: provider.DefaultRetryPolicy(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

func (p *Provider) ID() string {
	return p.RequestSettings.Model
}

// Generate implements the LanguageModel interface.
func (p *Provider) Generate(ctx context.Context, req provider.GenerateRequest) (*types.GenerateResponse, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       p.RequestSettings.Model,
		Messages:    p.convertMessages(req.Messages, req.System),
		Tools:       p.convertTools(req.Tools),
		Temperature: p.RequestSettings.Temperature,
		TopP:        p.RequestSettings.TopP,
	}

	if p.RequestSettings.MaxTokens > 0 {
		chatReq.MaxTokens = p.RequestSettings.MaxTokens
	}

	var resp openai.ChatCompletionResponse
	err := p.retry.Retry(ctx, statusOf, func() error {
		var callErr error
		resp, callErr = p.client.CreateChatCompletion(ctx, chatReq)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, types.ErrEmptyResponse
	}

	choice := resp.Choices[0]
	response := &types.GenerateResponse{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Model:        resp.Model,
		Usage: types.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}

	if len(choice.Message.ToolCalls) > 0 {
		response.ToolCalls = make([]types.ToolCall, len(choice.Message.ToolCalls))
		for i, tc := range choice.Message.ToolCalls {
			var args map[string]any
			if tc.Function.Arguments != "" {
				json.Unmarshal([]byte(tc.Function.Arguments), &args)
			}
			response.ToolCalls[i] = types.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: args,
			}
		}
	}

	return response, nil
}

func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}

	return 0
}

func (p *Provider) convertMessages(messages []types.Message, system string) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages)+1)

	if system != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}

		if len(msg.ToolCalls) > 0 {
			toolCalls := make([]openai.ToolCall, len(msg.ToolCalls))
			for i, tc := range msg.ToolCalls {
				argsJSON, _ := json.Marshal(tc.Arguments)
				toolCalls[i] = openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(argsJSON),
					},
				}
			}
			oaiMsg.ToolCalls = toolCalls
		}

		// Tool results become separate role=tool messages
		if len(msg.ToolResults) > 0 {
			if len(msg.ToolCalls) > 0 {
				result = append(result, oaiMsg)
			}
			for _, toolResult := range msg.ToolResults {
				result = append(result, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    toolResult.Content,
					ToolCallID: toolResult.ToolCallID,
				})
			}
		} else {
			result = append(result, oaiMsg)
		}
	}

	return result
}

func (p *Provider) convertTools(tools []types.Tool) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}

	result := make([]openai.Tool, len(tools))
	for i, t := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}

	return result
}
