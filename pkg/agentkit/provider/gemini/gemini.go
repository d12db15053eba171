package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/tinselworks/elfagent/pkg/agentkit/provider"
	"github.com/tinselworks/elfagent/pkg/agentkit/types"
)

// Provider implements the LanguageModel interface for Google Gemini.
type Provider struct {
	client *genai.Client

	RequestSettings RequestSettings

	googleSearch bool
	retry        provider.RetryPolicy
}

type RequestSettings struct {
	Model           string
	MaxOutputTokens int32
	Temperature     float32
	TopP            float32
}

type Option func(*Provider)

// WithGoogleSearch enables the model's native web-search grounding.
// Gemini does not allow mixing search grounding with function tools, so
// agents using this option should carry no other tools.
func WithGoogleSearch() Option {
	return func(p *Provider) {
		p.googleSearch = true
	}
}

func WithRetryPolicy(policy provider.RetryPolicy) Option {
	return func(p *Provider) {
		p.retry = policy
	}
}

// New creates a new Gemini provider. It fails fast on a missing API key
// or model identifier.
func New(ctx context.Context, apiKey, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		return nil, errors.New("gemini model identifier is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	p := &Provider{
		client: client,
		RequestSettings: RequestSettings{
			Model:           model,
			MaxOutputTokens: 4096,
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
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: p.RequestSettings.MaxOutputTokens,
	}

	if p.RequestSettings.Temperature > 0 {
		config.Temperature = genai.Ptr(p.RequestSettings.Temperature)
	}
	if p.RequestSettings.TopP > 0 {
		config.TopP = genai.Ptr(p.RequestSettings.TopP)
	}

	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(req.System)},
		}
	}

	if p.googleSearch {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	} else if tools := p.convertTools(req.Tools); len(tools) > 0 {
		config.Tools = tools
	}

	contents := p.convertMessages(req.Messages)

	var resp *genai.GenerateContentResponse
	err := p.retry.Retry(ctx, statusOf, func() error {
		var callErr error
		resp, callErr = p.client.Models.GenerateContent(ctx, p.RequestSettings.Model, contents, config)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("gemini api error: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, types.ErrEmptyResponse
	}

	candidate := resp.Candidates[0]

	response := &types.GenerateResponse{
		FinishReason: mapFinishReason(candidate.FinishReason),
		Model:        p.RequestSettings.Model,
	}

	if resp.UsageMetadata != nil {
		response.Usage = types.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				response.Content += part.Text
			}
			if part.FunctionCall != nil {
				response.ToolCalls = append(response.ToolCalls, types.ToolCall{
					// Gemini doesn't provide call IDs, generate one
					ID:        uuid.New().String(),
					Name:      part.FunctionCall.Name,
					Arguments: part.FunctionCall.Args,
				})
			}
		}
	}

	if len(response.ToolCalls) > 0 {
		response.FinishReason = types.FinishReasonToolCalls
	}

	return response, nil
}

func statusOf(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}

	return 0
}

func (p *Provider) convertMessages(messages []types.Message) []*genai.Content {
	// Map tool call ids back to function names; Gemini addresses
	// function responses by name, not id.
	callNames := map[string]string{}
	for _, msg := range messages {
		for _, tc := range msg.ToolCalls {
			callNames[tc.ID] = tc.Name
		}
	}

	var result []*genai.Content

	for _, msg := range messages {
		// System messages are handled via SystemInstruction
		if msg.Role == types.RoleSystem {
			continue
		}

		role := "user"
		if msg.Role == types.RoleAssistant {
			role = "model"
		}

		var parts []*genai.Part

		if msg.Content != "" && msg.Role != types.RoleTool {
			parts = append(parts, genai.NewPartFromText(msg.Content))
		}

		for _, tc := range msg.ToolCalls {
			parts = append(parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{
					Name: tc.Name,
					Args: tc.Arguments,
				},
			})
		}

		for _, tr := range msg.ToolResults {
			parts = append(parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					Name: callNames[tr.ToolCallID],
					Response: map[string]any{
						"result":   tr.Content,
						"is_error": tr.IsError,
					},
				},
			})
		}

		if len(parts) > 0 {
			result = append(result, &genai.Content{
				Role:  role,
				Parts: parts,
			})
		}
	}

	return result
}

func (p *Provider) convertTools(tools []types.Tool) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}

	var declarations []*genai.FunctionDeclaration
	for _, t := range tools {
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  convertParametersToSchema(t.Parameters),
		})
	}

	return []*genai.Tool{{
		FunctionDeclarations: declarations,
	}}
}

// convertParametersToSchema converts a JSON schema map to genai.Schema
func convertParametersToSchema(params map[string]any) *genai.Schema {
	if params == nil {
		return nil
	}

	schema := &genai.Schema{
		Type: genai.TypeObject,
	}

	if typeVal, ok := params["type"].(string); ok {
		schema.Type = mapSchemaType(typeVal)
	}

	if desc, ok := params["description"].(string); ok {
		schema.Description = desc
	}

	if props, ok := params["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema)
		for name, propVal := range props {
			if propMap, ok := propVal.(map[string]any); ok {
				schema.Properties[name] = convertParametersToSchema(propMap)
			}
		}
	}

	if required, ok := params["required"].([]any); ok {
		for _, r := range required {
			if str, ok := r.(string); ok {
				schema.Required = append(schema.Required, str)
			}
		}
	}
	if required, ok := params["required"].([]string); ok {
		schema.Required = append(schema.Required, required...)
	}

	if items, ok := params["items"].(map[string]any); ok {
		schema.Items = convertParametersToSchema(items)
	}

	if enumVals, ok := params["enum"].([]any); ok {
		for _, e := range enumVals {
			if str, ok := e.(string); ok {
				schema.Enum = append(schema.Enum, str)
			}
		}
	}

	return schema
}

func mapSchemaType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

func mapFinishReason(reason genai.FinishReason) string {
	switch reason {
	case genai.FinishReasonStop:
		return types.FinishReasonStop
	case genai.FinishReasonMaxTokens:
		return types.FinishReasonLength
	case genai.FinishReasonSafety, genai.FinishReasonRecitation:
		return types.FinishReasonContentFilter
	default:
		return types.FinishReasonStop
	}
}
