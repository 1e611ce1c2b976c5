package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/invopop/jsonschema"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Provider interface for OpenAI-compatible APIs.
// This works with OpenAI, Azure OpenAI proxies, OpenRouter, and other
// services that support function calling.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI-compatible provider.
func NewOpenAIProvider(apiKey, model, baseURL string, httpClient *http.Client) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Complete sends the conversation to the chat completions endpoint.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	payload := openai.ChatCompletionRequest{
		Model:     p.model,
		Messages:  openAIMessages(req),
		MaxTokens: maxTokens,
		// A literal 0 is dropped by omitempty and the API would default to 1.
		Temperature: math.SmallestNonzeroFloat32,
	}
	for _, def := range req.Tools {
		payload.Tools = append(payload.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  functionParameters(def.InputSchema),
			},
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, payload)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return Response{}, fmt.Errorf("API error: %s", apiErr.Message)
		}
		return Response{}, fmt.Errorf("request chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("empty choices array")
	}

	choice := resp.Choices[0].Message
	out := Message{Role: RoleAssistant, Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: []byte(tc.Function.Arguments),
		})
	}

	return Response{Message: out, Tokens: resp.Usage.TotalTokens}, nil
}

func openAIMessages(req Request) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleUser:
			msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content})
		case RoleAssistant:
			cm := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
			for _, tc := range m.ToolCalls {
				cm.ToolCalls = append(cm.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				})
			}
			msgs = append(msgs, cm)
		case RoleTool:
			if m.ToolResult == nil {
				continue
			}
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.ToolResult.Content,
				ToolCallID: m.ToolResult.CallID,
			})
		}
	}
	return msgs
}

// functionParameters flattens a reflected schema into the object schema the
// function-calling API expects.
func functionParameters(s *jsonschema.Schema) map[string]any {
	params := map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
	if s == nil {
		return params
	}
	if s.Properties != nil && s.Properties.Len() > 0 {
		params["properties"] = s.Properties
	}
	if len(s.Required) > 0 {
		params["required"] = s.Required
	}
	return params
}

var _ Provider = (*OpenAIProvider)(nil)
