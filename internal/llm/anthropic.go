package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements the Provider interface for Anthropic's Claude API.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey, model, baseURL string, httpClient *http.Client) *AnthropicProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Complete sends the conversation to the Messages API.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(maxTokens),
		Messages:    anthropicMessages(req.Messages),
		Temperature: anthropic.Float(0),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	for _, def := range req.Tools {
		schema := anthropic.ToolInputSchemaParam{}
		if def.InputSchema != nil {
			if def.InputSchema.Properties != nil {
				schema.Properties = def.InputSchema.Properties
			}
			schema.Required = def.InputSchema.Required
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        def.Name,
			Description: anthropic.String(def.Description),
			InputSchema: schema,
		}})
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return Response{}, fmt.Errorf("API error (status %d): %w", apiErr.StatusCode, err)
		}
		return Response{}, fmt.Errorf("request messages: %w", err)
	}

	out := Message{Role: RoleAssistant}
	var text []string
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			text = append(text, v.Text)
		case anthropic.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        v.ID,
				Name:      v.Name,
				Arguments: json.RawMessage(v.JSON.Input.Raw()),
			})
		}
	}
	out.Content = strings.Join(text, "\n")

	return Response{
		Message: out,
		Tokens:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}, nil
}

// anthropicMessages converts the conversation. Consecutive tool results are
// folded into a single user message, as the API requires.
func anthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	foldable := false
	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
			foldable = false
		case RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				input := tc.Arguments
				if len(input) == 0 {
					input = json.RawMessage(`{}`)
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{OfToolUse: &anthropic.ToolUseBlockParam{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Name,
					Input: input,
				}})
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
			foldable = false
		case RoleTool:
			if m.ToolResult == nil {
				continue
			}
			block := anthropic.NewToolResultBlock(m.ToolResult.CallID, m.ToolResult.Content, m.ToolResult.IsError)
			if foldable {
				last := &out[len(out)-1]
				last.Content = append(last.Content, block)
				continue
			}
			out = append(out, anthropic.NewUserMessage(block))
			foldable = true
		}
	}
	return out
}

var _ Provider = (*AnthropicProvider)(nil)
