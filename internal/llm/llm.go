// Package llm provides tool-calling chat providers for the SQL agent.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Mzubac125/azure-sql-chatbot/internal/config"
	"github.com/Mzubac125/azure-sql-chatbot/internal/tools"
)

// Provider defines the interface for LLM integrations.
type Provider interface {
	// Complete sends the conversation and returns the next assistant message,
	// which either carries tool calls or the final text.
	Complete(ctx context.Context, req Request) (Response, error)

	// Name returns the provider name for logging/debugging.
	Name() string
}

// Role of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one provider-neutral conversation entry.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall  // assistant messages only
	ToolResult *ToolResult // tool messages only
}

// ToolCall is a structured request from the model to run a tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolResult answers one ToolCall.
type ToolResult struct {
	CallID  string
	Content string
	IsError bool
}

// Request contains the input for one completion step.
type Request struct {
	System    string
	Messages  []Message
	Tools     []tools.ToolDefinition
	MaxTokens int // 0 = provider default
}

// Response contains the assistant's reply.
type Response struct {
	Message Message
	Tokens  int // Tokens used (for cost tracking)
}

// WantsTools reports whether the model asked for tool execution.
func (r Response) WantsTools() bool {
	return len(r.Message.ToolCalls) > 0
}

// UserMessage builds a user text message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// ToolMessage builds the message answering call.
func ToolMessage(callID, content string, isError bool) Message {
	return Message{Role: RoleTool, ToolResult: &ToolResult{CallID: callID, Content: content, IsError: isError}}
}

const defaultMaxTokens = 1024

// NewProvider creates an LLM provider based on configuration. httpClient may
// be nil.
func NewProvider(cfg config.LLMConfig, httpClient *http.Client) (Provider, error) {
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}

	switch cfg.Provider {
	case "openai":
		if cfg.Model == "" {
			cfg.Model = "gpt-4o-mini"
		}
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL, httpClient), nil

	case "anthropic":
		if cfg.Model == "" {
			cfg.Model = "claude-sonnet-4-20250514"
		}
		return NewAnthropicProvider(cfg.APIKey, cfg.Model, cfg.BaseURL, httpClient), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (supported: openai, anthropic)", cfg.Provider)
	}
}
