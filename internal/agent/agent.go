// Package agent answers natural-language questions by letting an LLM drive
// the SQL tools until it produces a final answer.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Mzubac125/azure-sql-chatbot/internal/answer"
	"github.com/Mzubac125/azure-sql-chatbot/internal/llm"
	"github.com/Mzubac125/azure-sql-chatbot/internal/observability"
	"github.com/Mzubac125/azure-sql-chatbot/internal/tools"
)

// DefaultMaxSteps bounds the number of LLM completions per question.
const DefaultMaxSteps = 15

var (
	ErrEmptyQuestion       = errors.New("question is required")
	ErrDatabaseUnavailable = errors.New("database unavailable")
	ErrStepLimit           = errors.New("agent stopped due to iteration limit")
	ErrEmptyAnswer         = errors.New("model returned an empty answer")
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Answer is the outcome of one question.
type Answer struct {
	Text       string
	Statements []string // read-only SQL the model ran, in order
	Steps      int      // LLM completions issued
	Tokens     int
}

// Options tune an Agent. Zero values select defaults.
type Options struct {
	MaxSteps int
	Timeout  time.Duration // 0 disables the per-question deadline
	Logger   *zap.Logger
}

// Agent is safe for concurrent use; it keeps no state between questions.
type Agent struct {
	provider llm.Provider
	db       Pinger
	tools    []tools.ToolDefinition
	system   string
	maxSteps int
	timeout  time.Duration
	logger   *zap.Logger
}

// New builds an agent over an already connected database. toolDefs are
// offered to the model on every step.
func New(provider llm.Provider, db Pinger, toolDefs []tools.ToolDefinition, systemPrompt string, opts Options) *Agent {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Agent{
		provider: provider,
		db:       db,
		tools:    toolDefs,
		system:   systemPrompt,
		maxSteps: opts.MaxSteps,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
	}
}

// Ask runs the tool loop for one question. Tool failures are reported back to
// the model; only database, provider, and step-limit failures are returned.
func (a *Agent) Ask(ctx context.Context, question string) (ans Answer, err error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}

	start := time.Now()
	defer func() {
		observability.ObserveQuestion(ans.Steps, ans.Tokens, time.Since(start), err)
		if err != nil {
			a.logger.Warn("question failed",
				zap.Int("question_len", len(question)),
				zap.Int("steps", ans.Steps),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
			return
		}
		a.logger.Info("question answered",
			zap.Int("question_len", len(question)),
			zap.Int("steps", ans.Steps),
			zap.Int("tokens", ans.Tokens),
			zap.Int("statements", len(ans.Statements)),
			zap.Bool("results_format", answer.IsCanonical(ans.Text)),
			zap.Duration("elapsed", time.Since(start)))
	}()

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	if err := a.db.PingContext(ctx); err != nil {
		return Answer{}, fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
	}

	conv := []llm.Message{llm.UserMessage(question)}
	for ans.Steps < a.maxSteps {
		resp, err := a.provider.Complete(ctx, llm.Request{
			System:   a.system,
			Messages: conv,
			Tools:    a.tools,
		})
		ans.Steps++
		if err != nil {
			return ans, fmt.Errorf("llm: %w", err)
		}
		ans.Tokens += resp.Tokens
		conv = append(conv, resp.Message)

		if !resp.WantsTools() {
			ans.Text = answer.Normalize(resp.Message.Content)
			if ans.Text == "" {
				return ans, fmt.Errorf("llm: %w", ErrEmptyAnswer)
			}
			return ans, nil
		}

		for _, call := range resp.Message.ToolCalls {
			conv = append(conv, a.execTool(ctx, call, &ans))
		}
	}
	return ans, ErrStepLimit
}

func (a *Agent) execTool(ctx context.Context, call llm.ToolCall, ans *Answer) llm.Message {
	def := tools.Find(a.tools, call.Name)
	if def == nil {
		a.logger.Debug("unknown tool requested", zap.String("tool", call.Name))
		return llm.ToolMessage(call.ID, fmt.Sprintf("tool not found: %s", call.Name), true)
	}

	start := time.Now()
	out, err := def.Function(ctx, call.Arguments)
	elapsed := time.Since(start)
	observability.ObserveToolCall(call.Name, elapsed, err)
	a.logger.Debug("tool call",
		zap.String("tool", call.Name),
		zap.Duration("duration", elapsed),
		zap.Error(err))

	if err != nil {
		return llm.ToolMessage(call.ID, err.Error(), true)
	}
	if call.Name == tools.QueryName {
		q := queryOf(call.Arguments)
		ans.Statements = append(ans.Statements, q)
		a.logger.Debug("executed sql", zap.String("sql", q))
	}
	return llm.ToolMessage(call.ID, out, false)
}

func queryOf(args json.RawMessage) string {
	var in tools.QueryInput
	if err := json.Unmarshal(args, &in); err != nil {
		return ""
	}
	return strings.TrimSpace(in.Query)
}
