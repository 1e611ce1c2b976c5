package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mzubac125/azure-sql-chatbot/internal/agent"
	"github.com/Mzubac125/azure-sql-chatbot/internal/config"
	"github.com/Mzubac125/azure-sql-chatbot/internal/database"
	"github.com/Mzubac125/azure-sql-chatbot/internal/llm"
	"github.com/Mzubac125/azure-sql-chatbot/internal/observability"
	"github.com/Mzubac125/azure-sql-chatbot/internal/schema"
	"github.com/Mzubac125/azure-sql-chatbot/internal/tools"
)

var rootCmd = &cobra.Command{
	Use:   "sqlchat",
	Short: "Ask questions about an Azure SQL database in natural language",
	Long: `sqlchat answers natural-language questions about a SQL database. An LLM
lists tables, inspects schemas, and runs read-only queries through a fixed set
of tools, then replies in a strict "Here are the results:" format.

Settings come from the environment (a .env file is loaded when present).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(chatCmd, serveCmd, seedCmd)
}

func main() {
	_ = godotenv.Load() // loads .env if present, silently ignores if not

	if err := rootCmd.Execute(); err != nil {
		var connErr *connectError
		if errors.As(err, &connErr) {
			fmt.Fprintln(os.Stderr, connErr.Error())
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// connectError is reported as "Error connecting to database: ...".
type connectError struct {
	err error
}

func (e *connectError) Error() string { return "Error connecting to database: " + e.err.Error() }
func (e *connectError) Unwrap() error { return e.err }

// deps bundles what the subcommands share.
type deps struct {
	cfg     config.Config
	logger  *zap.Logger
	db      *sql.DB
	dialect database.Dialect
}

// setup loads configuration, builds the logger, and connects. Every failure
// before a connection exists is reported as a connection error.
func setup(ctx context.Context) (*deps, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, &connectError{err: err}
	}

	logger, err := observability.NewLogger(cfg.Log)
	if err != nil {
		return nil, &connectError{err: err}
	}

	if err := cfg.ValidateDatabase(); err != nil {
		logger.Error("Error connecting to database", zap.Error(err))
		return nil, &connectError{err: err}
	}
	db, dialect, err := database.Open(ctx, cfg.Database)
	if err != nil {
		logger.Error("Error connecting to database", zap.Error(err))
		return nil, &connectError{err: err}
	}
	logger.Info("connected to database", zap.String("driver", dialect.Driver))

	return &deps{cfg: cfg, logger: logger, db: db, dialect: dialect}, nil
}

func (rt *deps) Close() {
	_ = rt.db.Close()
	_ = rt.logger.Sync()
}

// newAgent builds the single agent shared by a surface.
func (rt *deps) newAgent(ctx context.Context) (*agent.Agent, *schema.Cache, error) {
	if err := rt.cfg.ValidateLLM(); err != nil {
		return nil, nil, err
	}
	provider, err := llm.NewProvider(rt.cfg.LLM, nil)
	if err != nil {
		return nil, nil, err
	}

	profile, err := llm.LoadProfile(rt.cfg.Agent.PromptFile)
	if err != nil {
		return nil, nil, err
	}

	cache := schema.NewCache(rt.dialect)
	if err := cache.Load(ctx, rt.db); err != nil {
		rt.logger.Warn("failed to load schema", zap.Error(err))
	} else {
		rt.logger.Info("loaded schema", zap.Int("tables", cache.TableCount()))
	}

	toolkit := tools.NewSQLToolkit(rt.db, cache)
	a := agent.New(provider, rt.db, toolkit.Definitions(), llm.BuildSystemPrompt(rt.dialect, profile), agent.Options{
		MaxSteps: rt.cfg.Agent.MaxSteps,
		Timeout:  rt.cfg.Agent.Timeout,
		Logger:   rt.logger,
	})
	rt.logger.Info("LLM provider initialized", zap.String("provider", provider.Name()))
	return a, cache, nil
}
