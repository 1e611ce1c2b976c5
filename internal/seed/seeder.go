package seed

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Mzubac125/azure-sql-chatbot/internal/database"
	"github.com/Mzubac125/azure-sql-chatbot/internal/observability"
)

// DefaultRows is the number of rows one Run inserts.
const DefaultRows = 500

// Seeder inserts generated Members rows. Runs are not idempotent: every Run
// adds another batch.
type Seeder struct {
	DB        *sql.DB
	Dialect   database.Dialect
	Generator *Generator
	Rows      int
	Logger    *zap.Logger
}

// NewSeeder returns a seeder for DefaultRows rows with a time-seeded generator.
func NewSeeder(db *sql.DB, dialect database.Dialect, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{
		DB:        db,
		Dialect:   dialect,
		Generator: NewGenerator(time.Now().UnixNano()),
		Rows:      DefaultRows,
		Logger:    logger,
	}
}

func (s *Seeder) insertSQL() string {
	return fmt.Sprintf(
		"INSERT INTO %s (membernbr, membername, date_added, portfolio_manager, branch, profit) VALUES (%s)",
		s.Dialect.QuoteIdent("Members"), s.Dialect.Placeholders(6),
	)
}

// Run inserts s.Rows rows in a single transaction and returns how many were
// written. Any failure rolls the whole batch back.
func (s *Seeder) Run(ctx context.Context) (int, error) {
	rows := s.Rows
	if rows <= 0 {
		rows = DefaultRows
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.insertSQL())
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < rows; i++ {
		m := s.Generator.Next()
		if _, err := stmt.ExecContext(ctx,
			m.Number,
			m.Name,
			m.DateAdded.Format(time.DateOnly),
			m.PortfolioManager,
			m.Branch,
			m.Profit,
		); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	observability.AddSeededRows(rows)
	s.Logger.Info("seeded members", zap.Int("rows", rows), zap.String("driver", s.Dialect.Driver))
	return rows, nil
}
