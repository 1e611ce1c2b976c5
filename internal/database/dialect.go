// Package database opens the chatbot's SQL connection and describes the
// dialect differences the rest of the code has to care about.
package database

import (
	"fmt"
	"strings"
)

// Kind groups drivers that speak the same SQL dialect.
type Kind string

const (
	SQLServer Kind = "sqlserver"
	Postgres  Kind = "postgres"
	SQLite    Kind = "sqlite"
)

// Dialect pairs a database/sql driver name with its SQL flavor.
type Dialect struct {
	Driver string
	Kind   Kind
}

// DialectFor maps a driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlserver", "mssql", "azuresql":
		return Dialect{Driver: "sqlserver", Kind: SQLServer}, nil
	case "postgres", "postgresql":
		return Dialect{Driver: "postgres", Kind: Postgres}, nil
	case "pgx":
		return Dialect{Driver: "pgx", Kind: Postgres}, nil
	case "sqlite", "sqlite3":
		return Dialect{Driver: "sqlite", Kind: SQLite}, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported DB_DRIVER %q (supported: sqlserver, postgres, pgx, sqlite)", driver)
	}
}

// DisplayName is the human name used in the agent prompt.
func (d Dialect) DisplayName() string {
	switch d.Kind {
	case SQLServer:
		return "SQL Server"
	case Postgres:
		return "PostgreSQL"
	case SQLite:
		return "SQLite"
	default:
		return string(d.Kind)
	}
}

// QuoteIdent quotes a table or column name. SQL Server uses square brackets.
func (d Dialect) QuoteIdent(name string) string {
	if d.Kind == SQLServer {
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// BracketIdentifiers reports whether the prompt should ask for [name] quoting.
func (d Dialect) BracketIdentifiers() bool {
	return d.Kind == SQLServer
}

// Placeholder returns the n-th (1-based) bind parameter marker.
func (d Dialect) Placeholder(n int) string {
	switch d.Kind {
	case SQLServer:
		return fmt.Sprintf("@p%d", n)
	case Postgres:
		return fmt.Sprintf("$%d", n)
	default:
		return "?"
	}
}

// Placeholders returns n comma-separated bind markers starting at 1.
func (d Dialect) Placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = d.Placeholder(i + 1)
	}
	return strings.Join(marks, ", ")
}

// SampleQuery selects up to n rows from table.
func (d Dialect) SampleQuery(table string, n int) string {
	if d.Kind == SQLServer {
		return fmt.Sprintf("SELECT TOP %d * FROM %s", n, d.QuoteIdent(table))
	}
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", d.QuoteIdent(table), n)
}
