package tools

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Mzubac125/azure-sql-chatbot/internal/database"
	"github.com/Mzubac125/azure-sql-chatbot/internal/schema"
	"github.com/Mzubac125/azure-sql-chatbot/internal/sqlguard"
)

const (
	ListTablesName   = "sql_db_list_tables"
	SchemaName       = "sql_db_schema"
	QueryCheckerName = "sql_db_query_checker"
	QueryName        = "sql_db_query"

	defaultMaxRows = 200
	sampleRows     = 3
)

// SQLToolkit binds the SQL tools to one database.
type SQLToolkit struct {
	DB      *sql.DB
	Schema  *schema.Cache
	MaxRows int // rows returned by sql_db_query; <= 0 means 200
}

// NewSQLToolkit returns a toolkit with default limits.
func NewSQLToolkit(db *sql.DB, cache *schema.Cache) *SQLToolkit {
	return &SQLToolkit{DB: db, Schema: cache, MaxRows: defaultMaxRows}
}

// ListTablesInput takes no arguments.
type ListTablesInput struct{}

// SchemaInput names the tables to describe.
type SchemaInput struct {
	TableNames string `json:"table_names" jsonschema_description:"Comma-separated list of tables to describe, e.g. 'Members, BankAccounts'. Call sql_db_list_tables first to learn valid names."`
}

// QueryInput carries one statement for the checker and query tools.
type QueryInput struct {
	Query string `json:"query" jsonschema_description:"A single, syntactically correct read-only SQL query."`
}

// QueryResult is the JSON payload returned by sql_db_query.
type QueryResult struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	Truncated bool     `json:"truncated,omitempty"`
}

// Definitions returns the tools in the order the model should use them.
func (k *SQLToolkit) Definitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        ListTablesName,
			Description: "Input is an empty object, output is a comma-separated list of tables in the database.",
			InputSchema: GenerateSchema[ListTablesInput](),
			Function:    k.ListTables,
		},
		{
			Name: SchemaName,
			Description: "Input is a comma-separated list of tables, output is the schema and sample rows for those tables. " +
				"Be sure that the tables actually exist by calling sql_db_list_tables first!",
			InputSchema: GenerateSchema[SchemaInput](),
			Function:    k.DescribeTables,
		},
		{
			Name: QueryCheckerName,
			Description: "Use this tool to double check if your query is allowed before executing it. " +
				"Always use this tool before executing a query with sql_db_query!",
			InputSchema: GenerateSchema[QueryInput](),
			Function:    k.CheckQuery,
		},
		{
			Name: QueryName,
			Description: "Input is a detailed and correct read-only SQL query, output is a JSON result from the database. " +
				"If the query is not correct, an error message will be returned. If an error is returned, rewrite the query, check it, and try again.",
			InputSchema: GenerateSchema[QueryInput](),
			Function:    k.RunQuery,
		},
	}
}

// ListTables reloads the catalog and returns the table names.
func (k *SQLToolkit) ListTables(ctx context.Context, _ json.RawMessage) (string, error) {
	if err := k.Schema.Load(ctx, k.DB); err != nil {
		return "", err
	}
	names := k.Schema.TableNames()
	if len(names) == 0 {
		return "", fmt.Errorf("the database has no tables")
	}
	return strings.Join(names, ", "), nil
}

// DescribeTables renders the schema and a few sample rows of each named table.
func (k *SQLToolkit) DescribeTables(ctx context.Context, input json.RawMessage) (string, error) {
	var in SchemaInput
	if err := decode(input, &in); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}

	if !k.Schema.Loaded() {
		if err := k.Schema.Load(ctx, k.DB); err != nil {
			return "", err
		}
	}

	var (
		tables  []schema.Table
		missing []string
	)
	for _, raw := range strings.Split(in.TableNames, ",") {
		name := strings.Trim(strings.TrimSpace(raw), "[]\"`")
		if name == "" {
			continue
		}
		t, ok := k.Schema.Lookup(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		tables = append(tables, t)
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("table_names %s not found in database; available tables: %s",
			strings.Join(missing, ", "), strings.Join(k.Schema.TableNames(), ", "))
	}
	if len(tables) == 0 {
		return "", fmt.Errorf("table_names is required")
	}

	var sb strings.Builder
	for i, t := range tables {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(t.Text())
		sb.WriteString(k.samples(ctx, t))
	}
	return sb.String(), nil
}

// samples returns a tab-separated preview block. Failures are reported inline
// since the schema alone is still useful.
func (k *SQLToolkit) samples(ctx context.Context, t schema.Table) string {
	query := k.Schema.Dialect().SampleQuery(t.Name, sampleRows)
	result, err := k.query(ctx, query, sampleRows)
	if err != nil {
		return fmt.Sprintf("/* sample rows unavailable: %v */\n", err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("/*\n%d rows from %s table:\n", len(result.Rows), t.Name))
	sb.WriteString(strings.Join(result.Columns, "\t"))
	sb.WriteString("\n")
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		sb.WriteString(strings.Join(cells, "\t"))
		sb.WriteString("\n")
	}
	sb.WriteString("*/\n")
	return sb.String()
}

// CheckQuery runs the statement guard without touching the database.
func (k *SQLToolkit) CheckQuery(_ context.Context, input json.RawMessage) (string, error) {
	var in QueryInput
	if err := decode(input, &in); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	query, err := sqlguard.Check(in.Query, k.syntax())
	if err != nil {
		return "", err
	}
	return query, nil
}

// RunQuery executes a guarded read-only query and returns rows as JSON.
func (k *SQLToolkit) RunQuery(ctx context.Context, input json.RawMessage) (string, error) {
	var in QueryInput
	if err := decode(input, &in); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	query, err := sqlguard.Check(in.Query, k.syntax())
	if err != nil {
		return "", err
	}

	limit := k.MaxRows
	if limit <= 0 {
		limit = defaultMaxRows
	}
	result, err := k.query(ctx, query, limit)
	if err != nil {
		return "", err
	}

	b, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// syntax picks the guard's quoting rules for the connected database. Without
// a known dialect every rule set must accept the query.
func (k *SQLToolkit) syntax() sqlguard.Syntax {
	if k.Schema == nil {
		return sqlguard.Strict
	}
	switch k.Schema.Dialect().Kind {
	case database.SQLServer:
		return sqlguard.TSQL
	case database.Postgres:
		return sqlguard.PostgreSQL
	case database.SQLite:
		return sqlguard.SQLite
	default:
		return sqlguard.Strict
	}
}

// query is only reached with statements that passed sqlguard or were built
// from catalog names.
func (k *SQLToolkit) query(ctx context.Context, query string, limit int) (*QueryResult, error) {
	rows, err := k.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &QueryResult{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		if len(result.Rows) >= limit {
			result.Truncated = true
			break
		}
		values, err := scanRow(rows, len(columns))
		if err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, normalizeRow(values))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanRow(rows *sql.Rows, numCols int) ([]any, error) {
	values := make([]any, numCols)
	ptrs := make([]any, numCols)
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return values, nil
}

func normalizeRow(values []any) []any {
	row := make([]any, len(values))
	for i, v := range values {
		switch val := v.(type) {
		case nil:
			row[i] = nil
		case []byte:
			row[i] = string(val)
		case time.Time:
			row[i] = val.Format(time.RFC3339Nano)
		default:
			row[i] = val
		}
	}
	return row
}

func formatCell(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
