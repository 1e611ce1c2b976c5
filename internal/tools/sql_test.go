package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mzubac125/azure-sql-chatbot/internal/database"
	"github.com/Mzubac125/azure-sql-chatbot/internal/schema"
	"github.com/Mzubac125/azure-sql-chatbot/internal/sqlguard"
	"github.com/Mzubac125/azure-sql-chatbot/internal/testdb"
	"github.com/Mzubac125/azure-sql-chatbot/internal/tools"
)

func newToolkit(t *testing.T) *tools.SQLToolkit {
	t.Helper()
	db := testdb.Members(t)
	return tools.NewSQLToolkit(db, schema.NewCache(testdb.Dialect))
}

func args(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestDefinitions_NamesAndSchemas(t *testing.T) {
	k := newToolkit(t)
	defs := k.Definitions()

	var names []string
	for _, d := range defs {
		names = append(names, d.Name)
		require.NotNil(t, d.InputSchema, d.Name)
		require.NotNil(t, d.Function, d.Name)
	}
	assert.Equal(t, []string{"sql_db_list_tables", "sql_db_schema", "sql_db_query_checker", "sql_db_query"}, names)

	querySchema := tools.Find(defs, tools.QueryName).InputSchema
	_, ok := querySchema.Properties.Get("query")
	assert.True(t, ok, "query property missing from sql_db_query schema")
	assert.Nil(t, tools.Find(defs, "drop_everything"))
}

func TestListTables(t *testing.T) {
	k := newToolkit(t)
	out, err := k.ListTables(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "BankAccounts, Members", out)
}

func TestDescribeTables(t *testing.T) {
	k := newToolkit(t)
	out, err := k.DescribeTables(context.Background(), args(t, tools.SchemaInput{TableNames: "members, [BankAccounts]"}))
	require.NoError(t, err)

	assert.Contains(t, out, "TABLE: Members")
	assert.Contains(t, out, "  - profit: REAL, NOT NULL")
	assert.Contains(t, out, "3 rows from Members table:")
	assert.Contains(t, out, "membernbr\tmembername\tdate_added\tportfolio_manager\tbranch\tprofit")
	assert.Contains(t, out, "TABLE: BankAccounts")
	assert.Contains(t, out, "2 rows from BankAccounts table:")
}

func TestDescribeTablesUnknown(t *testing.T) {
	k := newToolkit(t)
	_, err := k.DescribeTables(context.Background(), args(t, tools.SchemaInput{TableNames: "Members, Loans"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Loans not found")
	assert.Contains(t, err.Error(), "available tables: BankAccounts, Members")

	_, err = k.DescribeTables(context.Background(), args(t, tools.SchemaInput{TableNames: " , "}))
	assert.ErrorContains(t, err, "table_names is required")
}

func TestRunQuery(t *testing.T) {
	k := newToolkit(t)
	out, err := k.RunQuery(context.Background(), args(t, tools.QueryInput{
		Query: "SELECT branch, SUM(profit) AS total FROM Members GROUP BY branch ORDER BY total DESC;",
	}))
	require.NoError(t, err)

	var res tools.QueryResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []string{"branch", "total"}, res.Columns)
	require.Len(t, res.Rows, len(testdb.ProfitByBranch))
	for i, want := range testdb.ProfitByBranch {
		assert.Equal(t, want.Branch, res.Rows[i][0])
		assert.InDelta(t, want.Total, res.Rows[i][1], 0.005)
	}
	assert.False(t, res.Truncated)
}

func TestRunQueryTruncates(t *testing.T) {
	k := newToolkit(t)
	k.MaxRows = 2
	out, err := k.RunQuery(context.Background(), args(t, tools.QueryInput{Query: "SELECT membernbr FROM Members"}))
	require.NoError(t, err)

	var res tools.QueryResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Len(t, res.Rows, 2)
	assert.True(t, res.Truncated)
}

func TestRunQueryReportsDatabaseErrors(t *testing.T) {
	k := newToolkit(t)
	_, err := k.RunQuery(context.Background(), args(t, tools.QueryInput{Query: "SELECT nope FROM Members"}))
	assert.Error(t, err)
}

func TestCheckQuery(t *testing.T) {
	k := newToolkit(t)
	out, err := k.CheckQuery(context.Background(), args(t, tools.QueryInput{Query: " SELECT 1; "}))
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", out)

	_, err = k.CheckQuery(context.Background(), args(t, tools.QueryInput{Query: "DELETE FROM Members"}))
	assert.ErrorIs(t, err, sqlguard.ErrNotReadOnly)
}

// The mock has no expectations, so any statement that reached the driver
// would fail with a sqlmock error instead of a guard error.
func TestMutatingStatementsNeverReachDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	dialects := []database.Dialect{
		{Driver: "sqlserver", Kind: database.SQLServer},
		{Driver: "postgres", Kind: database.Postgres},
		{Driver: "sqlite", Kind: database.SQLite},
		{},
	}
	queries := []string{
		"INSERT INTO Members (membernbr) VALUES (1)",
		"UPDATE Members SET profit = 0",
		"DELETE FROM Members",
		"DROP TABLE Members",
		"SELECT 1; DROP TABLE Members",
		"select * into MembersCopy from Members",
		"SELECT 1 AS `'`; DELETE FROM Members; --'",
		"SELECT $$'$$; DROP TABLE Members; --",
		"SELECT 'unterminated",
	}
	for _, d := range dialects {
		k := tools.NewSQLToolkit(db, schema.NewCache(d))
		for _, q := range queries {
			_, err := k.RunQuery(context.Background(), args(t, tools.QueryInput{Query: q}))
			require.Error(t, err, "%s: %s", d.Kind, q)
			guarded := errors.Is(err, sqlguard.ErrNotReadOnly) || errors.Is(err, sqlguard.ErrMultipleStatements)
			assert.True(t, guarded, "%s: %q: %v", d.Kind, q, err)
			assert.False(t, strings.Contains(err.Error(), "was not expected"), q)
		}
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEscapeStringNeverReachesDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	k := tools.NewSQLToolkit(db, schema.NewCache(database.Dialect{Driver: "postgres", Kind: database.Postgres}))
	_, err = k.RunQuery(context.Background(), args(t, tools.QueryInput{Query: `SELECT E'\''; DROP TABLE Members; --'`}))
	assert.ErrorIs(t, err, sqlguard.ErrNotReadOnly)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotedIdentifierCannotHideDelete(t *testing.T) {
	k := newToolkit(t)
	before := testdb.Count(t, k.DB, "Members")

	_, err := k.RunQuery(context.Background(), args(t, tools.QueryInput{Query: "SELECT 1 AS `'`; DELETE FROM Members; --'"}))
	assert.ErrorIs(t, err, sqlguard.ErrMultipleStatements)
	assert.Equal(t, before, testdb.Count(t, k.DB, "Members"))
}

func TestRunQueryRejectsBadJSON(t *testing.T) {
	k := newToolkit(t)
	_, err := k.RunQuery(context.Background(), json.RawMessage(`{"query":`))
	assert.ErrorContains(t, err, "invalid input")
}
