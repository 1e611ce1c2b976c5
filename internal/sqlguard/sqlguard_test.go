package sqlguard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allSyntaxes = []Syntax{Strict, TSQL, PostgreSQL, SQLite}

func rejected(err error) bool {
	return errors.Is(err, ErrNotReadOnly) || errors.Is(err, ErrMultipleStatements)
}

func TestCheckAccepts(t *testing.T) {
	cases := map[string]string{
		"SELECT 1":                      "SELECT 1",
		"  select branch from Members; ": "select branch from Members",
		"WITH t AS (SELECT 1 AS x) SELECT x FROM t;;": "WITH t AS (SELECT 1 AS x) SELECT x FROM t",
		"SELECT [branch], SUM([profit]) AS total FROM [Members] GROUP BY [branch] ORDER BY total DESC": "SELECT [branch], SUM([profit]) AS total FROM [Members] GROUP BY [branch] ORDER BY total DESC",
		"SELECT 'drop table x; delete' AS note":  "SELECT 'drop table x; delete' AS note",
		`SELECT "delete" FROM t`:                 `SELECT "delete" FROM t`,
		"SELECT 1 -- ; DROP TABLE Members":       "SELECT 1 -- ; DROP TABLE Members",
		"SELECT updated_at, deleted_flag FROM t": "SELECT updated_at, deleted_flag FROM t",
		"SELECT 'it''s; fine'":                   "SELECT 'it''s; fine'",
		"SELECT 1 /* note */ AS x":               "SELECT 1 /* note */ AS x",
	}
	for in, want := range cases {
		for _, s := range allSyntaxes {
			got, err := Check(in, s)
			require.NoError(t, err, "%q under %d", in, s)
			assert.Equal(t, want, got)
		}
	}
}

func TestCheckAcceptsDialectQuoting(t *testing.T) {
	cases := []struct {
		syntax Syntax
		query  string
	}{
		{TSQL, "SELECT [update] FROM [insert]"},
		{TSQL, "SELECT [a]]; delete] FROM t"},
		{TSQL, "SELECT 1 /* outer /* inner */ still ; comment */ AS x"},
		{SQLite, "SELECT `delete` FROM `insert`"},
		{SQLite, "SELECT [update] FROM t"},
		{PostgreSQL, "SELECT $$it's; fine$$ AS note"},
		{PostgreSQL, "SELECT $q$ DROP TABLE x; $q$ AS note"},
		{PostgreSQL, "SELECT a$b FROM t WHERE id = $1"},
		{PostgreSQL, "SELECT arr[1] FROM t"},
	}
	for _, tc := range cases {
		_, err := Check(tc.query, tc.syntax)
		assert.NoError(t, err, "%q under %d", tc.query, tc.syntax)
	}
}

func TestCheckRejectsMutations(t *testing.T) {
	cases := []string{
		"INSERT INTO Members VALUES (1)",
		"update Members set profit = 0",
		"DELETE FROM Members",
		"DROP TABLE Members",
		"  drop table [Members]",
		"TRUNCATE TABLE Members",
		"ALTER TABLE Members ADD x INT",
		"CREATE TABLE x (id INT)",
		"EXEC sp_who",
		"MERGE INTO t USING s ON 1=1 WHEN MATCHED THEN DELETE;",
		"SELECT * INTO backup FROM Members",
		"WITH d AS (DELETE FROM Members RETURNING *) SELECT * FROM d",
		"/* hi */ DELETE FROM Members",
	}
	for _, in := range cases {
		for _, s := range allSyntaxes {
			_, err := Check(in, s)
			assert.ErrorIs(t, err, ErrNotReadOnly, "%q under %d", in, s)
		}
	}
}

// A quote character inside a construct one dialect knows and another does
// not must never hide a second statement.
func TestCheckRejectsHiddenStatements(t *testing.T) {
	cases := []struct {
		query    string
		syntaxes []Syntax
	}{
		{"SELECT 1 AS `'`; DELETE FROM Members; --'", allSyntaxes},
		{"SELECT $$'$$; DROP TABLE Members; --", allSyntaxes},
		{`SELECT E'\''; DROP TABLE Members; --'`, []Syntax{Strict, PostgreSQL}},
		{`SELECT e'\\'; DROP TABLE Members; --'`, []Syntax{Strict, PostgreSQL}},
		{"SELECT $tag$'$tag$; DELETE FROM Members; --", allSyntaxes},
		{"SELECT 1 /* /* */ ' */ ; DELETE FROM Members; --'", []Syntax{Strict, TSQL, PostgreSQL}},
		{"SELECT 1 --x\r; DELETE FROM Members", allSyntaxes},
		{"SELECT 'open", allSyntaxes},
		{"SELECT [open", []Syntax{Strict, TSQL, SQLite}},
		{`SELECT "open`, allSyntaxes},
		{"SELECT 1 /* open", allSyntaxes},
		{"SELECT $$ open", []Syntax{Strict, PostgreSQL}},
		{"SELECT `x` FROM t", []Syntax{Strict, TSQL, PostgreSQL}},
	}
	for _, tc := range cases {
		for _, s := range tc.syntaxes {
			_, err := Check(tc.query, s)
			assert.True(t, rejected(err), "%q under %d: %v", tc.query, s, err)
		}
	}
}

func TestCheckRejectsMultipleStatements(t *testing.T) {
	cases := []string{
		"SELECT 1; SELECT 2",
		"SELECT 1; DROP TABLE Members",
		"SELECT 1;\nDELETE FROM Members;",
	}
	for _, in := range cases {
		_, err := Check(in, Strict)
		assert.ErrorIs(t, err, ErrMultipleStatements, in)
	}
}

func TestCheckRejectsEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", ";", " ; ; ", "-- only a comment"} {
		_, err := Check(in, Strict)
		assert.ErrorIs(t, err, ErrEmptyQuery, "%q", in)
	}
}
