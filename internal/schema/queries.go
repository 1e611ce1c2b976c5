package schema

import (
	"context"
	"database/sql"

	"github.com/Mzubac125/azure-sql-chatbot/internal/database"
)

// catalogQueries holds the information_schema queries for one dialect.
// Each query returns the columns expected by the matching get* function.
type catalogQueries struct {
	tables       string
	columns      string
	primaryKeys  string
	foreignKeys  string
	rowEstimates string
}

func catalogQueriesFor(dialect database.Dialect) catalogQueries {
	if dialect.Kind == database.SQLServer {
		return sqlServerQueries
	}
	return postgresQueries
}

var postgresQueries = catalogQueries{
	tables: `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`,
	columns: `
		SELECT
			c.table_name,
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES' AS nullable,
			COALESCE(pgd.description, '') AS comment
		FROM information_schema.columns c
		LEFT JOIN pg_catalog.pg_statio_all_tables st
			ON st.schemaname = c.table_schema AND st.relname = c.table_name
		LEFT JOIN pg_catalog.pg_description pgd
			ON pgd.objoid = st.relid AND pgd.objsubid = c.ordinal_position
		WHERE c.table_schema = 'public'
		ORDER BY c.table_name, c.ordinal_position`,
	primaryKeys: `
		SELECT
			tc.table_name,
			kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = 'public'
		ORDER BY tc.table_name, kcu.ordinal_position`,
	foreignKeys: `
		SELECT
			tc.table_name,
			kcu.column_name,
			ccu.table_name AS foreign_table,
			ccu.column_name AS foreign_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
			AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = 'public'`,
	rowEstimates: `
		SELECT relname, reltuples::bigint
		FROM pg_class
		WHERE relnamespace = 'public'::regnamespace
		  AND relkind = 'r'`,
}

// SQL Server exposes extended properties instead of comments; they are left
// out, so the comment column is always empty.
var sqlServerQueries = catalogQueries{
	tables: `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = 'dbo'
		  AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`,
	columns: `
		SELECT
			TABLE_NAME,
			COLUMN_NAME,
			DATA_TYPE,
			CAST(CASE WHEN IS_NULLABLE = 'YES' THEN 1 ELSE 0 END AS BIT) AS nullable,
			'' AS comment
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = 'dbo'
		ORDER BY TABLE_NAME, ORDINAL_POSITION`,
	primaryKeys: `
		SELECT
			tc.TABLE_NAME,
			kcu.COLUMN_NAME
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
			ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
			AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
		WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
		  AND tc.TABLE_SCHEMA = 'dbo'
		ORDER BY tc.TABLE_NAME, kcu.ORDINAL_POSITION`,
	foreignKeys: `
		SELECT
			fk.TABLE_NAME,
			fk.COLUMN_NAME,
			pk.TABLE_NAME AS foreign_table,
			pk.COLUMN_NAME AS foreign_column
		FROM INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS rc
		JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE fk
			ON fk.CONSTRAINT_NAME = rc.CONSTRAINT_NAME
			AND fk.CONSTRAINT_SCHEMA = rc.CONSTRAINT_SCHEMA
		JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE pk
			ON pk.CONSTRAINT_NAME = rc.UNIQUE_CONSTRAINT_NAME
			AND pk.CONSTRAINT_SCHEMA = rc.UNIQUE_CONSTRAINT_SCHEMA
			AND pk.ORDINAL_POSITION = fk.ORDINAL_POSITION
		WHERE fk.TABLE_SCHEMA = 'dbo'`,
	rowEstimates: `
		SELECT t.name, CAST(SUM(p.rows) AS BIGINT)
		FROM sys.tables t
		JOIN sys.partitions p
			ON p.object_id = t.object_id AND p.index_id IN (0, 1)
		GROUP BY t.name`,
}

// loadSQLiteTables uses sqlite_master and the table-valued pragmas; sqlite
// has no information_schema.
func loadSQLiteTables(ctx context.Context, db *sql.DB) ([]Table, error) {
	tableNames, err := getTableNames(ctx, db, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, err
	}

	columns := make(map[string][]Column, len(tableNames))
	primaryKeys := make(map[string][]string)
	foreignKeys := make(map[string][]ForeignKey)

	for _, name := range tableNames {
		cols, pks, err := sqliteColumns(ctx, db, name)
		if err != nil {
			return nil, err
		}
		columns[name] = cols
		primaryKeys[name] = pks

		fks, err := sqliteForeignKeys(ctx, db, name)
		if err != nil {
			return nil, err
		}
		foreignKeys[name] = fks
	}

	return assemble(tableNames, columns, primaryKeys, foreignKeys, map[string]int64{}), nil
}

func sqliteColumns(ctx context.Context, db *sql.DB, table string) ([]Column, []string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, type, "notnull", pk FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var (
		cols []Column
		pks  []string
	)
	for rows.Next() {
		var (
			col     Column
			notNull int
			pk      int
		)
		if err := rows.Scan(&col.Name, &col.Type, &notNull, &pk); err != nil {
			return nil, nil, err
		}
		col.Nullable = notNull == 0 && pk == 0
		if pk > 0 {
			pks = append(pks, col.Name)
		}
		cols = append(cols, col)
	}
	return cols, pks, rows.Err()
}

func sqliteForeignKeys(ctx context.Context, db *sql.DB, table string) ([]ForeignKey, error) {
	rows, err := db.QueryContext(ctx, `SELECT "from", "table", "to" FROM pragma_foreign_key_list(?)`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		var fk ForeignKey
		var to sql.NullString
		if err := rows.Scan(&fk.Column, &fk.ForeignTable, &to); err != nil {
			return nil, err
		}
		fk.ForeignColumn = to.String
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}
