// Package schema provides database schema introspection and caching for the
// agent's list-tables and describe-table tools.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Mzubac125/azure-sql-chatbot/internal/database"
)

// Cache holds the database schema information for the agent.
type Cache struct {
	Tables      []Table
	LastRefresh time.Time
	dialect     database.Dialect
	mu          sync.RWMutex
}

// Table represents a database table and its structure.
type Table struct {
	Name        string
	Columns     []Column
	ForeignKeys []ForeignKey
	RowEstimate int64
}

// Column represents a table column.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	IsPK     bool
	Comment  string
}

// ForeignKey represents a foreign key relationship.
type ForeignKey struct {
	Column        string
	ForeignTable  string
	ForeignColumn string
}

// NewCache creates an empty schema cache for the given dialect.
func NewCache(dialect database.Dialect) *Cache {
	return &Cache{dialect: dialect}
}

// Dialect returns the dialect the cache introspects.
func (c *Cache) Dialect() database.Dialect {
	return c.dialect
}

// Load fetches the schema from the database and caches it.
func (c *Cache) Load(ctx context.Context, db *sql.DB) error {
	tables, err := loadTables(ctx, db, c.dialect)
	if err != nil {
		return fmt.Errorf("load tables: %w", err)
	}

	c.mu.Lock()
	c.Tables = tables
	c.LastRefresh = time.Now()
	c.mu.Unlock()

	return nil
}

// Loaded reports whether Load has succeeded at least once.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.LastRefresh.IsZero()
}

// GetTables returns a copy of the cached tables.
func (c *Cache) GetTables() []Table {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tables := make([]Table, len(c.Tables))
	copy(tables, c.Tables)
	return tables
}

// TableNames returns the cached table names in catalog order.
func (c *Cache) TableNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.Tables))
	for _, t := range c.Tables {
		names = append(names, t.Name)
	}
	return names
}

// Lookup finds a table by case-insensitive name. Model output often
// differs in case from the catalog ("members" vs "Members").
func (c *Cache) Lookup(name string) (Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	name = strings.TrimSpace(name)
	for _, t := range c.Tables {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return Table{}, false
}

// ToText serializes the whole schema in the format used by the describe tool.
func (c *Cache) ToText() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.Tables) == 0 {
		return "(no tables found)"
	}

	var sb strings.Builder
	for i, table := range c.Tables {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(table.Text())
	}
	return sb.String()
}

// TableCount returns the number of cached tables.
func (c *Cache) TableCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.Tables)
}

// GetLastRefresh returns when the schema was last refreshed.
func (c *Cache) GetLastRefresh() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.LastRefresh
}

// Text renders t for the model.
func (t Table) Text() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("TABLE: %s", t.Name))
	if t.RowEstimate > 0 {
		sb.WriteString(fmt.Sprintf(" (~%d rows)", t.RowEstimate))
	}
	sb.WriteString("\n")

	for _, col := range t.Columns {
		sb.WriteString(fmt.Sprintf("  - %s: %s", col.Name, col.Type))

		var attrs []string
		if col.IsPK {
			attrs = append(attrs, "PK")
		}
		if !col.Nullable {
			attrs = append(attrs, "NOT NULL")
		}
		if len(attrs) > 0 {
			sb.WriteString(", " + strings.Join(attrs, ", "))
		}

		for _, fk := range t.ForeignKeys {
			if fk.Column == col.Name {
				sb.WriteString(fmt.Sprintf(" -> %s.%s", fk.ForeignTable, fk.ForeignColumn))
				break
			}
		}

		if col.Comment != "" {
			sb.WriteString(fmt.Sprintf(" // %s", col.Comment))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func loadTables(ctx context.Context, db *sql.DB, dialect database.Dialect) ([]Table, error) {
	if dialect.Kind == database.SQLite {
		return loadSQLiteTables(ctx, db)
	}

	q := catalogQueriesFor(dialect)

	tableNames, err := getTableNames(ctx, db, q.tables)
	if err != nil {
		return nil, err
	}

	columns, err := getColumns(ctx, db, q.columns)
	if err != nil {
		return nil, err
	}

	primaryKeys, err := getPrimaryKeys(ctx, db, q.primaryKeys)
	if err != nil {
		return nil, err
	}

	foreignKeys, err := getForeignKeys(ctx, db, q.foreignKeys)
	if err != nil {
		return nil, err
	}

	rowEstimates, err := getRowEstimates(ctx, db, q.rowEstimates)
	if err != nil {
		// Non-fatal: continue without estimates
		rowEstimates = make(map[string]int64)
	}

	return assemble(tableNames, columns, primaryKeys, foreignKeys, rowEstimates), nil
}

func assemble(
	tableNames []string,
	columns map[string][]Column,
	primaryKeys map[string][]string,
	foreignKeys map[string][]ForeignKey,
	rowEstimates map[string]int64,
) []Table {
	tables := make([]Table, 0, len(tableNames))
	for _, name := range tableNames {
		table := Table{
			Name:        name,
			Columns:     columns[name],
			ForeignKeys: foreignKeys[name],
			RowEstimate: rowEstimates[name],
		}

		pkCols := primaryKeys[name]
		for i := range table.Columns {
			for _, pk := range pkCols {
				if table.Columns[i].Name == pk {
					table.Columns[i].IsPK = true
					break
				}
			}
		}

		tables = append(tables, table)
	}
	sort.SliceStable(tables, func(i, j int) bool {
		return strings.ToLower(tables[i].Name) < strings.ToLower(tables[j].Name)
	})
	return tables
}

func getTableNames(ctx context.Context, db *sql.DB, query string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func getColumns(ctx context.Context, db *sql.DB, query string) (map[string][]Column, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string][]Column)
	for rows.Next() {
		var tableName string
		var col Column
		if err := rows.Scan(&tableName, &col.Name, &col.Type, &col.Nullable, &col.Comment); err != nil {
			return nil, err
		}
		columns[tableName] = append(columns[tableName], col)
	}
	return columns, rows.Err()
}

func getPrimaryKeys(ctx context.Context, db *sql.DB, query string) (map[string][]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pks := make(map[string][]string)
	for rows.Next() {
		var tableName, colName string
		if err := rows.Scan(&tableName, &colName); err != nil {
			return nil, err
		}
		pks[tableName] = append(pks[tableName], colName)
	}
	return pks, rows.Err()
}

func getForeignKeys(ctx context.Context, db *sql.DB, query string) (map[string][]ForeignKey, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fks := make(map[string][]ForeignKey)
	for rows.Next() {
		var tableName string
		var fk ForeignKey
		if err := rows.Scan(&tableName, &fk.Column, &fk.ForeignTable, &fk.ForeignColumn); err != nil {
			return nil, err
		}
		fks[tableName] = append(fks[tableName], fk)
	}
	return fks, rows.Err()
}

func getRowEstimates(ctx context.Context, db *sql.DB, query string) (map[string]int64, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	estimates := make(map[string]int64)
	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		if count < 0 {
			count = 0
		}
		estimates[name] = count
	}
	return estimates, rows.Err()
}
