// Package testdb builds small in-memory sqlite databases for tests.
package testdb

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/Mzubac125/azure-sql-chatbot/internal/database"
)

// Dialect is the dialect of every database returned by this package.
var Dialect = database.Dialect{Driver: "sqlite", Kind: database.SQLite}

const membersDDL = `CREATE TABLE Members (
	membernbr INTEGER NOT NULL,
	membername TEXT NOT NULL,
	date_added DATE NOT NULL,
	portfolio_manager TEXT NOT NULL,
	branch TEXT NOT NULL,
	profit REAL NOT NULL
)`

const bankAccountsDDL = `CREATE TABLE BankAccounts (
	account_id INTEGER PRIMARY KEY,
	membernbr INTEGER NOT NULL,
	branch TEXT NOT NULL,
	account_type TEXT NOT NULL
)`

// ProfitByBranch is the true SUM(profit) per branch of the fixture rows,
// ordered by total descending.
var ProfitByBranch = []struct {
	Branch string
	Total  float64
}{
	{"Montreal", 950.00},
	{"Vancouver", 400.10},
	{"Toronto", 300.75},
	{"Ottawa", -10.00},
}

// Empty returns an in-memory database with the Members and BankAccounts
// tables and no rows.
func Empty(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range []string{membersDDL, bankAccountsDDL} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

// Members returns an in-memory database with a handful of known rows.
func Members(t testing.TB) *sql.DB {
	t.Helper()
	db := Empty(t)

	rows := []struct {
		nbr     int
		name    string
		date    string
		manager string
		branch  string
		profit  float64
	}{
		{100001, "John Smith", "2026-01-05", "Alice", "Toronto", 100.50},
		{100002, "Jane Doe", "2026-02-11", "Bob", "Toronto", 200.25},
		{100003, "Emily Davis", "2026-03-20", "Alice", "Montreal", 1000.00},
		{100004, "Michael Brown", "2026-04-02", "Charlie", "Montreal", -50.00},
		{100005, "Laura Wilson", "2026-05-15", "Diana", "Ottawa", -10.00},
		{100006, "Kevin Johnson", "2026-06-30", "Ethan", "Vancouver", 400.10},
	}
	for _, r := range rows {
		if _, err := db.Exec(
			`INSERT INTO Members (membernbr, membername, date_added, portfolio_manager, branch, profit) VALUES (?, ?, ?, ?, ?, ?)`,
			r.nbr, r.name, r.date, r.manager, r.branch, r.profit,
		); err != nil {
			t.Fatalf("insert fixture: %v", err)
		}
	}
	if _, err := db.Exec(`INSERT INTO BankAccounts (account_id, membernbr, branch, account_type) VALUES (1, 100001, 'Toronto', 'mortgage'), (2, 100003, 'Montreal', 'savings')`); err != nil {
		t.Fatalf("insert fixture: %v", err)
	}
	return db
}

// Count returns SELECT COUNT(*) FROM table.
func Count(t testing.TB, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
