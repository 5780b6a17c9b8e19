package testutil

import (
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"testing"

	_ "github.com/go-sql-driver/mysql"

	"comanda/internal/infrastructure/mysql"
)

// SetupTestDB opens the MySQL test database on localhost:3306 named 'comanda_test'.
// Tests are skipped when it is not reachable.
func SetupTestDB(t *testing.T) *sql.DB {
	dsn := "root:@tcp(localhost:3306)/comanda_test?parseTime=true&clientFoundRows=true"
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.Ping()
	if err != nil {
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// CleanupTestDB empties every table and closes db.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{"OrderItems", "Orders", "CashAdjustments", "CashRegisterSessions", "DiningTables", "AppSettings"}
	for _, table := range tables {
		_, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

// SetupTestTables applies the embedded up migrations statement by statement.
func SetupTestTables(t *testing.T, db *sql.DB) {
	files, err := fs.Glob(mysql.MigrationFiles, "migrations/*.up.sql")
	if err != nil {
		t.Fatalf("listing migrations: %v", err)
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := fs.ReadFile(mysql.MigrationFiles, file)
		if err != nil {
			t.Fatalf("reading migration %s: %v", file, err)
		}
		for _, stmt := range strings.Split(string(content), ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := db.Exec(stmt); err != nil {
				t.Logf("failed to apply %s: %v", file, err)
			}
		}
	}
}
