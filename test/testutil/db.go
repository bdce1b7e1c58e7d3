package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/docrankhq/docrank/internal/config"
	"github.com/docrankhq/docrank/internal/db"
)

// OpenTestDB connects to the postgres instance named by TEST_DB_HOST and
// applies the migrations. Tests calling it are skipped when the variable is
// unset, so the suite stays runnable without infrastructure.
func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     "docrank",
		Password: "docrank_pass",
		DBName:   "docrank_test",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
	}
}

// ClearTables empties the given tables so a test starts from a known state
// regardless of what earlier runs left behind.
func ClearTables(t *testing.T, conn *sql.DB, tables ...string) {
	t.Helper()
	for _, table := range tables {
		if _, err := conn.ExecContext(context.Background(), "DELETE FROM "+table); err != nil {
			t.Fatalf("clear table %s: %v", table, err)
		}
	}
}
