package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// openTestDB creates a temporary database for testing.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(Config{
		Path:        dbPath,
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	return db
}

// TestOpen verifies connection establishment and filesystem setup.
func TestOpen(t *testing.T) {
	t.Run("creates database file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "homesynth.db")

		db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != dbPath {
			t.Errorf("Path() = %v, want %v", db.Path(), dbPath)
		}
	})

	t.Run("creates nested directories", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "data", "store", "homesynth.db")

		db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
			t.Error("database directory was not created")
		}
	})

	t.Run("single writer pool", func(t *testing.T) {
		db := openTestDB(t)
		defer db.Close() //nolint:errcheck // Test cleanup

		if got := db.Stats().MaxOpenConnections; got != 1 {
			t.Errorf("MaxOpenConnections = %v, want 1", got)
		}
	})
}

// TestHealthCheck verifies the connectivity probe.
func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

// TestClose verifies shutdown is idempotent on a nil connection.
func TestClose(t *testing.T) {
	db := openTestDB(t)

	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	db.DB = nil
	if err := db.Close(); err != nil {
		t.Errorf("Close() on nil DB error = %v", err)
	}
}

// TestTransactions verifies commit and rollback through the shared pool,
// the access pattern the deploy cycle relies on.
func TestTransactions(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()

	_, err := db.ExecContext(ctx, `
		CREATE TABLE revisions (
			id      INTEGER PRIMARY KEY,
			payload TEXT NOT NULL
		)
	`)
	if err != nil {
		t.Fatalf("CREATE TABLE error = %v", err)
	}

	t.Run("commit persists", func(t *testing.T) {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			t.Fatalf("BeginTx() error = %v", err)
		}
		if _, err = tx.ExecContext(ctx, "INSERT INTO revisions (payload) VALUES (?)", "committed"); err != nil {
			t.Fatalf("INSERT error = %v", err)
		}
		if err = tx.Commit(); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}

		var count int
		if err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM revisions WHERE payload = ?", "committed").Scan(&count); err != nil {
			t.Fatalf("SELECT error = %v", err)
		}
		if count != 1 {
			t.Errorf("count = %d, want 1", count)
		}
	})

	t.Run("rollback discards", func(t *testing.T) {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			t.Fatalf("BeginTx() error = %v", err)
		}
		if _, err = tx.ExecContext(ctx, "INSERT INTO revisions (payload) VALUES (?)", "discarded"); err != nil {
			t.Fatalf("INSERT error = %v", err)
		}
		if err = tx.Rollback(); err != nil {
			t.Fatalf("Rollback() error = %v", err)
		}

		var count int
		if err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM revisions WHERE payload = ?", "discarded").Scan(&count); err != nil {
			t.Fatalf("SELECT error = %v", err)
		}
		if count != 0 {
			t.Errorf("count = %d, want 0", count)
		}
	})
}
