package database

import (
	"context"
	"errors"
	"path"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
)

// setupTestDB creates a temporary test database
func setupTestDB(t *testing.T, opts ...Option) (*sqlx.DB, string) {
	dbPath := path.Join(t.TempDir(), "test_helpers.db")
	db, err := Connect(dbPath, opts...)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, dbPath
}

func TestScrubTableNameValid(t *testing.T) {
	for _, name := range []string{"t1", "users", "My_Table_2", "_", "123", strings.Repeat("a", 200)} {
		got, err := ScrubTableName(name)
		if err != nil {
			t.Errorf("ScrubTableName(%q) returned error: %v", name, err)
		}
		if got != name {
			t.Errorf("ScrubTableName(%q) = %q, want input unchanged", name, got)
		}
	}
}

func TestScrubTableNameInvalid(t *testing.T) {
	for _, name := range []string{"", "my table", "drop;", "t1\n", "a-b", "naïve", "x'--", "tbl.col"} {
		_, err := ScrubTableName(name)
		if err == nil {
			t.Errorf("ScrubTableName(%q) should have failed", name)
			continue
		}
		if !errors.Is(err, ErrInvalidTableName) || !errors.Is(err, ErrInvalidValue) {
			t.Errorf("ScrubTableName(%q) error %v does not match ErrInvalidTableName", name, err)
		}
		var nameErr *InvalidTableNameError
		if !errors.As(err, &nameErr) || nameErr.Name != name {
			t.Errorf("ScrubTableName(%q) error does not carry the name: %v", name, err)
		}
		if !strings.Contains(err.Error(), "alphanumeric") {
			t.Errorf("Error message should name the allowed characters: %v", err)
		}
	}
}

func TestTableExists(t *testing.T) {
	db, _ := setupTestDB(t)

	if _, err := db.Exec("CREATE TABLE t1 (id INTEGER)"); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	exists, err := TableExists(db, "t1")
	if err != nil {
		t.Fatalf("TableExists returned error: %v", err)
	}
	if !exists {
		t.Error("Expected t1 to exist")
	}

	exists, err = TableExists(db, "nonexistent")
	if err != nil {
		t.Fatalf("TableExists returned error: %v", err)
	}
	if exists {
		t.Error("Expected nonexistent to be missing")
	}
}

func TestTableExistsIgnoresOtherObjects(t *testing.T) {
	db, _ := setupTestDB(t)

	if _, err := db.Exec("CREATE TABLE base (id INTEGER)"); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	if _, err := db.Exec("CREATE INDEX idx_base ON base(id)"); err != nil {
		t.Fatalf("Failed to create index: %v", err)
	}
	if _, err := db.Exec("CREATE VIEW v_base AS SELECT id FROM base"); err != nil {
		t.Fatalf("Failed to create view: %v", err)
	}

	for _, name := range []string{"idx_base", "v_base", "BASE", "base' OR '1'='1"} {
		exists, err := TableExists(db, name)
		if err != nil {
			t.Fatalf("TableExists(%q) returned error: %v", name, err)
		}
		if exists {
			t.Errorf("Expected %q not to be reported as a table", name)
		}
	}
}

func TestTableExistsClosedDB(t *testing.T) {
	db, _ := setupTestDB(t)
	db.Close()

	if _, err := TableExists(db, "t1"); err == nil {
		t.Error("Expected error on closed database")
	}
}

func TestTableExistsContextCanceled(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := TableExistsContext(ctx, db, "t1")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
