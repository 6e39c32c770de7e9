package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user-u1.db")

	s, err := Open(path, "u1")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if s.StoreID() != "user-u1" {
		t.Errorf("StoreID() = %q, want %q", s.StoreID(), "user-u1")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user-u1.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path, "u1")
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path, "u1")
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	tables := []string{"events", "categories", "activities", "activity_categories", "time_sessions", "ui_state"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPathIsStorageUnavailable(t *testing.T) {
	_, err := Open("/nonexistent/dir/user-u1.db", "u1")
	if err == nil {
		t.Fatal("expected error for invalid path, got nil")
	}
	if !IsStorageUnavailable(err) {
		t.Errorf("expected StorageUnavailableError, got %T: %v", err, err)
	}
}

func TestOpen_RequiresUserID(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "x.db"), "")
	if err == nil {
		t.Error("expected error for empty user id, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestReopen_KeepsLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user-u1.db")

	s1, err := Open(path, "u1")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	commitScenario(t, s1)
	s1.Close()

	s2, err := Open(path, "u1")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	log, err := s2.Log(context.Background())
	if err != nil {
		t.Fatalf("Log() failed: %v", err)
	}
	if len(log) != len(scenarioEvents()) {
		t.Errorf("log has %d events after reopen, want %d", len(log), len(scenarioEvents()))
	}
}
