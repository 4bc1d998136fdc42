// Package sqlitetest provides throwaway migrated SQLite stores for package tests.
package sqlitetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/store"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/store/sqlite"
)

// New returns a migrated store in a temp directory, closed on test cleanup.
func New(t testing.TB) store.Store {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "voice-agent.db"))
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := sqlite.Migrate(context.Background(), db); err != nil {
		t.Fatalf("sqlite migrate: %v", err)
	}
	return sqlite.NewWithDB(db)
}
