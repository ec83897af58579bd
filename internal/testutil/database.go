package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/spice-gateway/internal/storage"
)

// SetupTestDB creates a migrated SQLite database in a temp dir and closes it on cleanup.
//
// Example:
//
//	store := testutil.SetupTestDB(t)
//	gw, err := gateway.New(gateway.DefaultConfig(), gateway.Deps{Store: store, Audit: store})
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "spice.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}
