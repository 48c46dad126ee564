package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestStorage creates a migrated in-memory store for tests in this
// package. Other packages use testutil.SetupTestDB, which cannot be
// imported here without a cycle.
func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)

	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

func TestMigrateIdempotent(t *testing.T) {
	store := newTestStorage(t)

	// A second migration pass on a current schema is a no-op.
	require.NoError(t, store.Migrate(context.Background()))
}
