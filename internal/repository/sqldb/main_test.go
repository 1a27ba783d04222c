package sqldb

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	// pgStore is set by the integration suite; repository tests then run
	// against both dialects.
	pgStore *Store
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, Migrate("sqlite://"+path, logger))

	store, err := NewSQLite(path, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

// forEachStore runs fn against a fresh SQLite store and, in the integration
// suite, against the truncated postgres store.
func forEachStore(t *testing.T, fn func(t *testing.T, store *Store)) {
	t.Helper()

	t.Run("sqlite", func(t *testing.T) {
		fn(t, newSQLiteStore(t))
	})

	if pgStore == nil {
		return
	}

	t.Run("postgres", func(t *testing.T) {
		truncateTables(t, pgStore)
		fn(t, pgStore)
	})
}

func truncateTables(t *testing.T, store *Store) {
	t.Helper()

	_, err := store.DB().Exec("TRUNCATE TABLE call_routing, communications, phone_stats, routing_rules, phone_numbers, users, departments CASCADE")
	require.NoError(t, err, "failed to truncate tables")
}
