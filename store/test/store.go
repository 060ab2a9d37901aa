// Package test holds database-backed store tests. The default run uses a
// throwaway SQLite file; set ECHONOTE_TEST_DRIVER=postgres plus
// POSTGRES_TEST_DSN to exercise the PostgreSQL driver and pgvector paths.
package test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hrygo/echonote/internal/profile"
	"github.com/hrygo/echonote/store"
	"github.com/hrygo/echonote/store/db"
)

func getDriverFromEnv() string {
	if driver := os.Getenv("ECHONOTE_TEST_DRIVER"); driver != "" {
		return driver
	}
	return "sqlite"
}

func getDSNFromEnv(t *testing.T) string {
	if getDriverFromEnv() == "sqlite" {
		return filepath.Join(t.TempDir(), "echonote_test.db")
	}
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	return dsn
}

// NewTestingStore opens a migrated store against the test database.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	prof := &profile.Profile{
		Mode:   "dev",
		Driver: getDriverFromEnv(),
		DSN:    getDSNFromEnv(t),
	}

	driver, err := db.NewDBDriver(prof)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	st := store.New(driver, prof)
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Logf("failed to close store: %v", err)
		}
	})
	return st
}
