package store

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
)

//go:embed migration
var migrationFS embed.FS

// LatestSchemaFileName is the full schema applied to fresh installations.
const LatestSchemaFileName = "LATEST.sql"

// Migrate initializes the database schema for a fresh installation.
// Already-initialized databases are left untouched.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.isInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check database state")
	}
	if initialized {
		return nil
	}

	path := fmt.Sprintf("migration/%s/%s", s.profile.Driver, LatestSchemaFileName)
	schema, err := migrationFS.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read latest schema for driver %q", s.profile.Driver)
	}

	if _, err := s.driver.GetDB().ExecContext(ctx, string(schema)); err != nil {
		return errors.Wrap(err, "failed to apply latest schema")
	}

	slog.Info("database initialized", slog.String("driver", s.profile.Driver))
	return nil
}

func (s *Store) isInitialized(ctx context.Context) (bool, error) {
	var query string
	switch s.profile.Driver {
	case "postgres":
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_name = 'note' AND table_schema = 'public'`
	case "sqlite":
		query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'note'`
	default:
		return false, errors.Errorf("unknown driver: %s", s.profile.Driver)
	}

	var count int
	if err := s.driver.GetDB().QueryRowContext(ctx, query).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
