package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/echonote/internal/profile"
	"github.com/hrygo/echonote/store"
	"github.com/hrygo/echonote/store/db/postgres"
	"github.com/hrygo/echonote/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
//
// PostgreSQL is the reference implementation with full vector and ranked
// lexical search. SQLite serves lexical-only deployments and tests; its
// vector search reports store.ErrVectorSearchUnsupported so retrieval
// degrades to lexical-only.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.New("unknown db driver: only 'postgres' and 'sqlite' are supported")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
