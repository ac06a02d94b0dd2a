// Package sqlite exposes the SQLite store for programs embedding consultora's
// records outside the CLI, keeping the implementation internal.
package sqlite

import (
	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/consultora/internal/sqlite"
	"github.com/mesh-intelligence/consultora/pkg/types"
)

// DBFileName is the database file created inside Config.DataDir.
const DBFileName = sqlite.DBFileName

// Option configures the store.
type Option = sqlite.Option

// WithLogger sets the logger used for cascade and restore diagnostics.
func WithLogger(l *logrus.Logger) Option {
	return sqlite.WithLogger(l)
}

// NewStore creates a new SQLite store.
// The store is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	store := sqlite.NewStore()
//	err := store.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".consultora-db",
//	})
//	defer store.Detach()
func NewStore(opts ...Option) types.Store {
	return sqlite.NewBackend(opts...)
}
