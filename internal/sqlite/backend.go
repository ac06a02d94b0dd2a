package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/consultora/pkg/types"
)

// DBFileName is the database file created inside Config.DataDir.
const DBFileName = "consultora.db"

// Compile-time interface check.
var _ types.Store = (*Backend)(nil)

// Backend implements types.Store on a SQLite database file.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	logger   *logrus.Logger
	now      func() time.Time
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for cascade and restore diagnostics.
func WithLogger(l *logrus.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// WithClock overrides the clock used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logrus.New()
		b.logger.SetOutput(io.Discard)
	}
	return b
}

// Attach opens <DataDir>/consultora.db, creating DataDir and the schema when
// missing, and seeds default credentials and option lists on first run.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Backend != types.BackendSQLite {
		return fmt.Errorf("%w: %s", types.ErrBackendUnknown, config.Backend)
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return types.NewStorageError("creating data dir", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, DBFileName))
	if err != nil {
		return types.NewStorageError("opening database", err)
	}
	// One connection: SQLite has a single writer and transactions must not
	// wait on a second connection held by the same goroutine.
	db.SetMaxOpenConns(1)

	for _, ddl := range append(append([]string{}, schemaDDL...), indexDDL...) {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return types.NewStorageError("creating schema", err)
		}
	}

	b.db = db
	b.config = config

	if err := b.seedDefaults(); err != nil {
		db.Close()
		b.db = nil
		return fmt.Errorf("seeding defaults: %w", err)
	}

	b.attached = true
	b.logger.WithFields(logrus.Fields{
		"module": "sqlite",
		"path":   filepath.Join(dataDir, DBFileName),
	}).Debug("store attached")
	return nil
}

// Detach closes the database. After Detach, all operations return
// ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	if b.db != nil {
		db := b.db
		b.db = nil
		if err := db.Close(); err != nil {
			return types.NewStorageError("closing database", err)
		}
	}
	return nil
}

// Path returns the database file path, or "" when detached.
func (b *Backend) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return ""
	}
	dir := b.config.DataDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, DBFileName)
}

// Clients returns the client table accessor.
func (b *Backend) Clients() types.ClientTable { return &clientsTable{backend: b} }

// Notes returns the note table accessor.
func (b *Backend) Notes() types.NoteTable { return &notesTable{backend: b} }

// Files returns the file table accessor.
func (b *Backend) Files() types.FileTable { return &filesTable{backend: b} }

// MergedDocuments returns the merged document table accessor.
func (b *Backend) MergedDocuments() types.MergedDocumentTable {
	return &mergedTable{backend: b}
}

// Tags returns the tag table accessor.
func (b *Backend) Tags() types.TagTable { return &tagsTable{backend: b} }

// Settings returns the configuration accessor.
func (b *Backend) Settings() types.SettingsTable { return &settingsTable{backend: b} }

// seedDefaults writes the default credentials and option lists when absent.
func (b *Backend) seedDefaults() error {
	defaults := []struct {
		key   string
		value any
	}{
		{settingCredentials, types.DefaultCredentials()},
		{settingOptions, types.DefaultOptionLists()},
	}
	for _, d := range defaults {
		data, err := json.Marshal(d.value)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", d.key, err)
		}
		if _, err := b.db.Exec(
			"INSERT OR IGNORE INTO settings (key, value, updated_at) VALUES (?, ?, ?)",
			d.key, string(data), formatTime(b.now()),
		); err != nil {
			return types.NewStorageError("seeding "+d.key, err)
		}
	}
	return nil
}

// newID generates a UUID v7 for a new record.
func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating UUID v7: %w", err)
	}
	return id.String(), nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// inTx runs fn inside a transaction, committing when fn returns nil.
// The caller must hold b.mu.
func (b *Backend) inTx(op string, fn func(tx *sql.Tx) error) error {
	tx, err := b.db.Begin()
	if err != nil {
		return types.NewStorageError(op+": beginning transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return types.NewStorageError(op+": committing", err)
	}
	return nil
}

// exists reports whether a row with id exists in table.
func exists(q querier, table, column, id string) (bool, error) {
	var one int
	err := q.QueryRow("SELECT 1 FROM "+table+" WHERE "+column+" = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, types.NewStorageError("checking "+table+" existence", err)
	}
	return true, nil
}

// timeLayout is fixed width so stored timestamps also sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
