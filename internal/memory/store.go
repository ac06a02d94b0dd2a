// Package memory implements an in-process types.Store backed by maps. It
// holds no state across Detach and is used by tests and dry runs.
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/consultora/pkg/types"
)

var _ types.Store = (*Store)(nil)

// Store keeps every record as a private copy; callers never share memory
// with it.
type Store struct {
	mu       sync.RWMutex
	attached bool
	now      func() time.Time

	clients map[string]*types.Client
	notes   map[string]*types.Note
	files   map[string]*types.File
	merged  map[string]*types.MergedDocument
	tags    map[string]*types.Tag
	creds   *types.Credentials
	options *types.OptionLists
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a detached store.
func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach initializes empty collections and default settings.
func (s *Store) Attach(config types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Backend != types.BackendMemory {
		return fmt.Errorf("%w: %s", types.ErrBackendUnknown, config.Backend)
	}
	s.reset()
	creds := types.DefaultCredentials()
	opts := types.DefaultOptionLists()
	s.creds, s.options = &creds, &opts
	s.attached = true
	return nil
}

// Detach drops all content. Idempotent.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = false
	s.reset()
	s.creds, s.options = nil, nil
	return nil
}

func (s *Store) reset() {
	s.clients = make(map[string]*types.Client)
	s.notes = make(map[string]*types.Note)
	s.files = make(map[string]*types.File)
	s.merged = make(map[string]*types.MergedDocument)
	s.tags = make(map[string]*types.Tag)
}

func (s *Store) Clients() types.ClientTable { return clientTable{s} }

func (s *Store) Notes() types.NoteTable { return noteTable{s} }

func (s *Store) Files() types.FileTable { return fileTable{s} }

func (s *Store) MergedDocuments() types.MergedDocumentTable { return mergedTable{s} }

func (s *Store) Tags() types.TagTable { return tagTable{s} }

func (s *Store) Settings() types.SettingsTable { return settingsTable{s} }

// Replace validates snap and swaps in copies of its records. Nothing changes
// when validation fails.
func (s *Store) Replace(snap *types.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attached {
		return types.ErrStoreDetached
	}

	clients := make(map[string]*types.Client, len(snap.Clients))
	for _, c := range snap.Clients {
		cp := c.Clone()
		cp.Normalize()
		clients[c.ID] = cp
	}
	notes := make(map[string]*types.Note, len(snap.Notes))
	for _, n := range snap.Notes {
		notes[n.ID] = n.Clone()
	}
	files := make(map[string]*types.File, len(snap.Files))
	for _, f := range snap.Files {
		files[f.ID] = f.Clone()
	}
	merged := make(map[string]*types.MergedDocument, len(snap.MergedDocuments))
	for _, m := range snap.MergedDocuments {
		cp := m.Clone()
		cp.Normalize()
		merged[m.ID] = cp
	}
	if snap.Tags != nil {
		tags := make(map[string]*types.Tag, len(snap.Tags))
		for _, t := range snap.Tags {
			tags[t.ID] = t.Clone()
		}
		s.tags = tags
	}
	s.clients, s.notes, s.files, s.merged = clients, notes, files, merged
	creds := snap.Credentials
	opts := snap.Options.Clone()
	s.creds, s.options = &creds, &opts
	return nil
}

// assign fills an empty id with a UUID v7.
func assign(id *string) error {
	if *id != "" {
		return nil
	}
	v, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generating UUID v7: %w", err)
	}
	*id = v.String()
	return nil
}

// readable returns ErrStoreDetached when s is not attached. Caller holds mu.
func (s *Store) readable() error {
	if !s.attached {
		return types.ErrStoreDetached
	}
	return nil
}
