package sqlite

import (
	"github.com/mesh-intelligence/consultora/pkg/query"
	"github.com/mesh-intelligence/consultora/pkg/types"
)

var _ types.NoteTable = (*notesTable)(nil)

type notesTable struct {
	backend *Backend
}

const noteColumns = "note_id, client_id, content, created_at"

// List returns every note, newest first.
func (nt *notesTable) List() ([]*types.Note, error) {
	b := nt.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	notes, err := scanNotes(b.db, "SELECT "+noteColumns+" FROM notes")
	if err != nil {
		return nil, err
	}
	query.SortNotes(notes)
	return notes, nil
}

// ListByClient returns the notes of one client, newest first.
func (nt *notesTable) ListByClient(clientID string) ([]*types.Note, error) {
	if clientID == "" {
		return nil, types.ErrInvalidID
	}
	b := nt.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	notes, err := scanNotes(b.db, "SELECT "+noteColumns+" FROM notes WHERE client_id = ?", clientID)
	if err != nil {
		return nil, err
	}
	query.SortNotes(notes)
	return notes, nil
}

func (nt *notesTable) Get(id string) (*types.Note, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	b := nt.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	notes, err := scanNotes(b.db, "SELECT "+noteColumns+" FROM notes WHERE note_id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, types.ErrNotFound
	}
	return notes[0], nil
}

func (nt *notesTable) Save(n *types.Note) (string, error) {
	if n == nil {
		return "", types.ErrInvalidData
	}
	if err := n.Validate(); err != nil {
		return "", err
	}
	b := nt.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return "", types.ErrStoreDetached
	}
	rec := n.Clone()
	if rec.ID == "" {
		id, err := newID()
		if err != nil {
			return "", err
		}
		rec.ID = id
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = b.now().UTC()
	}
	if err := upsertNote(b.db, rec); err != nil {
		return "", err
	}
	*n = *rec
	return rec.ID, nil
}

func (nt *notesTable) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	b := nt.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}
	return deleteByID(b.db, "notes", "note_id", id)
}

func scanNotes(q querier, stmt string, args ...any) ([]*types.Note, error) {
	rows, err := q.Query(stmt, args...)
	if err != nil {
		return nil, types.NewStorageError("querying notes", err)
	}
	defer rows.Close()

	var notes []*types.Note
	for rows.Next() {
		var n types.Note
		var createdAt string
		if err := rows.Scan(&n.ID, &n.ClientID, &n.Content, &createdAt); err != nil {
			return nil, types.NewStorageError("scanning note", err)
		}
		if n.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, types.NewStorageError("hydrating note "+n.ID, err)
		}
		notes = append(notes, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewStorageError("iterating notes", err)
	}
	return notes, nil
}

func upsertNote(q querier, n *types.Note) error {
	_, err := q.Exec(`INSERT INTO notes (`+noteColumns+`) VALUES (?, ?, ?, ?)
ON CONFLICT(note_id) DO UPDATE SET
    client_id = excluded.client_id,
    content = excluded.content,
    created_at = excluded.created_at`,
		n.ID, n.ClientID, n.Content, formatTime(n.CreatedAt),
	)
	if err != nil {
		return types.NewStorageError("writing note "+n.ID, err)
	}
	return nil
}

// deleteByID removes one row and reports ErrNotFound when nothing matched.
func deleteByID(q querier, table, column, id string) error {
	res, err := q.Exec("DELETE FROM "+table+" WHERE "+column+" = ?", id)
	if err != nil {
		return types.NewStorageError("deleting from "+table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return types.NewStorageError("deleting from "+table, err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}
