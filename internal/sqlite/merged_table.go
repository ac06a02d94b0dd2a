package sqlite

import (
	"database/sql"

	"github.com/mesh-intelligence/consultora/pkg/query"
	"github.com/mesh-intelligence/consultora/pkg/types"
)

var _ types.MergedDocumentTable = (*mergedTable)(nil)

// mergedTable persists merged documents in merged_documents and the clients
// they cover in merged_document_clients.
type mergedTable struct {
	backend *Backend
}

const mergedColumns = "document_id, name, data, created_at"

// List returns every merged document, newest first.
func (mt *mergedTable) List() ([]*types.MergedDocument, error) {
	b := mt.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	docs, err := scanMerged(b.db, "SELECT "+mergedColumns+" FROM merged_documents")
	if err != nil {
		return nil, err
	}
	owners, err := loadTagSets(b.db,
		"SELECT document_id, client_id FROM merged_document_clients ORDER BY document_id, ordinal")
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if ids, ok := owners[d.ID]; ok {
			d.ClientIDs = ids
		}
	}
	query.SortMergedDocuments(docs)
	return docs, nil
}

func (mt *mergedTable) Get(id string) (*types.MergedDocument, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	b := mt.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	docs, err := scanMerged(b.db, "SELECT "+mergedColumns+" FROM merged_documents WHERE document_id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, types.ErrNotFound
	}
	owners, err := loadTagSets(b.db,
		"SELECT document_id, client_id FROM merged_document_clients WHERE document_id = ? ORDER BY ordinal", id)
	if err != nil {
		return nil, err
	}
	d := docs[0]
	if ids, ok := owners[id]; ok {
		d.ClientIDs = ids
	}
	return d, nil
}

func (mt *mergedTable) Save(m *types.MergedDocument) (string, error) {
	if m == nil {
		return "", types.ErrInvalidData
	}
	if err := m.Validate(); err != nil {
		return "", err
	}
	b := mt.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return "", types.ErrStoreDetached
	}
	rec := m.Clone()
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
	rec.Normalize()

	err := b.inTx("saving merged document", func(tx *sql.Tx) error {
		return upsertMerged(tx, rec)
	})
	if err != nil {
		return "", err
	}
	*m = *rec
	return rec.ID, nil
}

func (mt *mergedTable) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	b := mt.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}
	return b.inTx("deleting merged document", func(tx *sql.Tx) error {
		if err := deleteByID(tx, "merged_documents", "document_id", id); err != nil {
			return err
		}
		if _, err := tx.Exec("DELETE FROM merged_document_clients WHERE document_id = ?", id); err != nil {
			return types.NewStorageError("deleting merged document clients", err)
		}
		return nil
	})
}

func scanMerged(q querier, stmt string, args ...any) ([]*types.MergedDocument, error) {
	rows, err := q.Query(stmt, args...)
	if err != nil {
		return nil, types.NewStorageError("querying merged documents", err)
	}
	defer rows.Close()

	var docs []*types.MergedDocument
	for rows.Next() {
		var d types.MergedDocument
		var createdAt string
		if err := rows.Scan(&d.ID, &d.Name, &d.Data, &createdAt); err != nil {
			return nil, types.NewStorageError("scanning merged document", err)
		}
		if d.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, types.NewStorageError("hydrating merged document "+d.ID, err)
		}
		d.ClientIDs = []string{}
		docs = append(docs, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewStorageError("iterating merged documents", err)
	}
	return docs, nil
}

func upsertMerged(q querier, m *types.MergedDocument) error {
	_, err := q.Exec(`INSERT INTO merged_documents (`+mergedColumns+`) VALUES (?, ?, ?, ?)
ON CONFLICT(document_id) DO UPDATE SET
    name = excluded.name,
    data = excluded.data,
    created_at = excluded.created_at`,
		m.ID, m.Name, m.Data, formatTime(m.CreatedAt),
	)
	if err != nil {
		return types.NewStorageError("writing merged document "+m.ID, err)
	}
	if _, err := q.Exec("DELETE FROM merged_document_clients WHERE document_id = ?", m.ID); err != nil {
		return types.NewStorageError("clearing merged document clients", err)
	}
	for i, clientID := range m.ClientIDs {
		if _, err := q.Exec(
			"INSERT INTO merged_document_clients (document_id, client_id, ordinal) VALUES (?, ?, ?)",
			m.ID, clientID, i,
		); err != nil {
			return types.NewStorageError("writing merged document client "+clientID, err)
		}
	}
	return nil
}
