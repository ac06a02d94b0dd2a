package sqlite

import (
	"github.com/mesh-intelligence/consultora/pkg/query"
	"github.com/mesh-intelligence/consultora/pkg/types"
)

var _ types.FileTable = (*filesTable)(nil)

type filesTable struct {
	backend *Backend
}

const fileColumns = "file_id, client_id, name, year, month, data, uploaded_at"

// List returns every file, most recent period first.
func (ft *filesTable) List() ([]*types.File, error) {
	b := ft.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	files, err := scanFiles(b.db, "SELECT "+fileColumns+" FROM files")
	if err != nil {
		return nil, err
	}
	query.SortFiles(files)
	return files, nil
}

// ListByClient returns the files of one client, most recent period first.
func (ft *filesTable) ListByClient(clientID string) ([]*types.File, error) {
	if clientID == "" {
		return nil, types.ErrInvalidID
	}
	b := ft.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	files, err := scanFiles(b.db, "SELECT "+fileColumns+" FROM files WHERE client_id = ?", clientID)
	if err != nil {
		return nil, err
	}
	query.SortFiles(files)
	return files, nil
}

func (ft *filesTable) Get(id string) (*types.File, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	b := ft.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	files, err := scanFiles(b.db, "SELECT "+fileColumns+" FROM files WHERE file_id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, types.ErrNotFound
	}
	return files[0], nil
}

func (ft *filesTable) Save(f *types.File) (string, error) {
	if f == nil {
		return "", types.ErrInvalidData
	}
	if err := f.Validate(); err != nil {
		return "", err
	}
	b := ft.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return "", types.ErrStoreDetached
	}
	rec := f.Clone()
	if rec.ID == "" {
		id, err := newID()
		if err != nil {
			return "", err
		}
		rec.ID = id
	}
	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = b.now().UTC()
	}
	if err := upsertFile(b.db, rec); err != nil {
		return "", err
	}
	*f = *rec
	return rec.ID, nil
}

func (ft *filesTable) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	b := ft.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}
	return deleteByID(b.db, "files", "file_id", id)
}

func scanFiles(q querier, stmt string, args ...any) ([]*types.File, error) {
	rows, err := q.Query(stmt, args...)
	if err != nil {
		return nil, types.NewStorageError("querying files", err)
	}
	defer rows.Close()

	var files []*types.File
	for rows.Next() {
		var f types.File
		var uploadedAt string
		if err := rows.Scan(&f.ID, &f.ClientID, &f.Name, &f.Year, &f.Month, &f.Data, &uploadedAt); err != nil {
			return nil, types.NewStorageError("scanning file", err)
		}
		if f.UploadedAt, err = parseTime(uploadedAt); err != nil {
			return nil, types.NewStorageError("hydrating file "+f.ID, err)
		}
		files = append(files, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewStorageError("iterating files", err)
	}
	return files, nil
}

func upsertFile(q querier, f *types.File) error {
	_, err := q.Exec(`INSERT INTO files (`+fileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(file_id) DO UPDATE SET
    client_id = excluded.client_id,
    name = excluded.name,
    year = excluded.year,
    month = excluded.month,
    data = excluded.data,
    uploaded_at = excluded.uploaded_at`,
		f.ID, f.ClientID, f.Name, f.Year, f.Month, f.Data, formatTime(f.UploadedAt),
	)
	if err != nil {
		return types.NewStorageError("writing file "+f.ID, err)
	}
	return nil
}
