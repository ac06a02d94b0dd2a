package sqlite

import (
	"database/sql"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/consultora/pkg/query"
	"github.com/mesh-intelligence/consultora/pkg/types"
)

var _ types.TagTable = (*tagsTable)(nil)

type tagsTable struct {
	backend *Backend
}

const tagColumns = "tag_id, name, color, created_at"

// List returns every tag sorted by name.
func (tt *tagsTable) List() ([]*types.Tag, error) {
	b := tt.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	tags, err := scanTags(b.db, "SELECT "+tagColumns+" FROM tags")
	if err != nil {
		return nil, err
	}
	query.SortTags(tags)
	return tags, nil
}

func (tt *tagsTable) Get(id string) (*types.Tag, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	b := tt.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	tags, err := scanTags(b.db, "SELECT "+tagColumns+" FROM tags WHERE tag_id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, types.ErrNotFound
	}
	return tags[0], nil
}

func (tt *tagsTable) Save(t *types.Tag) (string, error) {
	if t == nil {
		return "", types.ErrInvalidData
	}
	if err := t.Validate(); err != nil {
		return "", err
	}
	b := tt.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return "", types.ErrStoreDetached
	}
	rec := t.Clone()
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
	if err := upsertTag(b.db, rec); err != nil {
		return "", err
	}
	*t = *rec
	return rec.ID, nil
}

// Delete removes the tag and strips it from every client in one transaction.
func (tt *tagsTable) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	b := tt.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}

	var stripped int64
	err := b.inTx("deleting tag", func(tx *sql.Tx) error {
		if err := deleteByID(tx, "tags", "tag_id", id); err != nil {
			return err
		}
		res, err := tx.Exec("DELETE FROM client_tags WHERE tag_id = ?", id)
		if err != nil {
			return types.NewStorageError("stripping tag from clients", err)
		}
		stripped, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return err
	}

	b.logger.WithFields(logrus.Fields{
		"module":  "sqlite",
		"op":      "delete_tag",
		"tag_id":  id,
		"clients": stripped,
	}).Debug("tag deleted and stripped from clients")
	return nil
}

func scanTags(q querier, stmt string, args ...any) ([]*types.Tag, error) {
	rows, err := q.Query(stmt, args...)
	if err != nil {
		return nil, types.NewStorageError("querying tags", err)
	}
	defer rows.Close()

	var tags []*types.Tag
	for rows.Next() {
		var t types.Tag
		var createdAt string
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &createdAt); err != nil {
			return nil, types.NewStorageError("scanning tag", err)
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, types.NewStorageError("hydrating tag "+t.ID, err)
		}
		tags = append(tags, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewStorageError("iterating tags", err)
	}
	return tags, nil
}

func upsertTag(q querier, t *types.Tag) error {
	_, err := q.Exec(`INSERT INTO tags (`+tagColumns+`) VALUES (?, ?, ?, ?)
ON CONFLICT(tag_id) DO UPDATE SET
    name = excluded.name,
    color = excluded.color,
    created_at = excluded.created_at`,
		t.ID, t.Name, t.Color, formatTime(t.CreatedAt),
	)
	if err != nil {
		return types.NewStorageError("writing tag "+t.ID, err)
	}
	return nil
}
