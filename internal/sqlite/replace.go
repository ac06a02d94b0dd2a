package sqlite

import (
	"database/sql"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/consultora/pkg/types"
)

// replaceClears lists the tables emptied by Replace, in order. The tag
// tables are handled separately because a snapshot may leave them alone.
var replaceClears = []string{
	"client_tags",
	"clients",
	"notes",
	"files",
	"merged_document_clients",
	"merged_documents",
}

// Replace swaps the whole content of the store for snap in one transaction.
// Records are written as given: IDs must be set and timestamps are kept.
// Tags are only replaced when snap.Tags is non-nil. On any error the
// transaction rolls back and the previous content stays in place.
func (b *Backend) Replace(snap *types.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}

	err := b.inTx("replacing store", func(tx *sql.Tx) error {
		for _, table := range replaceClears {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return types.NewStorageError("clearing "+table, err)
			}
		}
		if snap.Tags != nil {
			if _, err := tx.Exec("DELETE FROM tags"); err != nil {
				return types.NewStorageError("clearing tags", err)
			}
			for _, t := range snap.Tags {
				if err := upsertTag(tx, t); err != nil {
					return err
				}
			}
		}
		for _, c := range snap.Clients {
			cp := c.Clone()
			cp.Normalize()
			if err := upsertClient(tx, cp); err != nil {
				return err
			}
		}
		for _, n := range snap.Notes {
			if err := upsertNote(tx, n); err != nil {
				return err
			}
		}
		for _, f := range snap.Files {
			if err := upsertFile(tx, f); err != nil {
				return err
			}
		}
		for _, m := range snap.MergedDocuments {
			cp := m.Clone()
			cp.Normalize()
			if err := upsertMerged(tx, cp); err != nil {
				return err
			}
		}
		now := formatTime(b.now())
		if err := writeSetting(tx, settingCredentials, snap.Credentials, now); err != nil {
			return err
		}
		return writeSetting(tx, settingOptions, snap.Options, now)
	})
	if err != nil {
		return err
	}

	b.logger.WithFields(logrus.Fields{
		"module":  "sqlite",
		"op":      "replace",
		"clients": len(snap.Clients),
		"notes":   len(snap.Notes),
		"files":   len(snap.Files),
		"merged":  len(snap.MergedDocuments),
		"tags":    snap.Tags != nil,
	}).Debug("store content replaced")
	return nil
}

