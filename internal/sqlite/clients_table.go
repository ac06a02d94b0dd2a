package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/consultora/pkg/query"
	"github.com/mesh-intelligence/consultora/pkg/types"
)

var _ types.ClientTable = (*clientsTable)(nil)

// clientsTable persists clients in the clients table and their tag sets in
// client_tags.
type clientsTable struct {
	backend *Backend
}

const clientColumns = `client_id, tax_id, email, password, legal_name, taxpayer_type,
    entity_type, contact, administration, billing, regime, activity,
    consolidation, manager, address, created_at`

// List returns every client sorted by legal name.
func (ct *clientsTable) List() ([]*types.Client, error) {
	b := ct.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	clients, err := scanClients(b.db, "SELECT "+clientColumns+" FROM clients")
	if err != nil {
		return nil, err
	}
	tags, err := loadTagSets(b.db, "SELECT client_id, tag_id FROM client_tags ORDER BY client_id, ordinal")
	if err != nil {
		return nil, err
	}
	for _, c := range clients {
		if set, ok := tags[c.ID]; ok {
			c.Tags = set
		}
	}
	query.SortClients(clients)
	return clients, nil
}

// Get retrieves a client by ID with its tag set.
func (ct *clientsTable) Get(id string) (*types.Client, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	b := ct.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return getClient(b.db, id)
}

// Save validates and upserts a client and replaces its tag set. An empty ID
// is replaced by a new UUID v7 and a zero CreatedAt by the current time.
func (ct *clientsTable) Save(c *types.Client) (string, error) {
	if c == nil {
		return "", types.ErrInvalidData
	}
	if err := c.Validate(); err != nil {
		return "", err
	}
	b := ct.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return "", types.ErrStoreDetached
	}

	// Work on a copy so a failed write leaves the caller's record as it was.
	rec := c.Clone()
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

	err := b.inTx("saving client", func(tx *sql.Tx) error {
		return upsertClient(tx, rec)
	})
	if err != nil {
		return "", err
	}
	*c = *rec
	return rec.ID, nil
}

// Delete removes a client together with its notes and files.
func (ct *clientsTable) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	b := ct.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}

	ok, err := exists(b.db, "clients", "client_id", id)
	if err != nil {
		return err
	}
	if !ok {
		return types.ErrNotFound
	}

	var notes, files int64
	err = b.inTx("deleting client", func(tx *sql.Tx) error {
		res, err := tx.Exec("DELETE FROM notes WHERE client_id = ?", id)
		if err != nil {
			return types.NewStorageError("deleting client notes", err)
		}
		notes, _ = res.RowsAffected()

		res, err = tx.Exec("DELETE FROM files WHERE client_id = ?", id)
		if err != nil {
			return types.NewStorageError("deleting client files", err)
		}
		files, _ = res.RowsAffected()

		if _, err := tx.Exec("DELETE FROM client_tags WHERE client_id = ?", id); err != nil {
			return types.NewStorageError("deleting client tags", err)
		}
		if _, err := tx.Exec("DELETE FROM clients WHERE client_id = ?", id); err != nil {
			return types.NewStorageError("deleting client", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.logger.WithFields(logrus.Fields{
		"module":    "sqlite",
		"op":        "delete_client",
		"client_id": id,
		"notes":     notes,
		"files":     files,
	}).Debug("client deleted with its notes and files")
	return nil
}

func getClient(q querier, id string) (*types.Client, error) {
	clients, err := scanClients(q, "SELECT "+clientColumns+" FROM clients WHERE client_id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return nil, types.ErrNotFound
	}
	tags, err := loadTagSets(q, "SELECT client_id, tag_id FROM client_tags WHERE client_id = ? ORDER BY ordinal", id)
	if err != nil {
		return nil, err
	}
	c := clients[0]
	if set, ok := tags[id]; ok {
		c.Tags = set
	}
	return c, nil
}

// scanClients runs stmt and hydrates each row. Tag sets start empty.
func scanClients(q querier, stmt string, args ...any) ([]*types.Client, error) {
	rows, err := q.Query(stmt, args...)
	if err != nil {
		return nil, types.NewStorageError("querying clients", err)
	}
	defer rows.Close()

	var clients []*types.Client
	for rows.Next() {
		var c types.Client
		var createdAt string
		if err := rows.Scan(
			&c.ID, &c.TaxID, &c.Email, &c.Password, &c.LegalName, &c.TaxpayerType,
			&c.EntityType, &c.Contact, &c.Administration, &c.Billing, &c.Regime, &c.Activity,
			&c.Consolidation, &c.Manager, &c.Address, &createdAt,
		); err != nil {
			return nil, types.NewStorageError("scanning client", err)
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, types.NewStorageError("hydrating client "+c.ID, err)
		}
		c.Tags = []string{}
		clients = append(clients, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewStorageError("iterating clients", err)
	}
	return clients, nil
}

// loadTagSets groups (client_id, tag_id) rows by client, in row order.
func loadTagSets(q querier, stmt string, args ...any) (map[string][]string, error) {
	rows, err := q.Query(stmt, args...)
	if err != nil {
		return nil, types.NewStorageError("querying client tags", err)
	}
	defer rows.Close()

	sets := make(map[string][]string)
	for rows.Next() {
		var clientID, tagID string
		if err := rows.Scan(&clientID, &tagID); err != nil {
			return nil, types.NewStorageError("scanning client tag", err)
		}
		sets[clientID] = append(sets[clientID], tagID)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewStorageError("iterating client tags", err)
	}
	return sets, nil
}

// upsertClient writes the client row and rewrites its tag set.
func upsertClient(q querier, c *types.Client) error {
	_, err := q.Exec(`INSERT INTO clients (`+clientColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(client_id) DO UPDATE SET
    tax_id = excluded.tax_id,
    email = excluded.email,
    password = excluded.password,
    legal_name = excluded.legal_name,
    taxpayer_type = excluded.taxpayer_type,
    entity_type = excluded.entity_type,
    contact = excluded.contact,
    administration = excluded.administration,
    billing = excluded.billing,
    regime = excluded.regime,
    activity = excluded.activity,
    consolidation = excluded.consolidation,
    manager = excluded.manager,
    address = excluded.address,
    created_at = excluded.created_at`,
		c.ID, c.TaxID, c.Email, c.Password, c.LegalName, c.TaxpayerType,
		c.EntityType, c.Contact, c.Administration, c.Billing, c.Regime, c.Activity,
		c.Consolidation, c.Manager, c.Address, formatTime(c.CreatedAt),
	)
	if err != nil {
		return types.NewStorageError("writing client "+c.ID, err)
	}
	if _, err := q.Exec("DELETE FROM client_tags WHERE client_id = ?", c.ID); err != nil {
		return types.NewStorageError("clearing client tags", err)
	}
	for i, tagID := range c.Tags {
		if _, err := q.Exec(
			"INSERT INTO client_tags (client_id, tag_id, ordinal) VALUES (?, ?, ?)",
			c.ID, tagID, i,
		); err != nil {
			return types.NewStorageError(fmt.Sprintf("writing client tag %s", tagID), err)
		}
	}
	return nil
}
