package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/consultora/pkg/types"
)

var _ types.SettingsTable = (*settingsTable)(nil)

// settingsTable stores the singleton records as JSON values in settings.
type settingsTable struct {
	backend *Backend
}

func (st *settingsTable) Credentials() (types.Credentials, error) {
	creds := types.DefaultCredentials()
	if err := st.read(settingCredentials, &creds); err != nil {
		return types.Credentials{}, err
	}
	return creds, nil
}

func (st *settingsTable) SetCredentials(c types.Credentials) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return st.write(settingCredentials, c)
}

func (st *settingsTable) OptionLists() (types.OptionLists, error) {
	opts := types.DefaultOptionLists()
	if err := st.read(settingOptions, &opts); err != nil {
		return types.OptionLists{}, err
	}
	return opts, nil
}

func (st *settingsTable) SetOptionLists(o types.OptionLists) error {
	return st.write(settingOptions, o.Clone())
}

// read decodes the value stored under key into dst, leaving dst untouched
// when the key was never written.
func (st *settingsTable) read(key string, dst any) error {
	b := st.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.ErrStoreDetached
	}

	var raw string
	err := b.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return types.NewStorageError("reading "+key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return types.NewStorageError("decoding "+key, err)
	}
	return nil
}

func (st *settingsTable) write(key string, value any) error {
	b := st.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}
	return writeSetting(b.db, key, value, formatTime(b.now()))
}

func writeSetting(q querier, key string, value any, updatedAt string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	_, err = q.Exec(`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data), updatedAt,
	)
	if err != nil {
		return types.NewStorageError("writing "+key, err)
	}
	return nil
}
