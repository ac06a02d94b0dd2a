package sqlite

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/consultora/internal/storetest"
	"github.com/mesh-intelligence/consultora/pkg/types"
)

func newAttached(t *testing.T, opts ...Option) *Backend {
	t.Helper()
	b := NewBackend(opts...)
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })
	return b
}

func TestStoreBehavior(t *testing.T) {
	storetest.Run(t, func(t *testing.T) types.Store { return newAttached(t) })
}

func TestBackend_Attach(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	b := NewBackend()
	config := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	require.NoError(t, b.Attach(config))
	defer b.Detach()

	_, err := os.Stat(filepath.Join(dir, DBFileName))
	require.NoError(t, err, "database file created")
	assert.Equal(t, filepath.Join(dir, DBFileName), b.Path())

	assert.ErrorIs(t, b.Attach(config), types.ErrAlreadyAttached)
}

func TestBackend_AttachRejectsConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  types.Config
		wantErr error
	}{
		{"empty backend", types.Config{DataDir: t.TempDir()}, types.ErrBackendEmpty},
		{"memory backend", types.Config{Backend: types.BackendMemory}, types.ErrBackendUnknown},
		{"unknown backend", types.Config{Backend: "postgres"}, types.ErrBackendUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBackend()
			assert.ErrorIs(t, b.Attach(tt.config), tt.wantErr)
			assert.Empty(t, b.Path())
		})
	}
}

func TestBackend_PersistsAcrossReattach(t *testing.T) {
	dir := t.TempDir()
	config := types.Config{Backend: types.BackendSQLite, DataDir: dir}
	created := time.Date(2023, time.December, 31, 23, 59, 59, 987654321, time.UTC)

	b := NewBackend()
	require.NoError(t, b.Attach(config))
	c := storetest.Client("Persistente S.A.", "4455")
	c.CreatedAt = created
	c.Tags = []string{"t1"}
	id, err := b.Clients().Save(c)
	require.NoError(t, err)
	require.NoError(t, b.Settings().SetCredentials(types.Credentials{Username: "u", Password: "p"}))
	require.NoError(t, b.Detach())

	b2 := NewBackend()
	require.NoError(t, b2.Attach(config))
	defer b2.Detach()

	got, err := b2.Clients().Get(id)
	require.NoError(t, err)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, []string{"t1"}, got.Tags)

	creds, err := b2.Settings().Credentials()
	require.NoError(t, err)
	assert.Equal(t, "u", creds.Username, "reattach does not reseed defaults")
}

func TestBackend_Clock(t *testing.T) {
	fixed := time.Date(2024, time.July, 1, 12, 0, 0, 0, time.UTC)
	b := newAttached(t, WithClock(func() time.Time { return fixed }))

	n := &types.Note{ClientID: "c1", Content: "hola"}
	_, err := b.Notes().Save(n)
	require.NoError(t, err)
	assert.Equal(t, fixed, n.CreatedAt)

	got, err := b.Notes().Get(n.ID)
	require.NoError(t, err)
	assert.Equal(t, fixed, got.CreatedAt)
}

func TestBackend_CascadeLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)
	b := newAttached(t, WithLogger(logger))

	c := storetest.Client("Borrada", "1")
	_, err := b.Clients().Save(c)
	require.NoError(t, err)
	_, err = b.Notes().Save(&types.Note{ClientID: c.ID, Content: "x"})
	require.NoError(t, err)

	require.NoError(t, b.Clients().Delete(c.ID))
	assert.Contains(t, buf.String(), "client deleted")
	assert.Contains(t, buf.String(), "notes=1")
}

func TestBackend_StorageErrors(t *testing.T) {
	b := newAttached(t)
	// Dropping a table underneath the backend makes the medium fail.
	_, err := b.db.Exec("DROP TABLE notes")
	require.NoError(t, err)

	_, err = b.Notes().List()
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrStorage))
	var se *types.StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "querying notes", se.Op)
}

func TestBackend_FailedSaveLeavesRecordUntouched(t *testing.T) {
	b := newAttached(t)
	for _, table := range []string{"clients", "notes", "files", "merged_documents", "tags"} {
		_, err := b.db.Exec("DROP TABLE " + table)
		require.NoError(t, err)
	}

	c := storetest.Client("Sin guardar", "9")
	c.Tags = []string{"t1", "t1"}
	_, err := b.Clients().Save(c)
	require.ErrorIs(t, err, types.ErrStorage)
	assert.Empty(t, c.ID)
	assert.True(t, c.CreatedAt.IsZero())
	assert.Equal(t, []string{"t1", "t1"}, c.Tags)

	n := &types.Note{ClientID: "c", Content: "pendiente"}
	_, err = b.Notes().Save(n)
	require.ErrorIs(t, err, types.ErrStorage)
	assert.Empty(t, n.ID)
	assert.True(t, n.CreatedAt.IsZero())

	f := &types.File{ClientID: "c", Name: "iva.pdf", Year: 2024, Month: 1, Data: "JVBERi0="}
	_, err = b.Files().Save(f)
	require.ErrorIs(t, err, types.ErrStorage)
	assert.Empty(t, f.ID)
	assert.True(t, f.UploadedAt.IsZero())

	m := &types.MergedDocument{Name: "junio.pdf", Data: "JVBERi0="}
	_, err = b.MergedDocuments().Save(m)
	require.ErrorIs(t, err, types.ErrStorage)
	assert.Empty(t, m.ID)
	assert.Nil(t, m.ClientIDs)

	tag := &types.Tag{Name: "Urgente"}
	_, err = b.Tags().Save(tag)
	require.ErrorIs(t, err, types.ErrStorage)
	assert.Empty(t, tag.ID)
	assert.True(t, tag.CreatedAt.IsZero())
}

func TestBackend_ReplaceRollsBack(t *testing.T) {
	b := newAttached(t)
	prior := storetest.Client("Previa", "1")
	_, err := b.Clients().Save(prior)
	require.NoError(t, err)

	// A missing table fails the transaction partway through.
	_, err = b.db.Exec("DROP TABLE merged_documents")
	require.NoError(t, err)

	snap := &types.Snapshot{
		Clients: []*types.Client{func() *types.Client {
			c := storetest.Client("Nueva", "2")
			c.ID = "c-2"
			return c
		}()},
		MergedDocuments: []*types.MergedDocument{{ID: "m", Name: "x.pdf"}},
		Credentials:     types.DefaultCredentials(),
		Options:         types.DefaultOptionLists(),
	}
	err = b.Replace(snap)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrStorage)

	clients, err := b.Clients().List()
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, prior.ID, clients[0].ID)
}

func TestTimeRoundTrip(t *testing.T) {
	loc := time.FixedZone("BOT", -4*3600)
	in := time.Date(2024, time.February, 29, 20, 15, 0, 5, loc)
	out, err := parseTime(formatTime(in))
	require.NoError(t, err)
	assert.True(t, in.Equal(out))
	assert.Equal(t, time.UTC, out.Location())

	zero, err := parseTime(formatTime(time.Time{}))
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = parseTime("not a time")
	assert.Error(t, err)
}
