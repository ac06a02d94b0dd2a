// Package storetest holds the behavior every types.Store implementation must
// share. Backend packages call Run from their own tests.
package storetest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/consultora/pkg/types"
)

// Factory returns an attached, empty store. It should register its own
// cleanup with t.
type Factory func(t *testing.T) types.Store

// Run executes the shared suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("ClientRoundTrip", func(t *testing.T) { testClientRoundTrip(t, newStore(t)) })
	t.Run("SaveRejectsInvalid", func(t *testing.T) { testSaveRejectsInvalid(t, newStore(t)) })
	t.Run("MissingAndEmptyIDs", func(t *testing.T) { testMissingAndEmptyIDs(t, newStore(t)) })
	t.Run("UpsertLastWriteWins", func(t *testing.T) { testUpsert(t, newStore(t)) })
	t.Run("ClientOrder", func(t *testing.T) { testClientOrder(t, newStore(t)) })
	t.Run("NoteAndFileOrder", func(t *testing.T) { testNoteAndFileOrder(t, newStore(t)) })
	t.Run("ClientDeleteCascades", func(t *testing.T) { testClientDeleteCascades(t, newStore(t)) })
	t.Run("TagDeleteStripsClients", func(t *testing.T) { testTagDelete(t, newStore(t)) })
	t.Run("MergedDocuments", func(t *testing.T) { testMergedDocuments(t, newStore(t)) })
	t.Run("SettingsDefaults", func(t *testing.T) { testSettings(t, newStore(t)) })
	t.Run("Replace", func(t *testing.T) { testReplace(t, newStore(t)) })
	t.Run("ReplaceKeepsTagsWhenAbsent", func(t *testing.T) { testReplaceKeepsTags(t, newStore(t)) })
	t.Run("ReplaceRejectsInvalid", func(t *testing.T) { testReplaceRejectsInvalid(t, newStore(t)) })
	t.Run("ReplaceRejectsNilEntries", func(t *testing.T) { testReplaceRejectsNilEntries(t, newStore(t)) })
	t.Run("Detached", func(t *testing.T) { testDetached(t, newStore(t)) })
}

var base = time.Date(2024, time.March, 10, 9, 30, 0, 123456789, time.UTC)

// Client returns a valid client for tests.
func Client(legalName, taxID string) *types.Client {
	return &types.Client{
		TaxID:        taxID,
		Email:        "contacto@" + taxID + ".bo",
		Password:     "clave",
		LegalName:    legalName,
		TaxpayerType: "Natural",
		Contact:      "70000000",
		Regime:       "General",
		Manager:      "Administrador",
	}
}

func testClientRoundTrip(t *testing.T, s types.Store) {
	c := Client("Acme S.R.L.", "1020304")
	c.Tags = []string{"t1", "t2", "t1"}

	id, err := s.Clients().Save(c)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, id, c.ID)
	assert.False(t, c.CreatedAt.IsZero(), "creation timestamp assigned")

	got, err := s.Clients().Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Acme S.R.L.", got.LegalName)
	assert.Equal(t, "1020304", got.TaxID)
	assert.Equal(t, []string{"t1", "t2"}, got.Tags)
	assert.True(t, c.CreatedAt.Equal(got.CreatedAt))

	// Mutating the returned copy must not leak into the store.
	got.LegalName = "changed"
	again, err := s.Clients().Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Acme S.R.L.", again.LegalName)

	// A fresh client without tags reads back with an empty, non-nil set.
	plain := Client("Beta", "555")
	_, err = s.Clients().Save(plain)
	require.NoError(t, err)
	got, err = s.Clients().Get(plain.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.Tags)
	assert.Empty(t, got.Tags)
}

func testSaveRejectsInvalid(t *testing.T, s types.Store) {
	tests := []struct {
		name string
		save func() (string, error)
	}{
		{"client without legal name", func() (string, error) {
			return s.Clients().Save(&types.Client{TaxID: "1", Email: "a@b.c"})
		}},
		{"note without content", func() (string, error) {
			return s.Notes().Save(&types.Note{ClientID: "c1", Content: "  "})
		}},
		{"file with month out of range", func() (string, error) {
			return s.Files().Save(&types.File{ClientID: "c1", Name: "a.pdf", Year: 2024, Month: 12})
		}},
		{"tag without name", func() (string, error) {
			return s.Tags().Save(&types.Tag{})
		}},
		{"merged document without name", func() (string, error) {
			return s.MergedDocuments().Save(&types.MergedDocument{})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.save()
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrInvalidData), "got %v", err)
		})
	}

	clients, err := s.Clients().List()
	require.NoError(t, err)
	assert.Empty(t, clients)
	notes, err := s.Notes().List()
	require.NoError(t, err)
	assert.Empty(t, notes)
	files, err := s.Files().List()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func testMissingAndEmptyIDs(t *testing.T, s types.Store) {
	_, err := s.Clients().Get("missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = s.Notes().Get("missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = s.Files().Get("missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = s.MergedDocuments().Get("missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = s.Tags().Get("missing")
	assert.ErrorIs(t, err, types.ErrNotFound)

	assert.ErrorIs(t, s.Clients().Delete("missing"), types.ErrNotFound)
	assert.ErrorIs(t, s.Notes().Delete("missing"), types.ErrNotFound)
	assert.ErrorIs(t, s.Files().Delete("missing"), types.ErrNotFound)
	assert.ErrorIs(t, s.MergedDocuments().Delete("missing"), types.ErrNotFound)
	assert.ErrorIs(t, s.Tags().Delete("missing"), types.ErrNotFound)

	_, err = s.Clients().Get("")
	assert.ErrorIs(t, err, types.ErrInvalidID)
	assert.ErrorIs(t, s.Notes().Delete(""), types.ErrInvalidID)
	_, err = s.Files().ListByClient("")
	assert.ErrorIs(t, err, types.ErrInvalidID)
}

func testUpsert(t *testing.T, s types.Store) {
	c := Client("Original", "100")
	id, err := s.Clients().Save(c)
	require.NoError(t, err)
	created := c.CreatedAt

	update := Client("Renombrada", "100")
	update.ID = id
	update.CreatedAt = created
	_, err = s.Clients().Save(update)
	require.NoError(t, err)

	all, err := s.Clients().List()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Renombrada", all[0].LegalName)
	assert.True(t, created.Equal(all[0].CreatedAt))
}

func testClientOrder(t *testing.T, s types.Store) {
	for _, name := range []string{"Zeta", "ñandú", "Nube", "Álamo", "beta"} {
		_, err := s.Clients().Save(Client(name, name))
		require.NoError(t, err)
	}
	all, err := s.Clients().List()
	require.NoError(t, err)
	var names []string
	for _, c := range all {
		names = append(names, c.LegalName)
	}
	assert.Equal(t, []string{"Álamo", "beta", "Nube", "ñandú", "Zeta"}, names)
}

func testNoteAndFileOrder(t *testing.T, s types.Store) {
	c := Client("Acme", "1")
	_, err := s.Clients().Save(c)
	require.NoError(t, err)
	other := Client("Otra", "2")
	_, err = s.Clients().Save(other)
	require.NoError(t, err)

	for i, content := range []string{"primera", "segunda", "tercera"} {
		_, err := s.Notes().Save(&types.Note{
			ClientID:  c.ID,
			Content:   content,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}
	_, err = s.Notes().Save(&types.Note{ClientID: other.ID, Content: "ajena", CreatedAt: base})
	require.NoError(t, err)

	notes, err := s.Notes().ListByClient(c.ID)
	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, "tercera", notes[0].Content)
	assert.Equal(t, "primera", notes[2].Content)

	files := []*types.File{
		{ClientID: c.ID, Name: "ene.pdf", Year: 2024, Month: 0, UploadedAt: base},
		{ClientID: c.ID, Name: "mar.pdf", Year: 2024, Month: 2, UploadedAt: base},
		{ClientID: c.ID, Name: "dic.pdf", Year: 2023, Month: 11, UploadedAt: base},
		{ClientID: c.ID, Name: "mar-tarde.pdf", Year: 2024, Month: 2, UploadedAt: base.Add(time.Minute)},
	}
	for _, f := range files {
		_, err := s.Files().Save(f)
		require.NoError(t, err)
	}
	got, err := s.Files().List()
	require.NoError(t, err)
	var names []string
	for _, f := range got {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"mar-tarde.pdf", "mar.pdf", "ene.pdf", "dic.pdf"}, names)

	byOther, err := s.Files().ListByClient(other.ID)
	require.NoError(t, err)
	assert.Empty(t, byOther)
}

func testClientDeleteCascades(t *testing.T, s types.Store) {
	keep := Client("Queda", "1")
	gone := Client("Se va", "2")
	for _, c := range []*types.Client{keep, gone} {
		_, err := s.Clients().Save(c)
		require.NoError(t, err)
		_, err = s.Notes().Save(&types.Note{ClientID: c.ID, Content: "nota"})
		require.NoError(t, err)
		_, err = s.Files().Save(&types.File{ClientID: c.ID, Name: "a.pdf", Year: 2024, Month: 1})
		require.NoError(t, err)
	}

	require.NoError(t, s.Clients().Delete(gone.ID))

	_, err := s.Clients().Get(gone.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	notes, err := s.Notes().List()
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, keep.ID, notes[0].ClientID)
	files, err := s.Files().List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, keep.ID, files[0].ClientID)
}

func testTagDelete(t *testing.T, s types.Store) {
	urgent := &types.Tag{Name: "Urgente", Color: "#ff0000"}
	vip := &types.Tag{Name: "VIP"}
	for _, tag := range []*types.Tag{urgent, vip} {
		_, err := s.Tags().Save(tag)
		require.NoError(t, err)
	}

	a := Client("A", "1")
	a.Tags = []string{urgent.ID, vip.ID}
	b := Client("B", "2")
	b.Tags = []string{urgent.ID}
	c := Client("C", "3")
	for _, cl := range []*types.Client{a, b, c} {
		_, err := s.Clients().Save(cl)
		require.NoError(t, err)
	}

	require.NoError(t, s.Tags().Delete(urgent.ID))

	tags, err := s.Tags().List()
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "VIP", tags[0].Name)

	got, err := s.Clients().Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{vip.ID}, got.Tags)
	got, err = s.Clients().Get(b.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
	got, err = s.Clients().Get(c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
}

func testMergedDocuments(t *testing.T, s types.Store) {
	older := &types.MergedDocument{Name: "viejo.pdf", Data: "QQ==", CreatedAt: base, ClientIDs: []string{"c1", "c2", "c1"}}
	newer := &types.MergedDocument{Name: "nuevo.pdf", Data: "Qg==", CreatedAt: base.Add(time.Hour)}
	for _, m := range []*types.MergedDocument{older, newer} {
		_, err := s.MergedDocuments().Save(m)
		require.NoError(t, err)
	}

	all, err := s.MergedDocuments().List()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "nuevo.pdf", all[0].Name)
	assert.Equal(t, []string{"c1", "c2"}, all[1].ClientIDs)
	assert.NotNil(t, all[0].ClientIDs)

	got, err := s.MergedDocuments().Get(older.ID)
	require.NoError(t, err)
	assert.Equal(t, "QQ==", got.Data)
	assert.True(t, base.Equal(got.CreatedAt))

	require.NoError(t, s.MergedDocuments().Delete(older.ID))
	all, err = s.MergedDocuments().List()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testSettings(t *testing.T, s types.Store) {
	creds, err := s.Settings().Credentials()
	require.NoError(t, err)
	assert.Equal(t, types.DefaultCredentials(), creds)

	opts, err := s.Settings().OptionLists()
	require.NoError(t, err)
	assert.Equal(t, types.DefaultOptionLists(), opts)

	require.NoError(t, s.Settings().SetCredentials(types.Credentials{Username: "ana", Password: "secreta"}))
	creds, err = s.Settings().Credentials()
	require.NoError(t, err)
	assert.Equal(t, "ana", creds.Username)

	err = s.Settings().SetCredentials(types.Credentials{Username: "ana"})
	assert.ErrorIs(t, err, types.ErrInvalidData)

	require.NoError(t, opts.Add(types.OptionManager, "Auditor"))
	require.NoError(t, s.Settings().SetOptionLists(opts))
	stored, err := s.Settings().OptionLists()
	require.NoError(t, err)
	assert.Contains(t, stored.Manager, "Auditor")
}

func snapshot() *types.Snapshot {
	c := Client("Restaurada", "900")
	c.ID = "c-900"
	c.CreatedAt = base
	c.Tags = []string{"tag-1"}
	return &types.Snapshot{
		Clients: []*types.Client{c},
		Notes: []*types.Note{
			{ID: "n-1", ClientID: "c-900", Content: "restaurada", CreatedAt: base},
		},
		Files: []*types.File{
			{ID: "f-1", ClientID: "c-900", Name: "a.pdf", Year: 2024, Month: 4, Data: "JVBERi0=", UploadedAt: base},
		},
		MergedDocuments: []*types.MergedDocument{
			{ID: "m-1", Name: "unido.pdf", Data: "JVBERi0=", CreatedAt: base, ClientIDs: []string{"c-900"}},
		},
		Credentials: types.Credentials{Username: "restaurado", Password: "x"},
		Options:     types.DefaultOptionLists(),
	}
}

func testReplace(t *testing.T, s types.Store) {
	_, err := s.Clients().Save(Client("Previa", "1"))
	require.NoError(t, err)
	_, err = s.Tags().Save(&types.Tag{Name: "vieja"})
	require.NoError(t, err)

	snap := snapshot()
	snap.Tags = []*types.Tag{{ID: "tag-1", Name: "Nueva", Color: "#00ff00", CreatedAt: base}}
	require.NoError(t, s.Replace(snap))

	clients, err := s.Clients().List()
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "c-900", clients[0].ID)
	assert.True(t, base.Equal(clients[0].CreatedAt), "timestamps preserved")
	assert.Equal(t, []string{"tag-1"}, clients[0].Tags)

	note, err := s.Notes().Get("n-1")
	require.NoError(t, err)
	assert.Equal(t, "restaurada", note.Content)
	file, err := s.Files().Get("f-1")
	require.NoError(t, err)
	assert.Equal(t, 4, file.Month)
	merged, err := s.MergedDocuments().Get("m-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c-900"}, merged.ClientIDs)

	tags, err := s.Tags().List()
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "Nueva", tags[0].Name)

	creds, err := s.Settings().Credentials()
	require.NoError(t, err)
	assert.Equal(t, "restaurado", creds.Username)
}

func testReplaceKeepsTags(t *testing.T, s types.Store) {
	tag := &types.Tag{Name: "Persistente"}
	_, err := s.Tags().Save(tag)
	require.NoError(t, err)

	require.NoError(t, s.Replace(snapshot()))

	tags, err := s.Tags().List()
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, tag.ID, tags[0].ID)
}

func testReplaceRejectsInvalid(t *testing.T, s types.Store) {
	prior := Client("Intacta", "1")
	_, err := s.Clients().Save(prior)
	require.NoError(t, err)

	snap := snapshot()
	snap.Notes = append(snap.Notes, &types.Note{ID: "n-2", ClientID: "c-900"})
	err = s.Replace(snap)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidData)

	snap = snapshot()
	snap.Files[0].ID = ""
	assert.ErrorIs(t, s.Replace(snap), types.ErrInvalidID)

	clients, err := s.Clients().List()
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, prior.ID, clients[0].ID)
	creds, err := s.Settings().Credentials()
	require.NoError(t, err)
	assert.Equal(t, types.DefaultCredentials(), creds)
}

func testReplaceRejectsNilEntries(t *testing.T, s types.Store) {
	prior := Client("Intacta", "1")
	_, err := s.Clients().Save(prior)
	require.NoError(t, err)

	tests := []struct {
		name string
		edit func(*types.Snapshot)
	}{
		{"client", func(snap *types.Snapshot) { snap.Clients = append(snap.Clients, nil) }},
		{"note", func(snap *types.Snapshot) { snap.Notes = append(snap.Notes, nil) }},
		{"file", func(snap *types.Snapshot) { snap.Files = append(snap.Files, nil) }},
		{"merged document", func(snap *types.Snapshot) { snap.MergedDocuments = append(snap.MergedDocuments, nil) }},
		{"tag", func(snap *types.Snapshot) { snap.Tags = append(snap.Tags, nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := snapshot()
			tt.edit(snap)
			var err error
			require.NotPanics(t, func() { err = s.Replace(snap) })
			assert.ErrorIs(t, err, types.ErrInvalidData)
		})
	}
	assert.ErrorIs(t, s.Replace(nil), types.ErrInvalidData)

	clients, err := s.Clients().List()
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, prior.ID, clients[0].ID)
}

func testDetached(t *testing.T, s types.Store) {
	require.NoError(t, s.Detach())
	require.NoError(t, s.Detach(), "detach is idempotent")

	_, err := s.Clients().List()
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	_, err = s.Notes().Save(&types.Note{ClientID: "c", Content: "x"})
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	_, err = s.Files().Get("id")
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	assert.ErrorIs(t, s.Tags().Delete("id"), types.ErrStoreDetached)
	_, err = s.Settings().Credentials()
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	assert.ErrorIs(t, s.Replace(snapshot()), types.ErrStoreDetached)
}
