package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/consultora/internal/storetest"
	"github.com/mesh-intelligence/consultora/pkg/types"
)

func TestStoreBehavior(t *testing.T) {
	storetest.Run(t, func(t *testing.T) types.Store {
		s := New()
		require.NoError(t, s.Attach(types.Config{Backend: types.BackendMemory}))
		t.Cleanup(func() { s.Detach() })
		return s
	})
}

func TestAttach(t *testing.T) {
	s := New()
	assert.ErrorIs(t, s.Attach(types.Config{Backend: types.BackendSQLite}), types.ErrBackendUnknown)
	require.NoError(t, s.Attach(types.Config{Backend: types.BackendMemory}))
	assert.ErrorIs(t, s.Attach(types.Config{Backend: types.BackendMemory}), types.ErrAlreadyAttached)
}

func TestDetachDropsContent(t *testing.T) {
	s := New()
	require.NoError(t, s.Attach(types.Config{Backend: types.BackendMemory}))
	_, err := s.Tags().Save(&types.Tag{Name: "x"})
	require.NoError(t, err)

	require.NoError(t, s.Detach())
	require.NoError(t, s.Attach(types.Config{Backend: types.BackendMemory}))
	tags, err := s.Tags().List()
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestSaveKeepsPrivateCopy(t *testing.T) {
	fixed := time.Date(2024, time.May, 5, 0, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return fixed }))
	require.NoError(t, s.Attach(types.Config{Backend: types.BackendMemory}))

	c := storetest.Client("Original", "1")
	_, err := s.Clients().Save(c)
	require.NoError(t, err)
	assert.Equal(t, fixed, c.CreatedAt)

	c.LegalName = "mutated after save"
	c.Tags = append(c.Tags, "leak")
	got, err := s.Clients().Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", got.LegalName)
	assert.Empty(t, got.Tags)
}
