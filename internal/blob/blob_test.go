package blob

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

// exerciseStore runs the behavior shared by every driver.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Put(ctx, "backups/b.json", strings.NewReader(`{"b":1}`), PutOptions{ContentType: "application/json"})
	require.NoError(t, err)
	info, err := s.Put(ctx, "backups/a.json", strings.NewReader(`{"a":1}`), PutOptions{})
	require.NoError(t, err)
	assert.Equal(t, "backups/a.json", info.Key)
	assert.EqualValues(t, 7, info.Size)
	_, err = s.Put(ctx, "other/c.json", strings.NewReader("c"), PutOptions{})
	require.NoError(t, err)

	rc, err := s.Get(ctx, "backups/a.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, readAll(t, rc))

	// Put replaces.
	_, err = s.Put(ctx, "backups/a.json", strings.NewReader(`{"a":2}`), PutOptions{})
	require.NoError(t, err)
	rc, err = s.Get(ctx, "backups/a.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, readAll(t, rc))

	infos, err := s.List(ctx, "backups/")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "backups/a.json", infos[0].Key)
	assert.Equal(t, "backups/b.json", infos[1].Key)

	require.NoError(t, s.Delete(ctx, "backups/b.json"))
	assert.ErrorIs(t, s.Delete(ctx, "backups/b.json"), ErrNotFound)
	_, err = s.Get(ctx, "backups/b.json")
	assert.ErrorIs(t, err, ErrNotFound)

	infos, err = s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, infos, 2)
}

func TestFilesystem(t *testing.T) {
	s, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, s.Driver())
	exerciseStore(t, s)
}

func TestFilesystem_WritesUnderRoot(t *testing.T) {
	root := t.TempDir()
	s, err := NewFilesystem(root)
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "x/y/z.json", strings.NewReader("{}"), PutOptions{})
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(root, "x", "y", "z.json"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	entries, err := os.ReadDir(filepath.Join(root, "x", "y"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFilesystem_ListSkipsTempFiles(t *testing.T) {
	root := t.TempDir()
	s, err := NewFilesystem(root)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, tmpPrefix+"123"), []byte("partial"), 0o644))

	infos, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestSanitizeKey(t *testing.T) {
	for _, key := range []string{"", "  ", "/abs", "../escape", "a/../../b", "a/.."} {
		t.Run(key, func(t *testing.T) {
			_, err := sanitizeKey(key)
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
	got, err := sanitizeKey("backups/./x.json")
	require.NoError(t, err)
	assert.Equal(t, "backups/x.json", got)
}

func TestFilesystem_CanceledContext(t *testing.T) {
	s, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Put(ctx, "k", strings.NewReader("v"), PutOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{FSRoot: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, s.Driver())

	s, err = Open(ctx, Config{Driver: DriverMemory})
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, s.Driver())

	_, err = Open(ctx, Config{Driver: DriverS3})
	assert.Error(t, err, "bucket required")

	_, err = Open(ctx, Config{Driver: "ftp"})
	assert.Error(t, err)

	_, err = Open(ctx, Config{Driver: DriverFilesystem})
	assert.ErrorIs(t, err, ErrInvalidKey)
}
