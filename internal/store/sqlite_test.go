package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "weathercast.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSQLiteStore(t)

	_, err := s.Get(ctx, KeySettings)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, KeySettings, `{"unit":"metric"}`))
	require.NoError(t, s.Set(ctx, KeySettings, `{"unit":"imperial"}`))

	got, err := s.Get(ctx, KeySettings)
	require.NoError(t, err)
	assert.Equal(t, `{"unit":"imperial"}`, got)

	require.NoError(t, s.Remove(ctx, KeySettings))
	_, err = s.Get(ctx, KeySettings)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	s, path := newTestSQLiteStore(t)
	require.NoError(t, s.Set(ctx, KeyDarkMode, "true"))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, KeyDarkMode)
	require.NoError(t, err)
	assert.Equal(t, "true", got)
}

func TestSQLiteStoreFilePermissions(t *testing.T) {
	_, path := newTestSQLiteStore(t)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
