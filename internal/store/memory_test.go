package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, KeyFavorites, `[{"id":1}]`))
	got, err := s.Get(ctx, KeyFavorites)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, got)

	require.NoError(t, s.Set(ctx, KeyFavorites, `[]`))
	got, err = s.Get(ctx, KeyFavorites)
	require.NoError(t, err)
	assert.Equal(t, `[]`, got)
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Remove(ctx, KeyFavorites))
	_, err = s.Get(ctx, KeyFavorites)
	assert.ErrorIs(t, err, ErrNotFound)

	// Removing an absent key is not an error.
	assert.NoError(t, s.Remove(ctx, KeyFavorites))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "etcd"})
	assert.Error(t, err)
}

func TestOpenMemory(t *testing.T) {
	s, err := Open(context.Background(), Options{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	assert.NoError(t, s.Close())
}
