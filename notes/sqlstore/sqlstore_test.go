package sqlstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/muir/napi/notes"
	"github.com/muir/napi/notes/sqlstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T, dsn string) *sqlstore.Store {
	s, err := sqlstore.Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.CreateTable(context.Background()))
	require.NoError(t, s.CreateTable(context.Background()), "idempotent")
	return s
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := open(t, filepath.Join(t.TempDir(), "notes.db"))

	a, err := s.Insert(ctx, "first")
	require.NoError(t, err)
	b, err := s.Insert(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, notes.Note{ID: 1, Content: "first"}, a)
	assert.Equal(t, notes.Note{ID: 2, Content: "second"}, b)

	_, err = s.Insert(ctx, "second")
	assert.Error(t, err, "content is unique")

	n, found, err := s.FindByID(ctx, 2)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, b, n)

	_, found, err = s.FindByID(ctx, 999)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.DeleteByID(ctx, 1))
	require.NoError(t, s.DeleteByID(ctx, 1))
	all, err := s.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []notes.Note{b}, all)

	require.NoError(t, s.DeleteAll(ctx))
	all, err = s.FindAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "notes.db")
	s, err := sqlstore.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.CreateTable(ctx))
	_, err = s.Insert(ctx, "kept")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s = open(t, path)
	all, err := s.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []notes.Note{{ID: 1, Content: "kept"}}, all)
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	s := open(t, ":memory:")
	_, err := s.Insert(ctx, "only")
	require.NoError(t, err)
	all, err := s.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
