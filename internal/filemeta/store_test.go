package filemeta

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coderune/rune/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(context.Background(), filepath.Join(dir, "filemeta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleFile(path, repo string) types.File {
	return types.File{
		Path:        path,
		RelPath:     path,
		Repository:  repo,
		Language:    types.LangGo,
		SizeBytes:   128,
		ModTime:     time.Unix(1700000000, 0).UTC(),
		ContentHash: [32]byte{1, 2, 3},
		IndexedAt:   time.Unix(1700000100, 0).UTC(),
	}
}

func TestStore_UpsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	f := sampleFile("/repo/main.go", "repo")
	require.NoError(t, s.Upsert(ctx, f))

	got, err := s.Get(ctx, f.Path)
	require.NoError(t, err)
	require.Equal(t, f.Repository, got.Repository)
	require.Equal(t, f.SizeBytes, got.SizeBytes)
	require.Equal(t, f.ContentHash, got.ContentHash)
	require.Equal(t, f.Language, got.Language)
	require.WithinDuration(t, f.ModTime, got.ModTime, time.Second)
}

func TestStore_UpsertReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	f := sampleFile("/repo/main.go", "repo")
	require.NoError(t, s.Upsert(ctx, f))

	f.SizeBytes = 256
	f.ContentHash = [32]byte{9, 9, 9}
	require.NoError(t, s.Upsert(ctx, f))

	got, err := s.Get(ctx, f.Path)
	require.NoError(t, err)
	require.Equal(t, int64(256), got.SizeBytes)
	require.Equal(t, f.ContentHash, got.ContentHash)
}

func TestStore_GetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "/nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	f := sampleFile("/repo/main.go", "repo")
	require.NoError(t, s.Upsert(ctx, f))
	require.NoError(t, s.Delete(ctx, f.Path))

	_, err := s.Get(ctx, f.Path)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteMissingIsNoop(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Delete(context.Background(), "/never/existed"))
}

func TestStore_ListByRepository(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, sampleFile("/repo/a.go", "repo")))
	require.NoError(t, s.Upsert(ctx, sampleFile("/repo/b.go", "repo")))
	require.NoError(t, s.Upsert(ctx, sampleFile("/other/c.go", "other")))

	files, err := s.ListByRepository(ctx, "repo")
	require.NoError(t, err)
	require.Len(t, files, 2)
}

func TestStore_PurgeRepository(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, sampleFile("/repo/a.go", "repo")))
	require.NoError(t, s.Upsert(ctx, sampleFile("/other/c.go", "other")))

	require.NoError(t, s.PurgeRepository(ctx, "repo"))

	files, err := s.ListByRepository(ctx, "repo")
	require.NoError(t, err)
	require.Empty(t, files)

	files, err = s.ListByRepository(ctx, "other")
	require.NoError(t, err)
	require.Len(t, files, 1)
}
