package textindex

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coderune/rune/pkg/types"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	dir := t.TempDir()
	idx, err := Open(context.Background(), filepath.Join(dir, "textindex.db"), 2, 50*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestIndex_UpsertAndMatch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, Document{
		Path: "/repo/main.go", Repository: "repo", Language: types.LangGo,
		Symbols: []SymbolSpan{{Name: "Hello", Kind: types.SymbolFunction, StartLine: 1, EndLine: 3}},
		Content: "func Hello() string {\n\treturn \"hi\"\n}",
	}))
	require.NoError(t, idx.Flush(ctx))

	hits, err := idx.Match(ctx, "content", "Hello", nil, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "/repo/main.go", hits[0].Path)
}

func TestIndex_FlushesAutomaticallyAtBatchSize(t *testing.T) {
	idx := newTestIndex(t) // batchSize = 2
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, Document{Path: "/a", Repository: "repo", Content: "alpha"}))
	require.NoError(t, idx.Upsert(ctx, Document{Path: "/b", Repository: "repo", Content: "beta"}))

	hits, err := idx.Match(ctx, "content", "alpha", nil, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestIndex_Delete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, Document{Path: "/a", Repository: "repo", Content: "alpha"}))
	require.NoError(t, idx.Flush(ctx))
	require.NoError(t, idx.Delete(ctx, "/a"))

	hits, err := idx.Match(ctx, "content", "alpha", nil, 10)
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestIndex_RepositoryFilter(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, Document{Path: "/a", Repository: "repo-a", Content: "shared term"}))
	require.NoError(t, idx.Upsert(ctx, Document{Path: "/b", Repository: "repo-b", Content: "shared term"}))
	require.NoError(t, idx.Flush(ctx))

	hits, err := idx.Match(ctx, "content", "shared", []string{"repo-a"}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "/a", hits[0].Path)
}

func TestIndex_ScanAndStats(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, Document{Path: "/a", Repository: "repo", Content: "one"}))
	require.NoError(t, idx.Upsert(ctx, Document{Path: "/b", Repository: "repo", Content: "two"}))
	require.NoError(t, idx.Flush(ctx))

	var paths []string
	require.NoError(t, idx.Scan(ctx, nil, func(h Hit) error {
		paths = append(paths, h.Path)
		return nil
	}))
	require.Len(t, paths, 2)

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.DocumentCount)
	require.True(t, stats.IndexSizeBytes > 0)
}
