package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coderune/rune/internal/config"
	"github.com/coderune/rune/internal/logging"
	"github.com/coderune/rune/internal/watcher"
	"github.com/coderune/rune/pkg/types"
)

func boolPtr(b bool) *bool { return &b }

// newTestEngine builds a started engine over a workspace containing a
// JavaScript auth module and a Python database module, with semantic
// search disabled so no external services are needed.
func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	ws := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(ws, "auth.js"), []byte(
		"// auth helpers\nfunction loginUser(name, password) {\n  const session = createSession(name);\n  return session;\n}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(ws, "database_operations.py"), []byte(
		"class ConnectionPool:\n    def acquire(self):\n        return self.free.pop()\n\ndef helper():\n    pass\n"), 0o644))

	cfg := &config.Config{
		Workspace: config.WorkspaceConfig{Root: ws, Repository: "ws"},
		Storage:   config.StorageConfig{Dir: t.TempDir()},
	}
	cfg.Search.EnableSemantic = boolPtr(false)
	cfg.ApplyDefaults()

	e := New(logging.NewTestLogger().Logger)
	ctx := context.Background()
	require.NoError(t, e.Initialize(ctx, cfg))
	require.NoError(t, e.Start(ctx))
	t.Cleanup(func() {
		if e.State() == StateRunning {
			_ = e.Stop(context.Background())
		}
	})
	return e, ws
}

func TestEngine_SearchRequiresRunning(t *testing.T) {
	e := New(logging.NewTestLogger().Logger)
	_, err := e.Search(context.Background(), types.Query{Text: "anything", Mode: types.ModeLiteral})
	require.Error(t, err)
}

func TestEngine_LiteralSearchAfterInitialWalk(t *testing.T) {
	e, _ := newTestEngine(t)

	reply, err := e.Search(context.Background(), types.Query{Text: "loginUser", Mode: types.ModeLiteral})
	require.NoError(t, err)
	require.NotEmpty(t, reply.Results)
	require.Contains(t, reply.Results[0].Path, "auth.js")
	require.False(t, reply.Degraded)
}

func TestEngine_SymbolSearchFindsDefinition(t *testing.T) {
	e, _ := newTestEngine(t)

	reply, err := e.Search(context.Background(), types.Query{Text: "loginUser", Mode: types.ModeSymbol})
	require.NoError(t, err)
	require.Len(t, reply.Results, 1)
	r := reply.Results[0]
	require.Contains(t, r.Path, "auth.js")
	require.Equal(t, 2, r.LineNumber)
	require.Equal(t, types.MatchSymbol, r.MatchType)
	require.Equal(t, 1.0, r.Score)
}

func TestEngine_SemanticDegradesWhenDisabled(t *testing.T) {
	e, _ := newTestEngine(t)

	reply, err := e.Search(context.Background(), types.Query{Text: "database pooling", Mode: types.ModeSemantic})
	require.NoError(t, err)
	require.Empty(t, reply.Results)
	require.True(t, reply.Degraded)

	hybrid, err := e.Search(context.Background(), types.Query{Text: "loginUser", Mode: types.ModeHybrid})
	require.NoError(t, err)
	require.NotEmpty(t, hybrid.Results, "hybrid still fuses literal+symbol")
	require.True(t, hybrid.Degraded)
}

func TestEngine_ShortQueryReturnsEmptyFast(t *testing.T) {
	e, _ := newTestEngine(t)

	reply, err := e.Search(context.Background(), types.Query{Text: "a", Mode: types.ModeLiteral})
	require.NoError(t, err)
	require.Empty(t, reply.Results)
	require.Zero(t, reply.TotalMatches)
}

func TestEngine_StatsCountsIndexedFiles(t *testing.T) {
	e, _ := newTestEngine(t)

	stats, err := e.Stats(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.IndexedFiles)
	require.Greater(t, stats.TotalSymbols, int64(0))
	require.Greater(t, stats.IndexSizeBytes, int64(0))
	require.False(t, stats.LastIndexAt.IsZero())
}

func TestEngine_ReindexIsIdempotent(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	before, err := e.Stats(ctx)
	require.NoError(t, err)

	reply, err := e.Reindex(ctx, nil)
	require.NoError(t, err)
	require.EqualValues(t, before.IndexedFiles, reply.FilesIndexed)
	require.EqualValues(t, before.TotalSymbols, reply.SymbolsExtracted)

	after, err := e.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, before.IndexedFiles, after.IndexedFiles)
	require.Equal(t, before.TotalSymbols, after.TotalSymbols)
}

func TestEngine_UnchangedFileOnlyRefreshesIndexedAt(t *testing.T) {
	e, ws := newTestEngine(t)
	ctx := context.Background()

	path := filepath.Join(ws, "auth.js")
	prev, err := e.meta.Get(ctx, path)
	require.NoError(t, err)

	f, ok := e.walkers[0].FileFor(path)
	require.True(t, ok)
	changed, _, err := e.indexFile(ctx, f)
	require.NoError(t, err)
	require.False(t, changed, "same content hash must skip downstream work")

	curr, err := e.meta.Get(ctx, path)
	require.NoError(t, err)
	require.Equal(t, prev.ContentHash, curr.ContentHash)
	require.False(t, curr.IndexedAt.Before(prev.IndexedAt))
}

func TestEngine_DeletePropagatesToAllStores(t *testing.T) {
	e, ws := newTestEngine(t)
	ctx := context.Background()

	path := filepath.Join(ws, "auth.js")
	require.NoError(t, os.Remove(path))
	e.handleEvent(ctx, watcher.Event{Path: path, Kind: watcher.EventRemove})

	reply, err := e.Search(ctx, types.Query{Text: "loginUser", Mode: types.ModeLiteral})
	require.NoError(t, err)
	require.Empty(t, reply.Results)

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.IndexedFiles)

	_, err = e.meta.Get(ctx, path)
	require.Error(t, err)
}

func TestEngine_NewFileIndexedOnWatchEvent(t *testing.T) {
	e, ws := newTestEngine(t)
	ctx := context.Background()

	path := filepath.Join(ws, "newfile.js")
	require.NoError(t, os.WriteFile(path, []byte("function newFunction() {\n  return 42;\n}\n"), 0o644))
	e.handleEvent(ctx, watcher.Event{Path: path, Kind: watcher.EventReindex})

	reply, err := e.Search(ctx, types.Query{Text: "newFunction", Mode: types.ModeLiteral})
	require.NoError(t, err)
	require.NotEmpty(t, reply.Results)
	require.Contains(t, reply.Results[0].Path, "newfile.js")
}

func TestEngine_CacheInvalidatedOnFileChange(t *testing.T) {
	e, ws := newTestEngine(t)
	ctx := context.Background()

	q := types.Query{Text: "loginUser", Mode: types.ModeLiteral}
	first, err := e.Search(ctx, q)
	require.NoError(t, err)
	require.NotEmpty(t, first.Results)

	path := filepath.Join(ws, "auth.js")
	require.NoError(t, os.Remove(path))
	e.handleEvent(ctx, watcher.Event{Path: path, Kind: watcher.EventRemove})

	// Invalidation runs on the cache's subscriber goroutine; poll until
	// the stale entry is gone.
	require.Eventually(t, func() bool {
		reply, err := e.Search(ctx, q)
		return err == nil && len(reply.Results) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEngine_ConfigureUpdatesSearchKnobs(t *testing.T) {
	e, _ := newTestEngine(t)

	limit := 7
	cfg, err := e.Configure(context.Background(), ConfigPatch{DefaultLimit: &limit})
	require.NoError(t, err)
	require.Equal(t, 7, cfg.Search.DefaultLimit)

	reply, err := e.Search(context.Background(), types.Query{Text: "return", Mode: types.ModeLiteral})
	require.NoError(t, err)
	require.LessOrEqual(t, len(reply.Results), 7)
}

func TestEngine_StopFlushesAndRejectsWork(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Stop(ctx))
	_, err := e.Search(ctx, types.Query{Text: "loginUser", Mode: types.ModeLiteral})
	require.ErrorIs(t, err, ErrShutdown)
	_, err = e.Stats(ctx)
	require.ErrorIs(t, err, ErrShutdown)
}
