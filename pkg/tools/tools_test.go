package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coderune/rune/internal/config"
	"github.com/coderune/rune/internal/engine"
	"github.com/coderune/rune/internal/logging"
	"github.com/coderune/rune/pkg/types"
)

func startedEngine(t *testing.T) *engine.Engine {
	t.Helper()
	ws := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(ws, "auth.js"), []byte(
		"function loginUser(name) {\n  return name;\n}\n"), 0o644))

	enabled := false
	cfg := &config.Config{
		Workspace: config.WorkspaceConfig{Root: ws, Repository: "ws"},
		Storage:   config.StorageConfig{Dir: t.TempDir()},
	}
	cfg.Search.EnableSemantic = &enabled
	cfg.ApplyDefaults()

	e := engine.New(logging.NewTestLogger().Logger)
	ctx := context.Background()
	require.NoError(t, e.Initialize(ctx, cfg))
	require.NoError(t, e.Start(ctx))
	t.Cleanup(func() { _ = e.Stop(context.Background()) })
	return e
}

func TestParseMode(t *testing.T) {
	mode, err := parseMode("")
	require.NoError(t, err)
	require.Equal(t, types.ModeHybrid, mode)

	mode, err = parseMode("literal")
	require.NoError(t, err)
	require.Equal(t, types.ModeLiteral, mode)

	_, err = parseMode("keyword")
	require.Error(t, err)
}

func TestHandleSearch(t *testing.T) {
	e := startedEngine(t)
	s, err := NewServer(Config{}, e)
	require.NoError(t, err)

	_, out, err := s.handleSearch(context.Background(), nil, searchInput{Query: "loginUser", Mode: "literal"})
	require.NoError(t, err)
	require.NotEmpty(t, out.Results)
	require.Equal(t, "Exact", out.Results[0].MatchType)
	require.Contains(t, out.Results[0].Path, "auth.js")

	_, _, err = s.handleSearch(context.Background(), nil, searchInput{})
	require.Error(t, err, "missing query must be rejected")

	_, _, err = s.handleSearch(context.Background(), nil, searchInput{Query: "x y", Mode: "keyword"})
	require.Error(t, err, "unknown mode must be rejected")
}

func TestHandleIndexStatus(t *testing.T) {
	e := startedEngine(t)
	s, err := NewServer(Config{}, e)
	require.NoError(t, err)

	_, out, err := s.handleIndexStatus(context.Background(), nil, struct{}{})
	require.NoError(t, err)
	require.EqualValues(t, 1, out.IndexedFiles)
	require.NotEmpty(t, out.LastIndexAt)
}

func TestHandleReindexAndConfigure(t *testing.T) {
	e := startedEngine(t)
	s, err := NewServer(Config{}, e)
	require.NoError(t, err)

	_, reindexed, err := s.handleReindex(context.Background(), nil, reindexInput{})
	require.NoError(t, err)
	require.EqualValues(t, 1, reindexed.FilesIndexed)

	limit := 9
	_, configured, err := s.handleConfigure(context.Background(), nil, configureInput{DefaultLimit: &limit})
	require.NoError(t, err)
	require.True(t, configured.Success)

	cfg, ok := configured.Config.(config.Config)
	require.True(t, ok)
	require.Equal(t, 9, cfg.Search.DefaultLimit)
}
