package walker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coderune/rune/pkg/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWalk_SkipsIgnoredDirsAndBinaries(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main\n")
	writeFile(t, filepath.Join(root, "node_modules", "pkg", "index.js"), "console.log(1)\n")
	writeFile(t, filepath.Join(root, "vendor", "lib.go"), "package lib\n")
	require.NoError(t, os.WriteFile(filepath.Join(root, "bin.dat"), []byte{0, 1, 2, 0}, 0o644))

	w, err := New(root, "repo", 1<<20, nil)
	require.NoError(t, err)

	var found []string
	err = w.Walk(context.Background(), func(f types.File) error {
		found = append(found, f.RelPath)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"main.go"}, found)
}

func TestWalk_SkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "small.go"), "package main\n")
	writeFile(t, filepath.Join(root, "big.go"), "package main\n// filler\n")

	w, err := New(root, "repo", 5, nil)
	require.NoError(t, err)

	var found []string
	require.NoError(t, w.Walk(context.Background(), func(f types.File) error {
		found = append(found, f.RelPath)
		return nil
	}))
	require.Empty(t, found)
}

func TestWalk_HonorsExtraExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.go"), "package main\n")
	writeFile(t, filepath.Join(root, "generated", "gen.go"), "package main\n")

	w, err := New(root, "repo", 1<<20, []string{"**/generated/**"})
	require.NoError(t, err)

	var found []string
	require.NoError(t, w.Walk(context.Background(), func(f types.File) error {
		found = append(found, f.RelPath)
		return nil
	}))
	require.Equal(t, []string{"keep.go"}, found)
}

func TestWalk_ContextCancellation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.go"), "package main\n")

	w, err := New(root, "repo", 1<<20, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = w.Walk(ctx, func(types.File) error { return nil })
	require.Error(t, err)
}
