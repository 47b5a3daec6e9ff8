package hashing

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashFile_MatchesHashBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	content := []byte("package main\n\nfunc main() {}\n")
	require.NoError(t, os.WriteFile(path, content, 0644))

	fromFile, err := HashFile(path)
	require.NoError(t, err)

	fromBytes := HashBytes(content)
	require.Equal(t, fromBytes, fromFile)
}

func TestHashReader_EmptyInput(t *testing.T) {
	h, err := HashReader(bytes.NewReader(nil))
	require.NoError(t, err)
	require.Equal(t, HashBytes(nil), h)
}

func TestHashBytes_DifferentContentDifferentHash(t *testing.T) {
	a := HashBytes([]byte("alpha"))
	b := HashBytes([]byte("beta"))
	require.NotEqual(t, a, b)
}

func TestHashFile_MissingFile(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}
