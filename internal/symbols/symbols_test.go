package symbols

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coderune/rune/internal/chunker"
	"github.com/coderune/rune/internal/chunker/languages"
	"github.com/coderune/rune/pkg/types"
)

func TestExtractor_AST_Go(t *testing.T) {
	r := chunker.NewRegistry()
	languages.RegisterAll(r)
	e := New(r)

	src := []byte(`package main

func Hello() string {
	return "hi"
}

type Config struct {
	Name string
}
`)
	file := types.File{Path: "/repo/main.go", RelPath: "main.go", Repository: "repo", Language: types.LangGo}
	syms, err := e.Extract(context.Background(), file, src)
	require.NoError(t, err)
	require.Len(t, syms, 2)
	require.Equal(t, "Hello", syms[0].Name)
	require.Equal(t, types.SymbolFunction, syms[0].Kind)
	require.Equal(t, "Config", syms[1].Name)
}

func TestExtractor_HeuristicYAML(t *testing.T) {
	e := New(chunker.NewRegistry())
	src := []byte("name: rune\nversion: 1.0\n")
	file := types.File{Path: "/repo/config.yaml", RelPath: "config.yaml", Repository: "repo", Language: types.LangYAML}
	syms, err := e.Extract(context.Background(), file, src)
	require.NoError(t, err)
	require.Len(t, syms, 2)
	require.Equal(t, "name", syms[0].Name)
	require.Equal(t, types.SymbolVariable, syms[0].Kind)
}

func TestExtractor_HeuristicTOML(t *testing.T) {
	e := New(chunker.NewRegistry())
	src := []byte("[package]\nname = \"rune\"\n")
	file := types.File{Path: "/repo/Cargo.toml", RelPath: "Cargo.toml", Repository: "repo", Language: types.LangTOML}
	syms, err := e.Extract(context.Background(), file, src)
	require.NoError(t, err)
	require.Len(t, syms, 2)
	require.Equal(t, "package", syms[0].Name)
	require.Equal(t, "name", syms[1].Name)
}

func TestExtractor_UnregisteredLanguageYieldsNothing(t *testing.T) {
	e := New(chunker.NewRegistry())
	file := types.File{Path: "/repo/main.rs", RelPath: "main.rs", Repository: "repo", Language: types.LangRust}
	syms, err := e.Extract(context.Background(), file, []byte("fn main() {}"))
	require.NoError(t, err)
	require.Empty(t, syms)
}
