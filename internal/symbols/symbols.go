// Package symbols extracts named definitions from indexed files,
// reusing the chunker's tree-sitter registry for AST-backed languages
// (the chunker and the symbol extractor walk the same grammar and query,
// just projecting the result differently) and a regex heuristic for the
// data-description formats tree-sitter has no concept of "functions" in.
package symbols

import (
	"context"

	"github.com/coderune/rune/internal/chunker"
	"github.com/coderune/rune/pkg/types"
)

// Extractor derives Symbols from file content.
type Extractor struct {
	registry *chunker.Registry
}

// New builds an Extractor sharing registry with the Chunker so both
// packages agree on which languages have AST support.
func New(registry *chunker.Registry) *Extractor {
	return &Extractor{registry: registry}
}

// Extract returns the symbols defined in file's content. Languages with a
// registered tree-sitter grammar use the AST; JSON, YAML, and TOML use
// the heuristic regex extractor; everything else yields no symbols.
func (e *Extractor) Extract(ctx context.Context, file types.File, content []byte) ([]types.Symbol, error) {
	switch file.Language {
	case types.LangJSON, types.LangYAML, types.LangTOML:
		return extractHeuristic(file, content), nil
	}

	defs, ok, err := chunker.ParseDefinitions(ctx, e.registry, file.Language, content)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	symbols := make([]types.Symbol, 0, len(defs))
	for _, d := range defs {
		if d.Name == "" {
			continue
		}
		symbols = append(symbols, types.Symbol{
			Name:      d.Name,
			Kind:      kindForNodeType(d.NodeType),
			Path:      file.Path,
			RelPath:   file.RelPath,
			Language:  file.Language,
			StartLine: d.StartLine,
			EndLine:   d.EndLine,
		})
	}
	return symbols, nil
}

// kindForNodeType maps a tree-sitter node type, across every registered
// grammar, to rune's closed SymbolKind set. Node type names collide
// across grammars only where their meaning also matches (e.g.
// "class_declaration" means "class" everywhere it appears), so one flat
// table is sufficient rather than one per language.
func kindForNodeType(nodeType string) types.SymbolKind {
	switch nodeType {
	case "function_declaration", "function_definition":
		return types.SymbolFunction
	case "method_declaration", "method_definition", "method", "singleton_method",
		"constructor_declaration":
		return types.SymbolMethod
	case "class_declaration", "class_definition", "class", "class_specifier":
		return types.SymbolClass
	case "struct_specifier", "struct_declaration", "type_spec":
		return types.SymbolStruct
	case "interface_declaration":
		return types.SymbolInterface
	case "enum_declaration", "enum_specifier":
		return types.SymbolEnum
	case "module":
		return types.SymbolClass
	default:
		return types.SymbolFunction
	}
}
