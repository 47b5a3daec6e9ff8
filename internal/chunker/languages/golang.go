// Package languages registers the tree-sitter grammars and chunk
// queries supported out of the box, one file per language the way
// the grammar's node kinds require.
package languages

import (
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/coderune/rune/internal/chunker"
	"github.com/coderune/rune/pkg/types"
)

func registerGo(r *chunker.Registry) {
	r.Register(types.LangGo, &chunker.LanguageSpec{
		Language: golang.GetLanguage(),
		Query: `
			(function_declaration name: (identifier) @name) @chunk
			(method_declaration name: (field_identifier) @name) @chunk
			(type_declaration (type_spec name: (type_identifier) @name)) @chunk
		`,
	})
}
