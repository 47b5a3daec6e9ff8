package languages

import (
	"github.com/smacker/go-tree-sitter/csharp"

	"github.com/coderune/rune/internal/chunker"
	"github.com/coderune/rune/pkg/types"
)

func registerCSharp(r *chunker.Registry) {
	r.Register(types.LangCSharp, &chunker.LanguageSpec{
		Language: csharp.GetLanguage(),
		Query: `
			(method_declaration name: (identifier) @name) @chunk
			(constructor_declaration name: (identifier) @name) @chunk
			(class_declaration name: (identifier) @name) @chunk
			(interface_declaration name: (identifier) @name) @chunk
			(struct_declaration name: (identifier) @name) @chunk
		`,
	})
}
