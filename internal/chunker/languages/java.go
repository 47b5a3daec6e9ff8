package languages

import (
	"github.com/smacker/go-tree-sitter/java"

	"github.com/coderune/rune/internal/chunker"
	"github.com/coderune/rune/pkg/types"
)

func registerJava(r *chunker.Registry) {
	r.Register(types.LangJava, &chunker.LanguageSpec{
		Language: java.GetLanguage(),
		Query: `
			(method_declaration name: (identifier) @name) @chunk
			(constructor_declaration name: (identifier) @name) @chunk
			(class_declaration name: (identifier) @name) @chunk
			(interface_declaration name: (identifier) @name) @chunk
			(enum_declaration name: (identifier) @name) @chunk
		`,
	})
}
