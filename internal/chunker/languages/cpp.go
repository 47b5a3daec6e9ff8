package languages

import (
	"github.com/smacker/go-tree-sitter/cpp"

	"github.com/coderune/rune/internal/chunker"
	"github.com/coderune/rune/pkg/types"
)

func registerCPP(r *chunker.Registry) {
	r.Register(types.LangCPP, &chunker.LanguageSpec{
		Language: cpp.GetLanguage(),
		Query: `
			(function_definition declarator: (function_declarator declarator: (identifier) @name)) @chunk
			(function_definition declarator: (function_declarator declarator: (field_identifier) @name)) @chunk
			(class_specifier name: (type_identifier) @name) @chunk
			(struct_specifier name: (type_identifier) @name) @chunk
		`,
	})
}
