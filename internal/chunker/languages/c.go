package languages

import (
	"github.com/smacker/go-tree-sitter/c"

	"github.com/coderune/rune/internal/chunker"
	"github.com/coderune/rune/pkg/types"
)

func registerC(r *chunker.Registry) {
	r.Register(types.LangC, &chunker.LanguageSpec{
		Language: c.GetLanguage(),
		Query: `
			(function_definition declarator: (function_declarator declarator: (identifier) @name)) @chunk
			(struct_specifier name: (type_identifier) @name) @chunk
			(enum_specifier name: (type_identifier) @name) @chunk
		`,
	})
}
