package languages

import (
	"github.com/smacker/go-tree-sitter/php"

	"github.com/coderune/rune/internal/chunker"
	"github.com/coderune/rune/pkg/types"
)

func registerPHP(r *chunker.Registry) {
	r.Register(types.LangPHP, &chunker.LanguageSpec{
		Language: php.GetLanguage(),
		Query: `
			(function_definition name: (name) @name) @chunk
			(method_declaration name: (name) @name) @chunk
			(class_declaration name: (name) @name) @chunk
			(interface_declaration name: (name) @name) @chunk
		`,
	})
}
