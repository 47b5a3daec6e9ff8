package languages

import (
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/coderune/rune/internal/chunker"
	"github.com/coderune/rune/pkg/types"
)

func registerJavaScript(r *chunker.Registry) {
	r.Register(types.LangJavaScript, &chunker.LanguageSpec{
		Language: javascript.GetLanguage(),
		Query: `
			(function_declaration name: (identifier) @name) @chunk
			(class_declaration name: (identifier) @name) @chunk
			(method_definition name: (property_identifier) @name) @chunk
			(export_statement (function_declaration name: (identifier) @name)) @chunk
			(export_statement (class_declaration name: (identifier) @name)) @chunk
			(lexical_declaration (variable_declarator name: (identifier) @name value: (arrow_function))) @chunk
		`,
	})
}
