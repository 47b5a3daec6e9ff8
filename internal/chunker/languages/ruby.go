package languages

import (
	"github.com/smacker/go-tree-sitter/ruby"

	"github.com/coderune/rune/internal/chunker"
	"github.com/coderune/rune/pkg/types"
)

func registerRuby(r *chunker.Registry) {
	r.Register(types.LangRuby, &chunker.LanguageSpec{
		Language: ruby.GetLanguage(),
		Query: `
			(method name: (identifier) @name) @chunk
			(singleton_method name: (identifier) @name) @chunk
			(class name: (constant) @name) @chunk
			(module name: (constant) @name) @chunk
		`,
	})
}
