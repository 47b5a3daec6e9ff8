package languages

import (
	"github.com/smacker/go-tree-sitter/css"

	"github.com/coderune/rune/internal/chunker"
	"github.com/coderune/rune/pkg/types"
)

func registerCSS(r *chunker.Registry) {
	r.Register(types.LangCSS, &chunker.LanguageSpec{
		Language: css.GetLanguage(),
		Query: `
			(rule_set (selectors) @name) @chunk
			(media_statement) @chunk
		`,
	})
}
