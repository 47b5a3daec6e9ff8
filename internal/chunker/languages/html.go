package languages

import (
	"github.com/smacker/go-tree-sitter/html"

	"github.com/coderune/rune/internal/chunker"
	"github.com/coderune/rune/pkg/types"
)

// HTML has no function/class definitions; the chunk boundary that
// actually helps a reader is the top-level element, tagged by name.
func registerHTML(r *chunker.Registry) {
	r.Register(types.LangHTML, &chunker.LanguageSpec{
		Language: html.GetLanguage(),
		Query: `
			(element (start_tag (tag_name) @name)) @chunk
		`,
	})
}
