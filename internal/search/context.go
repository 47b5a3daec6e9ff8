package search

import (
	"context"
	"strings"

	"github.com/coderune/rune/pkg/types"
)

// enrichContext fills r.ContextBefore/ContextAfter with up to
// cfg.ContextLines lines surrounding r.LineNumber, read from the text
// index's stored content so enrichment never touches disk.
func (s *Searcher) enrichContext(r *types.Result) {
	content, err := s.text.GetContent(context.Background(), r.Path)
	if err != nil || content == "" {
		return
	}
	lines := strings.Split(content, "\n")
	if r.LineNumber < 1 || r.LineNumber > len(lines) {
		return
	}

	n := s.cfg.ContextLines
	idx := r.LineNumber - 1 // 0-based

	start := idx - n
	if start < 0 {
		start = 0
	}
	if start < idx {
		r.ContextBefore = append([]string(nil), lines[start:idx]...)
	}

	end := idx + 1 + n
	if end > len(lines) {
		end = len(lines)
	}
	if end > idx+1 {
		r.ContextAfter = append([]string(nil), lines[idx+1:end]...)
	}

	if r.Snippet == "" {
		r.Snippet = lines[idx]
	}
}
