package search

import (
	"context"
	"strings"

	"github.com/coderune/rune/pkg/types"
)

// symbol searches the tokenized symbols field, then points each Result
// at the matching definition's span rather than just the owning
// document. An exact name match scores 1.0; a partial match (the query
// token appears inside the symbol name) scores lower so exact
// definitions surface first.
func (s *Searcher) symbol(ctx context.Context, q types.Query) ([]types.Result, error) {
	tokens := tokenize(q.Text)
	if len(tokens) == 0 {
		return nil, nil
	}

	hits, err := s.text.Match(ctx, "symbols", disjunction(tokens), q.Repositories, s.matchBudget(q))
	if err != nil {
		return nil, err
	}

	var results []types.Result
	for _, h := range hits {
		if !s.matchesFilters(h.Path, h.Repository, q) {
			continue
		}
		for _, span := range h.SymbolSpans {
			score := symbolScore(span.Name, q.Text, tokens)
			if score == 0 {
				continue
			}
			snippet := ""
			lines := strings.Split(h.Content, "\n")
			if span.StartLine >= 1 && span.StartLine <= len(lines) {
				snippet = lines[span.StartLine-1]
			}
			results = append(results, types.Result{
				Path:       h.Path,
				RelPath:    s.relPath(h.Path),
				Repository: h.Repository,
				Language:   types.Language(h.Language),
				LineNumber: span.StartLine,
				StartLine:  span.StartLine,
				EndLine:    span.EndLine,
				Score:      score,
				Snippet:    snippet,
				SymbolName: span.Name,
				Mode:       types.ModeSymbol,
				MatchType:  types.MatchSymbol,
			})
		}
	}

	sortResults(results)
	return results, nil
}

// symbolScore ranks how well a symbol name answers the query: 1.0 for
// an exact (case-insensitive) match against the whole query or when
// every token equals the name, 0.9 when some token equals the name,
// 0.7 for a prefix, 0.5 for a substring.
func symbolScore(name, query string, tokens []string) float64 {
	lowerName := strings.ToLower(name)
	if lowerName == strings.ToLower(strings.TrimSpace(query)) {
		return 1.0
	}
	matched := 0
	prefix := false
	substring := false
	for _, tok := range tokens {
		switch {
		case lowerName == tok:
			matched++
		case strings.HasPrefix(lowerName, tok):
			prefix = true
		case strings.Contains(lowerName, tok):
			substring = true
		}
	}
	switch {
	case matched == len(tokens):
		return 1.0
	case matched > 0:
		return 0.9
	case prefix:
		return 0.7
	case substring:
		return 0.5
	}
	return 0
}

// disjunction builds an FTS5 query matching any token: symbol hits are
// re-scored per span afterwards, so recall matters more than the FTS
// rank here.
func disjunction(tokens []string) string {
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " OR ")
}
