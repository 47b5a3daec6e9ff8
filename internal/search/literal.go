package search

import (
	"context"
	"strings"
	"unicode"

	"github.com/coderune/rune/internal/textindex"
	"github.com/coderune/rune/pkg/types"
)

// literal requires every query token to appear in a document's content
// (conjunction, not phrase), then emits one Result per line that
// contains at least one token. When the exact query finds nothing and
// fuzzy fallback is enabled, each token is expanded with Levenshtein
// variants drawn from the index's term dictionary and the query runs
// once more.
func (s *Searcher) literal(ctx context.Context, q types.Query) ([]types.Result, error) {
	tokens := tokenize(q.Text)
	if len(tokens) == 0 {
		return nil, nil
	}

	hits, err := s.text.Match(ctx, "content", conjunction(tokens), q.Repositories, s.matchBudget(q))
	if err != nil {
		return nil, err
	}

	results := s.literalResults(hits, tokens, types.MatchExact, 1.0, q)
	if len(results) > 0 || !s.cfg.FuzzyEnabled {
		sortResults(results)
		return results, nil
	}

	expanded, score, ok, err := s.expandTokens(ctx, tokens)
	if err != nil || !ok {
		return nil, err
	}
	hits, err = s.text.Match(ctx, "content", expandedQuery(expanded), q.Repositories, s.matchBudget(q))
	if err != nil {
		return nil, err
	}

	var all []string
	for _, variants := range expanded {
		all = append(all, variants...)
	}
	results = s.literalResults(hits, all, types.MatchFuzzy, score, q)
	sortResults(results)
	return results, nil
}

// literalResults scans each hit's stored content and emits one Result
// per line containing at least one of tokens. The per-line score is
// baseScore weighted by the fraction of tokens present on that line.
func (s *Searcher) literalResults(hits []textindex.Hit, tokens []string, matchType types.MatchType, baseScore float64, q types.Query) []types.Result {
	var results []types.Result
	for _, h := range hits {
		if !s.matchesFilters(h.Path, h.Repository, q) {
			continue
		}
		lines := strings.Split(h.Content, "\n")
		for i, line := range lines {
			lower := strings.ToLower(line)
			found := 0
			column := 0
			for _, tok := range tokens {
				idx := strings.Index(lower, tok)
				if idx < 0 {
					continue
				}
				found++
				if column == 0 || idx+1 < column {
					column = idx + 1
				}
			}
			if found == 0 {
				continue
			}
			results = append(results, types.Result{
				Path:       h.Path,
				RelPath:    s.relPath(h.Path),
				Repository: h.Repository,
				Language:   types.Language(h.Language),
				LineNumber: i + 1,
				Column:     column,
				Score:      baseScore * float64(found) / float64(len(tokens)),
				Snippet:    line,
				Mode:       types.ModeLiteral,
				MatchType:  matchType,
			})
		}
	}
	return results
}

// matchBudget bounds how many documents an FTS query fetches: enough to
// page past offset with headroom for post-filtering.
func (s *Searcher) matchBudget(q types.Query) int {
	budget := (q.Limit + q.Offset) * 4
	if budget < 200 {
		budget = 200
	}
	return budget
}

// tokenize lowercases and splits on anything that is not a letter,
// digit, or underscore, mirroring how identifiers and prose both break
// apart in code search.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	out := fields[:0]
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// conjunction builds an FTS5 query requiring every token.
func conjunction(tokens []string) string {
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " AND ")
}

// expandedQuery builds an FTS5 query where each original token is
// replaced by the OR of its fuzzy variants, keeping the conjunction
// across token positions.
func expandedQuery(expanded [][]string) string {
	groups := make([]string, len(expanded))
	for i, variants := range expanded {
		quoted := make([]string, len(variants))
		for j, v := range variants {
			quoted[j] = `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
		}
		groups[i] = "(" + strings.Join(quoted, " OR ") + ")"
	}
	return strings.Join(groups, " AND ")
}
