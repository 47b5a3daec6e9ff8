package search

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/coderune/rune/internal/vectorstore"
	"github.com/coderune/rune/pkg/types"
)

// semantic embeds the query and runs a similarity search against every
// relevant workspace's collection, oversampling so that deduplication
// by (path, start_line) still leaves limit results. A missing or
// unreachable vector store degrades to an empty result set with the
// degraded flag raised instead of failing the request.
func (s *Searcher) semantic(ctx context.Context, q types.Query) ([]types.Result, bool, error) {
	if s.vectors == nil || s.embedder == nil {
		return nil, true, nil
	}

	vector, err := s.embedder.EmbedQuery(ctx, q.Text)
	if err != nil {
		return nil, true, nil
	}

	k := (q.Limit + q.Offset) * s.cfg.SemanticOversample
	if k < s.cfg.SemanticOversample {
		k = s.cfg.SemanticOversample
	}

	degraded := false
	var points []vectorstore.ScoredPoint
	for _, w := range s.collectionsFor(q) {
		filter := map[string]string{"repository": w.Repository}
		found, err := s.vectors.Search(ctx, w.Collection(), vector, k, filter)
		if err != nil {
			if errors.Is(err, vectorstore.ErrUnavailable) || errors.Is(err, vectorstore.ErrCollectionNotFound) {
				degraded = true
				continue
			}
			return nil, false, err
		}
		points = append(points, found...)
	}

	results := s.semanticResults(points, q)
	return results, degraded, nil
}

// semanticResults converts scored points into Results, applies the
// uniform filters, deduplicates by (path, start_line) keeping the
// highest score, and sorts deterministically.
func (s *Searcher) semanticResults(points []vectorstore.ScoredPoint, q types.Query) []types.Result {
	type dedupeKey struct {
		path      string
		startLine int
	}
	best := make(map[dedupeKey]types.Result)
	for _, p := range points {
		if !s.matchesFilters(p.Path, p.Repository, q) {
			continue
		}
		r := types.Result{
			Path:       p.Path,
			RelPath:    s.relPath(p.Path),
			Repository: p.Repository,
			Language:   types.Language(p.Language),
			LineNumber: p.StartLine,
			StartLine:  p.StartLine,
			EndLine:    p.EndLine,
			Score:      normalizeCosine(p.Score),
			Snippet:    firstLine(p.Content),
			SymbolName: p.SymbolName,
			Mode:       types.ModeSemantic,
			MatchType:  types.MatchSemantic,
		}
		key := dedupeKey{p.Path, p.StartLine}
		if prev, ok := best[key]; !ok || r.Score > prev.Score {
			best[key] = r
		}
	}

	results := make([]types.Result, 0, len(best))
	for _, r := range best {
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Path != results[j].Path {
			return results[i].Path < results[j].Path
		}
		return results[i].StartLine < results[j].StartLine
	})
	return results
}

// normalizeCosine maps a cosine similarity from [-1,1] into [0,1].
func normalizeCosine(score float32) float64 {
	normalized := (float64(score) + 1) / 2
	if normalized < 0 {
		return 0
	}
	if normalized > 1 {
		return 1
	}
	return normalized
}

func firstLine(content string) string {
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		return content[:i]
	}
	return content
}
