package search

import (
	"context"
	"sort"

	"github.com/coderune/rune/pkg/types"
)

// hybrid runs the literal, symbol, and semantic executors concurrently
// under a shared deadline and fuses their rankings with Reciprocal Rank
// Fusion. A mode that fails or times out contributes nothing; the
// remaining modes still produce a result.
func (s *Searcher) hybrid(ctx context.Context, q types.Query) ([]types.Result, bool, error) {
	ctx, cancel := deadlineOrDefault(ctx, s.cfg.Timeout)
	defer cancel()

	// Each sub-query fetches extra depth so fusion has real rankings to
	// work with before the fused list is truncated.
	sub := q
	sub.Offset = 0
	sub.Limit = q.Limit + q.Offset
	if sub.Limit < 10 {
		sub.Limit = 10
	}

	type modeOutput struct {
		mode     types.Mode
		results  []types.Result
		degraded bool
	}

	ch := make(chan modeOutput, 3)

	run := func(mode types.Mode, fn func() ([]types.Result, bool, error)) {
		results, degraded, err := fn()
		if err != nil {
			// A failed sub-query is treated the same as an empty one.
			ch <- modeOutput{mode: mode, degraded: mode == types.ModeSemantic}
			return
		}
		ch <- modeOutput{mode: mode, results: results, degraded: degraded}
	}

	go run(types.ModeLiteral, func() ([]types.Result, bool, error) {
		lq := sub
		lq.Mode = types.ModeLiteral
		r, err := s.literal(ctx, lq)
		return r, false, err
	})
	go run(types.ModeSymbol, func() ([]types.Result, bool, error) {
		sq := sub
		sq.Mode = types.ModeSymbol
		r, err := s.symbol(ctx, sq)
		return r, false, err
	})
	go run(types.ModeSemantic, func() ([]types.Result, bool, error) {
		vq := sub
		vq.Mode = types.ModeSemantic
		return s.semantic(ctx, vq)
	})

	byMode := make(map[types.Mode][]types.Result, 3)
	degraded := false
	for i := 0; i < 3; i++ {
		out := <-ch
		byMode[out.mode] = truncate(out.results, sub.Limit)
		if out.degraded {
			degraded = true
		}
	}

	k := q.RRFConstant
	if k <= 0 {
		k = s.cfg.RRFConstant
	}
	fused := fuse([][]types.Result{
		byMode[types.ModeLiteral],
		byMode[types.ModeSymbol],
		byMode[types.ModeSemantic],
	}, k)

	return fused, degraded, nil
}

func truncate(results []types.Result, limit int) []types.Result {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}

// fuse combines per-mode rankings with Reciprocal Rank Fusion: each
// occurrence of a result at 1-based rank p in mode m contributes
// 1/(k+p) to its fused score. Results are deduplicated by
// (path, line_number), keeping the metadata of the occurrence with the
// highest individual score, and ordered by fused score descending with
// ties broken by path then line number.
func fuse(rankings [][]types.Result, k int) []types.Result {
	scores := make(map[types.Key]float64)
	best := make(map[types.Key]types.Result)

	for _, ranking := range rankings {
		for rank, r := range ranking {
			key := r.DedupeKey()
			scores[key] += 1.0 / float64(k+rank+1)
			if prev, ok := best[key]; !ok || r.Score > prev.Score {
				best[key] = r
			}
		}
	}

	fused := make([]types.Result, 0, len(scores))
	for key, score := range scores {
		r := best[key]
		r.Score = score
		r.Mode = types.ModeHybrid
		r.MatchType = types.MatchHybrid
		fused = append(fused, r)
	}

	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		if fused[i].Path != fused[j].Path {
			return fused[i].Path < fused[j].Path
		}
		return fused[i].LineNumber < fused[j].LineNumber
	})
	return fused
}
