package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coderune/rune/pkg/types"
)

func resultAt(path string, line int, score float64) types.Result {
	return types.Result{Path: path, LineNumber: line, Score: score}
}

// Two files matching at ranks (lit:1, sym:3, sem:2) for A and
// (lit:4, sym:1, sem:7) for B: fusion must place A above B because
// 1/61+1/63+1/62 > 1/64+1/61+1/67.
func TestFuse_RankOrdering(t *testing.T) {
	a := resultAt("/ws/a.go", 10, 0.9)
	b := resultAt("/ws/b.go", 20, 0.9)
	filler := func(path string, line int) types.Result { return resultAt(path, line, 0.1) }

	literal := []types.Result{a, filler("/ws/c.go", 1), filler("/ws/d.go", 1), b}
	symbol := []types.Result{b, filler("/ws/c.go", 1), a}
	semantic := []types.Result{filler("/ws/c.go", 1), a, filler("/ws/d.go", 1), filler("/ws/e.go", 1), filler("/ws/f.go", 1), filler("/ws/g.go", 1), b}

	fused := fuse([][]types.Result{literal, symbol, semantic}, 60)
	require.NotEmpty(t, fused)

	posA, posB := -1, -1
	for i, r := range fused {
		switch r.Path {
		case "/ws/a.go":
			posA = i
		case "/ws/b.go":
			posB = i
		}
	}
	require.GreaterOrEqual(t, posA, 0)
	require.GreaterOrEqual(t, posB, 0)
	require.Less(t, posA, posB, "A must outrank B")

	expectedA := 1.0/61 + 1.0/63 + 1.0/62
	expectedB := 1.0/64 + 1.0/61 + 1.0/67
	require.InDelta(t, expectedA, fused[posA].Score, 1e-9)
	require.InDelta(t, expectedB, fused[posB].Score, 1e-9)
}

func TestFuse_DeduplicatesByPathAndLine(t *testing.T) {
	literal := []types.Result{resultAt("/ws/a.go", 10, 0.5)}
	symbol := []types.Result{resultAt("/ws/a.go", 10, 1.0)}

	fused := fuse([][]types.Result{literal, symbol, nil}, 60)
	require.Len(t, fused, 1)
	require.Equal(t, types.MatchHybrid, fused[0].MatchType)
	require.Equal(t, types.ModeHybrid, fused[0].Mode)
	require.InDelta(t, 2.0/61, fused[0].Score, 1e-9)
}

// A higher rank within a mode must never score lower than a lower rank
// with the same other-mode contributions.
func TestFuse_Monotonic(t *testing.T) {
	literal := []types.Result{
		resultAt("/ws/a.go", 1, 0.9),
		resultAt("/ws/b.go", 1, 0.8),
		resultAt("/ws/c.go", 1, 0.7),
	}
	fused := fuse([][]types.Result{literal, nil, nil}, 60)
	require.Len(t, fused, 3)
	for i := 1; i < len(fused); i++ {
		require.GreaterOrEqual(t, fused[i-1].Score, fused[i].Score)
	}
	require.Equal(t, "/ws/a.go", fused[0].Path)
}

func TestFuse_TiesBreakByPathThenLine(t *testing.T) {
	// Same single-mode rank contribution twice: identical fused scores.
	literal := []types.Result{resultAt("/ws/b.go", 5, 0.5)}
	symbol := []types.Result{resultAt("/ws/a.go", 9, 0.5)}

	fused := fuse([][]types.Result{literal, symbol, nil}, 60)
	require.Len(t, fused, 2)
	require.Equal(t, "/ws/a.go", fused[0].Path)
	require.Equal(t, "/ws/b.go", fused[1].Path)
}
