package search

import (
	"context"
)

// expandTokens maps each query token to itself plus every term in the
// index's dictionary within the configured Levenshtein distance and
// similarity threshold. Expanding against the dictionary instead of
// generating variants keeps the candidate set proportional to the
// vocabulary that can actually match. The returned score is the lowest
// similarity among the kept variants, so fuzzy results never outrank an
// exact hit. ok is false when no token gained any variant.
func (s *Searcher) expandTokens(ctx context.Context, tokens []string) ([][]string, float64, bool, error) {
	terms, err := s.text.Terms(ctx)
	if err != nil {
		return nil, 0, false, err
	}

	expanded := make([][]string, len(tokens))
	score := 1.0
	gained := false
	for i, tok := range tokens {
		variants := []string{tok}
		for _, term := range terms {
			if term == tok {
				continue
			}
			if abs(len(term)-len(tok)) > s.cfg.FuzzyMaxDistance {
				continue
			}
			dist := levenshtein(tok, term)
			if dist > s.cfg.FuzzyMaxDistance {
				continue
			}
			sim := similarity(tok, term, dist)
			if s.cfg.FuzzyUseJaro {
				sim = jaroWinkler(tok, term)
			}
			if sim < s.cfg.FuzzySimilarity {
				continue
			}
			variants = append(variants, term)
			gained = true
			if sim < score {
				score = sim
			}
		}
		expanded[i] = variants
	}
	return expanded, score, gained, nil
}

// similarity normalizes an edit distance into [0,1]: 1 means identical,
// 0 means every character differs.
func similarity(a, b string, dist int) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(dist)/float64(longest)
}

// jaroWinkler scores string similarity with extra weight on a shared
// prefix, which suits identifiers: a typo in "loginUser" almost always
// keeps the first characters intact. Off by default; enabled via
// fuzzy_use_jaro.
func jaroWinkler(a, b string) float64 {
	jaro := jaroSimilarity(a, b)
	if jaro == 0 {
		return 0
	}

	prefix := 0
	for prefix < len(a) && prefix < len(b) && prefix < 4 && a[prefix] == b[prefix] {
		prefix++
	}
	return jaro + float64(prefix)*0.1*(1-jaro)
}

func jaroSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	window := len(a)
	if len(b) > window {
		window = len(b)
	}
	window = window/2 - 1
	if window < 0 {
		window = 0
	}

	aMatched := make([]bool, len(a))
	bMatched := make([]bool, len(b))
	matches := 0
	for i := 0; i < len(a); i++ {
		lo := i - window
		if lo < 0 {
			lo = 0
		}
		hi := i + window + 1
		if hi > len(b) {
			hi = len(b)
		}
		for j := lo; j < hi; j++ {
			if bMatched[j] || a[i] != b[j] {
				continue
			}
			aMatched[i] = true
			bMatched[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	j := 0
	for i := 0; i < len(a); i++ {
		if !aMatched[i] {
			continue
		}
		for !bMatched[j] {
			j++
		}
		if a[i] != b[j] {
			transpositions++
		}
		j++
	}

	m := float64(matches)
	return (m/float64(len(a)) + m/float64(len(b)) + (m-float64(transpositions)/2)/m) / 3
}

// levenshtein computes the edit distance between a and b with the
// classic two-row dynamic program.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
