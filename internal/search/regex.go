package search

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/coderune/rune/internal/textindex"
	"github.com/coderune/rune/pkg/types"
)

// ErrInvalidPattern is returned when a regex-mode query fails to
// compile; callers surface it as an invalid-argument failure rather
// than an internal error.
var ErrInvalidPattern = errors.New("search: invalid regex pattern")

// regexCache memoizes compiled patterns across requests. Go's regexp is
// RE2-based and guaranteed linear-time, so a hostile pattern can waste
// at most one compile, never a scan.
type regexCache struct {
	mu  sync.Mutex
	lru *lru.Cache[string, *regexp.Regexp]
}

func newRegexCache(size int) *regexCache {
	backing, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		panic(fmt.Sprintf("search: regex cache size %d: %v", size, err))
	}
	return &regexCache{lru: backing}
}

func (c *regexCache) get(pattern string) (*regexp.Regexp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if re, ok := c.lru.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	c.lru.Add(pattern, re)
	return re, nil
}

// regex compiles the pattern (cached) and scans every stored document
// passing the repository and file-pattern filters, emitting one Result
// per matching line.
func (s *Searcher) regex(ctx context.Context, q types.Query) ([]types.Result, error) {
	re, err := s.regexes.get(q.Text)
	if err != nil {
		return nil, err
	}

	var results []types.Result
	err = s.text.Scan(ctx, q.Repositories, func(h textindex.Hit) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !s.matchesFilters(h.Path, h.Repository, q) {
			return nil
		}
		for i, line := range strings.Split(h.Content, "\n") {
			loc := re.FindStringIndex(line)
			if loc == nil {
				continue
			}
			results = append(results, types.Result{
				Path:       h.Path,
				RelPath:    s.relPath(h.Path),
				Repository: h.Repository,
				Language:   types.Language(h.Language),
				LineNumber: i + 1,
				Column:     loc[0] + 1,
				Score:      1.0,
				Snippet:    line,
				Mode:       types.ModeRegex,
				MatchType:  types.MatchExact,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortResults(results)
	return results, nil
}
