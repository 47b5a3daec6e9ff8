// Package search implements the five search executors (literal, regex,
// symbol, semantic, hybrid) dispatched through a closed tagged table:
// the mode set is fixed and exhaustive, so an open interface would only
// add indirection.
package search

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/coderune/rune/internal/embeddings"
	"github.com/coderune/rune/internal/textindex"
	"github.com/coderune/rune/internal/vectorstore"
	"github.com/coderune/rune/pkg/types"
)

// Config tunes the executors' default knobs; all have documented
// defaults so a zero Config is usable.
type Config struct {
	FuzzyEnabled       bool
	FuzzyUseJaro       bool          // score variants with Jaro-Winkler instead of normalized edit distance
	FuzzyMaxDistance   int           // Levenshtein distance ceiling for literal fuzzy expansion, default 2
	FuzzySimilarity    float64       // minimum token similarity to keep a fuzzy variant, default 0.75
	SemanticOversample int           // k multiplier for vector store search, default 2
	RRFConstant        int           // hybrid fusion constant, default 60
	ContextLines       int           // lines of context before/after a match, default 2
	DefaultLimit       int           // default 50
	Timeout            time.Duration // shared deadline for hybrid sub-queries, default 250ms
	RegexCacheSize     int           // compiled pattern cache entries, default 128
}

func (c Config) withDefaults() Config {
	if c.FuzzyMaxDistance <= 0 {
		c.FuzzyMaxDistance = 2
	}
	if c.FuzzySimilarity <= 0 {
		c.FuzzySimilarity = 0.75
	}
	if c.SemanticOversample < 2 {
		c.SemanticOversample = 2
	}
	if c.RRFConstant <= 0 {
		c.RRFConstant = 60
	}
	if c.ContextLines <= 0 {
		c.ContextLines = 2
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 50
	}
	if c.Timeout <= 0 {
		c.Timeout = 250 * time.Millisecond
	}
	if c.RegexCacheSize <= 0 {
		c.RegexCacheSize = 128
	}
	return c
}

// Workspace names one indexed root and the repository label its files
// carry; each workspace has its own vector collection.
type Workspace struct {
	Root       string
	Repository string
}

// Collection returns the vector collection name for this workspace.
func (w Workspace) Collection() string {
	return vectorstore.CollectionNameFor(w.Root)
}

// Response is what a search returns: the results plus whether any
// backend the requested mode depends on was unavailable.
type Response struct {
	Results  []types.Result
	Total    int // matches before limit/offset pagination
	Degraded bool
}

// Searcher owns the handles every executor needs: the text index for
// literal/regex/symbol, the vector store + embedder for semantic, and
// the workspace list for deriving RelPath and collection names.
type Searcher struct {
	cfg        Config
	workspaces []Workspace

	text     *textindex.Index
	embedder embeddings.Provider
	vectors  vectorstore.Store
	regexes  *regexCache
}

// New builds a Searcher. vectors and embedder may be nil; semantic and
// hybrid then degrade to their remaining modes.
func New(cfg Config, workspaces []Workspace, text *textindex.Index, vectors vectorstore.Store, embedder embeddings.Provider) *Searcher {
	cfg = cfg.withDefaults()
	return &Searcher{
		cfg:        cfg,
		workspaces: workspaces,
		text:       text,
		embedder:   embedder,
		vectors:    vectors,
		regexes:    newRegexCache(cfg.RegexCacheSize),
	}
}

// Search dispatches q to the executor named by q.Mode. The returned
// result list is deterministic given identical inputs and index state,
// sorted and truncated to q.Limit/q.Offset.
func (s *Searcher) Search(ctx context.Context, q types.Query) (Response, error) {
	if q.Limit <= 0 {
		q.Limit = s.cfg.DefaultLimit
	}

	var (
		results  []types.Result
		degraded bool
		err      error
	)
	switch q.Mode {
	case types.ModeLiteral:
		results, err = s.literal(ctx, q)
	case types.ModeRegex:
		results, err = s.regex(ctx, q)
	case types.ModeSymbol:
		results, err = s.symbol(ctx, q)
	case types.ModeSemantic:
		results, degraded, err = s.semantic(ctx, q)
	case types.ModeHybrid:
		results, degraded, err = s.hybrid(ctx, q)
	default:
		return Response{}, fmt.Errorf("search: unknown mode %q", q.Mode)
	}
	if err != nil {
		return Response{}, err
	}

	total := len(results)
	results = paginate(results, q.Limit, q.Offset)
	for i := range results {
		s.enrichContext(&results[i])
	}

	return Response{Results: results, Total: total, Degraded: degraded}, nil
}

func paginate(results []types.Result, limit, offset int) []types.Result {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(results) {
		return nil
	}
	results = results[offset:]
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results
}

// sortResults orders by score descending, breaking ties by path then
// line number so identical inputs always produce identical output.
func sortResults(results []types.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Path != results[j].Path {
			return results[i].Path < results[j].Path
		}
		return results[i].LineNumber < results[j].LineNumber
	})
}

// matchesFilters applies the file_patterns/repositories filters, which
// apply uniformly across every mode.
func (s *Searcher) matchesFilters(path, repository string, q types.Query) bool {
	if len(q.Repositories) > 0 {
		found := false
		for _, r := range q.Repositories {
			if r == repository {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(q.FilePatterns) > 0 {
		rel := s.relPath(path)
		matched := false
		for _, p := range q.FilePatterns {
			if ok, _ := doublestar.Match(p, rel); ok {
				matched = true
				break
			}
			// "*.py" is commonly meant to match anywhere in the tree,
			// not just at the root.
			if ok, _ := doublestar.Match(p, filepath.Base(rel)); ok {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// relPath resolves path against the workspace that contains it.
func (s *Searcher) relPath(path string) string {
	for _, w := range s.workspaces {
		if rel, err := filepath.Rel(w.Root, path); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return path
}

// collectionsFor returns the workspaces whose vector collections the
// semantic executor should consult, narrowed by the repositories
// allowlist when present.
func (s *Searcher) collectionsFor(q types.Query) []Workspace {
	if len(q.Repositories) == 0 {
		return s.workspaces
	}
	var out []Workspace
	for _, w := range s.workspaces {
		for _, r := range q.Repositories {
			if w.Repository == r {
				out = append(out, w)
				break
			}
		}
	}
	return out
}

// deadlineOrDefault gives every sub-query a bounded deadline even when
// the caller's context carries none, since hybrid's concurrent fan-out
// must still converge.
func deadlineOrDefault(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
