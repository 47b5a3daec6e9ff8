package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coderune/rune/internal/config"
	"github.com/coderune/rune/internal/search"
	"github.com/coderune/rune/pkg/types"
)

// SearchReply is the structured result of a search operation.
type SearchReply struct {
	Results      []types.Result
	TotalMatches int
	SearchTimeMs int64
	Degraded     bool
}

// StatsReply is the structured result of a stats / index_status call.
type StatsReply struct {
	IndexedFiles   int64
	TotalSymbols   int64
	IndexSizeBytes int64
	CacheSizeBytes int64
	WatcherRunning bool
	LastIndexAt    time.Time
	Degraded       []string
}

// ReindexReply reports the outcome of a reindex operation.
type ReindexReply struct {
	FilesIndexed     int64
	SymbolsExtracted int64
	TimeTakenMs      int64
}

// requireRunning snapshots the handles an operation needs, failing fast
// when the engine isn't running.
func (e *Engine) requireRunning() (*search.Searcher, *config.Config, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case StateStopped:
		return nil, nil, ErrShutdown
	case StateRunning:
		return e.searcher, e.cfg, nil
	default:
		return nil, nil, fmt.Errorf("engine: not running (state %s)", e.state)
	}
}

// Search executes q. Queries shorter than two characters return empty
// immediately and never touch the cache.
func (e *Engine) Search(ctx context.Context, q types.Query) (*SearchReply, error) {
	searcher, cfg, err := e.requireRunning()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if q.Mode == "" {
		q.Mode = types.ModeHybrid
	}
	if q.Limit <= 0 {
		q.Limit = cfg.Search.DefaultLimit
	}
	if q.Limit > cfg.Search.MaxLimit {
		q.Limit = cfg.Search.MaxLimit
	}

	if len(strings.TrimSpace(q.Text)) < 2 {
		return &SearchReply{SearchTimeMs: time.Since(start).Milliseconds()}, nil
	}

	if cached, ok := e.cache.Get(q); ok {
		e.met.cacheHits.Inc()
		return &SearchReply{
			Results:      cached,
			TotalMatches: len(cached),
			SearchTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}
	e.met.cacheMisses.Inc()

	resp, err := searcher.Search(ctx, q)
	if err != nil {
		e.log.Error(ctx, "search failed", zap.String("mode", string(q.Mode)), zap.Error(err))
		return nil, err
	}

	// Degraded responses are not cached: they would keep answering from
	// the partial result after the backend recovers.
	if !resp.Degraded {
		e.cache.Put(q, resp.Results)
	}

	elapsed := time.Since(start)
	e.met.searchDuration.WithLabelValues(string(q.Mode)).Observe(elapsed.Seconds())
	e.log.Info(ctx, "search completed",
		zap.String("mode", string(q.Mode)),
		zap.Int("results", len(resp.Results)),
		zap.Bool("degraded", resp.Degraded),
		zap.Duration("elapsed", elapsed))

	return &SearchReply{
		Results:      resp.Results,
		TotalMatches: resp.Total,
		SearchTimeMs: elapsed.Milliseconds(),
		Degraded:     resp.Degraded,
	}, nil
}

// Stats reports last-known counts; it works in any state after the
// stores are open.
func (e *Engine) Stats(ctx context.Context) (*StatsReply, error) {
	e.mu.Lock()
	text := e.text
	cache := e.cache
	state := e.state
	e.mu.Unlock()

	if state == StateStopped {
		return nil, ErrShutdown
	}

	reply := &StatsReply{WatcherRunning: e.watcherRunning.Load()}
	if at := e.lastIndexAt.Load(); at > 0 {
		reply.LastIndexAt = time.Unix(at, 0).UTC()
	}
	if e.textDegraded.Load() {
		reply.Degraded = append(reply.Degraded, "textindex")
	}
	if e.vectorDegraded.Load() {
		reply.Degraded = append(reply.Degraded, "vectorstore")
	}

	if text != nil {
		stats, err := text.Stats(ctx)
		if err != nil {
			return nil, err
		}
		reply.IndexedFiles = stats.DocumentCount
		reply.TotalSymbols = stats.TotalSymbols
		reply.IndexSizeBytes = stats.IndexSizeBytes
	}
	if cache != nil {
		reply.CacheSizeBytes = cache.SizeBytes()
	}
	return reply, nil
}

// Reindex purges the FileMeta rows for the named repositories (all of
// them when the list is empty) and re-walks their workspaces. Files
// whose content is unchanged are still fully re-indexed, since their
// metadata was dropped.
func (e *Engine) Reindex(ctx context.Context, repositories []string) (*ReindexReply, error) {
	_, _, err := e.requireRunning()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	targets := make(map[string]bool, len(repositories))
	for _, r := range repositories {
		targets[r] = true
	}

	var reply ReindexReply
	for _, wk := range e.walkers {
		repo := wk.Repository()
		if len(targets) > 0 && !targets[repo] {
			continue
		}

		previous, err := e.meta.ListByRepository(ctx, repo)
		if err != nil {
			return nil, err
		}
		if err := e.meta.PurgeRepository(ctx, repo); err != nil {
			return nil, err
		}

		files, syms := e.walkWorkspace(ctx, wk)
		reply.FilesIndexed += files
		reply.SymbolsExtracted += syms

		// Paths that existed before the purge but were not rediscovered
		// are gone from disk; drop their stale index entries too.
		for _, f := range previous {
			if _, err := e.meta.Get(ctx, f.Path); err == nil {
				continue
			}
			e.removePath(ctx, f.Path, repo)
		}

		e.bus.Publish(eventFor(repo))
	}

	reply.TimeTakenMs = time.Since(start).Milliseconds()
	e.log.Info(ctx, "reindex completed",
		zap.Strings("repositories", repositories),
		zap.Int64("files", reply.FilesIndexed),
		zap.Int64("symbols", reply.SymbolsExtracted))
	return &reply, nil
}

// ConfigPatch is the subset of configuration the configure operation
// may change at runtime. Nil fields are left untouched.
type ConfigPatch struct {
	FuzzyEnabled     *bool
	FuzzyThreshold   *float64
	FuzzyMaxDistance *int
	DefaultLimit     *int
	MaxLimit         *int
	ContextLines     *int
	RRFConstant      *int
}

// Configure applies patch and returns the effective configuration. The
// searcher is rebuilt so the new knobs take effect on the next query.
func (e *Engine) Configure(ctx context.Context, patch ConfigPatch) (config.Config, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateStopped {
		return config.Config{}, ErrShutdown
	}
	if e.cfg == nil {
		return config.Config{}, fmt.Errorf("engine: not initialized")
	}

	if patch.FuzzyEnabled != nil {
		e.cfg.Search.FuzzyEnabled = patch.FuzzyEnabled
	}
	if patch.FuzzyThreshold != nil {
		e.cfg.Search.FuzzyThreshold = *patch.FuzzyThreshold
	}
	if patch.FuzzyMaxDistance != nil {
		e.cfg.Search.FuzzyMaxDistance = *patch.FuzzyMaxDistance
	}
	if patch.DefaultLimit != nil {
		e.cfg.Search.DefaultLimit = *patch.DefaultLimit
	}
	if patch.MaxLimit != nil {
		e.cfg.Search.MaxLimit = *patch.MaxLimit
	}
	if patch.ContextLines != nil {
		e.cfg.Search.ContextLines = *patch.ContextLines
	}
	if patch.RRFConstant != nil {
		e.cfg.Search.RRFConstant = *patch.RRFConstant
	}

	if e.state == StateRunning && e.text != nil {
		workspaces := make([]search.Workspace, len(e.walkers))
		for i, wk := range e.walkers {
			workspaces[i] = search.Workspace{Root: wk.Root(), Repository: wk.Repository()}
		}
		e.searcher = search.New(e.searchConfig(e.cfg), workspaces, e.text, e.vectors, e.embedder)
	}

	e.log.Info(ctx, "configuration updated")
	return *e.cfg, nil
}
