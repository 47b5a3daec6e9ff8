// Package engine wires every subsystem together and owns the lifecycle:
// configuration, stores, the indexing pipeline, the watcher, and the
// search path. All entry points go through an explicit *Engine handle;
// there is no package-level state.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/coderune/rune/internal/chunker"
	"github.com/coderune/rune/internal/chunker/languages"
	"github.com/coderune/rune/internal/config"
	"github.com/coderune/rune/internal/embeddings"
	"github.com/coderune/rune/internal/events"
	"github.com/coderune/rune/internal/filemeta"
	"github.com/coderune/rune/internal/logging"
	"github.com/coderune/rune/internal/querycache"
	"github.com/coderune/rune/internal/search"
	"github.com/coderune/rune/internal/symbols"
	"github.com/coderune/rune/internal/textindex"
	"github.com/coderune/rune/internal/vectorstore"
	"github.com/coderune/rune/internal/walker"
	"github.com/coderune/rune/internal/watcher"
	"github.com/coderune/rune/pkg/types"
)

// ErrShutdown is returned by every operation once Stop has begun.
var ErrShutdown = fmt.Errorf("engine: shutting down")

// Engine is the orchestrator: it owns configuration and handles to every
// subsystem, and exposes initialize/start/stop/search/stats/reindex.
type Engine struct {
	log *logging.Logger

	mu    sync.Mutex
	state State
	cfg   *config.Config

	bus      *events.Bus
	meta     *filemeta.Store
	text     *textindex.Index
	vectors  vectorstore.Store
	embedder embeddings.Provider
	chunks   *chunker.Chunker
	syms     *symbols.Extractor
	symLangs map[types.Language]bool
	cache    *querycache.Cache
	searcher *search.Searcher
	watch    *watcher.Watcher
	walkers  []*walker.Walker
	health   *vectorstore.HealthMonitor

	registry *prometheus.Registry
	met      *metrics

	inflightMu sync.Mutex
	inflight   map[string]chan struct{}

	threads int

	bgCtx    context.Context
	bgCancel context.CancelFunc
	wg       sync.WaitGroup

	vectorDegraded atomic.Bool
	textDegraded   atomic.Bool
	watcherRunning atomic.Bool
	lastIndexAt    atomic.Int64
}

// New returns an uninitialized Engine logging through log.
func New(log *logging.Logger) *Engine {
	registry := prometheus.NewRegistry()
	return &Engine{
		log:      log.Named("engine"),
		state:    StateUninitialized,
		registry: registry,
		met:      newMetrics(registry),
		inflight: make(map[string]chan struct{}),
	}
}

// MetricsRegistry exposes the engine's Prometheus registry so a host
// process can mount it on whatever exporter it runs.
func (e *Engine) MetricsRegistry() *prometheus.Registry {
	return e.registry
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Config returns a copy of the effective configuration.
func (e *Engine) Config() config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.cfg
}

// Initialize validates cfg and stores it. It is idempotent: calling it
// again replaces the configuration wholesale.
func (e *Engine) Initialize(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("engine: invalid configuration: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.state.CanTransition(StateInitialized); err != nil {
		return err
	}
	e.cfg = cfg
	e.state = StateInitialized
	e.log.Info(ctx, "engine initialized",
		zap.Int("workspaces", len(cfg.AllWorkspaces())),
		zap.String("cache_dir", cfg.EffectiveCacheDir()))
	return nil
}

// Start opens every store, reconciles them against each other, runs the
// initial walk, and begins watching for filesystem changes. It returns
// once the initial walk has completed.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if err := e.state.CanTransition(StateRunning); err != nil {
		e.mu.Unlock()
		return err
	}
	cfg := e.cfg
	e.mu.Unlock()

	cacheDir := cfg.EffectiveCacheDir()
	for _, sub := range []string{"kv", "text"} {
		if err := os.MkdirAll(filepath.Join(cacheDir, sub), 0o755); err != nil {
			return fmt.Errorf("engine: create cache dir: %w", err)
		}
	}

	meta, err := filemeta.Open(ctx, filepath.Join(cacheDir, "kv", "filemeta.db"))
	if err != nil {
		return err
	}

	text, err := textindex.Open(ctx, filepath.Join(cacheDir, "text", "index.db"),
		cfg.Indexing.BatchSize, cfg.Indexing.BatchInterval.Duration())
	if err != nil {
		_ = meta.Close()
		return err
	}

	registry := chunker.NewRegistry()
	languages.RegisterAll(registry)

	e.bgCtx, e.bgCancel = context.WithCancel(context.Background())

	workspaces := make([]search.Workspace, 0, len(cfg.AllWorkspaces()))
	roots := make([]string, 0, len(cfg.AllWorkspaces()))
	var walkers []*walker.Walker
	for _, w := range cfg.AllWorkspaces() {
		wk, err := walker.New(w.Root, w.Repository, int64(cfg.Indexing.MaxFileSizeKB)*1024, w.Excludes)
		if err != nil {
			_ = text.Close()
			_ = meta.Close()
			return fmt.Errorf("engine: workspace %s: %w", w.Root, err)
		}
		walkers = append(walkers, wk)
		workspaces = append(workspaces, search.Workspace{Root: wk.Root(), Repository: wk.Repository()})
		roots = append(roots, wk.Root())
	}

	e.mu.Lock()
	e.meta = meta
	e.text = text
	e.walkers = walkers
	e.bus = events.New()
	e.chunks = chunker.New(registry, cfg.Indexing.ChunkMinLines, cfg.Indexing.ChunkMaxLines)
	e.syms = symbols.New(registry)
	e.symLangs = make(map[types.Language]bool, len(cfg.Indexing.Languages))
	for _, lang := range cfg.Indexing.Languages {
		e.symLangs[types.Language(lang)] = true
	}
	e.threads = cfg.Indexing.Threads
	e.mu.Unlock()

	cache, err := querycache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL.Duration(), e.bus)
	if err != nil {
		_ = text.Close()
		_ = meta.Close()
		return err
	}

	if cfg.SemanticEnabled() {
		e.openSemanticBackends(ctx, cfg, workspaces)
	}

	e.mu.Lock()
	e.cache = cache
	e.searcher = search.New(e.searchConfig(cfg), workspaces, text, e.vectors, e.embedder)
	e.state = StateRunning
	e.mu.Unlock()

	if err := e.reconcile(ctx); err != nil {
		e.log.Warn(ctx, "startup reconciliation incomplete", zap.Error(err))
	}

	e.initialWalk(ctx)

	if err := e.startWatcher(cfg, roots); err != nil {
		e.log.Warn(ctx, "file watcher unavailable", zap.Error(err))
	}

	e.log.Info(ctx, "engine started", zap.Int("workspaces", len(walkers)))
	return nil
}

// openSemanticBackends brings up the embedder and the vector store,
// creating each workspace's collection. Failures degrade semantic mode
// rather than aborting startup. Once the store client is open, a health
// monitor pings it in the background and tracks its availability; an
// embedder or store client that fails to open here is not retried.
func (e *Engine) openSemanticBackends(ctx context.Context, cfg *config.Config, workspaces []search.Workspace) {
	base, err := embeddings.NewProvider(embeddings.Config{
		Provider:  cfg.Embeddings.Provider,
		Model:     cfg.Embeddings.Model,
		CacheDir:  cfg.Embeddings.CacheDir,
		BaseURL:   cfg.Embeddings.BaseURL,
		MaxLength: cfg.Embeddings.MaxLength,
	})
	if err != nil {
		e.log.Warn(ctx, "embedder unavailable, semantic search disabled", zap.Error(err))
		e.vectorDegraded.Store(true)
		return
	}
	// Bounded queue: walk workers all funnel through one throttle, and
	// callers past capacity block rather than drop.
	var provider embeddings.Provider = base
	if instrumented, merr := embeddings.NewMetrics(base); merr == nil {
		provider = instrumented
	}
	provider = embeddings.NewThrottled(provider, cfg.Indexing.Threads)

	store, err := vectorstore.NewStoreFromConfig(cfg.Qdrant)
	if err != nil {
		e.log.Warn(ctx, "vector store unavailable, semantic search degraded", zap.Error(err))
		_ = provider.Close()
		e.vectorDegraded.Store(true)
		return
	}

	for _, w := range workspaces {
		if err := store.CreateCollection(ctx, w.Collection(), provider.Dimension(), cfg.Qdrant.Quantization); err != nil {
			e.log.Warn(ctx, "vector collection unavailable",
				zap.String("repository", w.Repository), zap.Error(err))
			e.vectorDegraded.Store(true)
		}
	}

	health := vectorstore.NewHealthMonitor(e.bgCtx, store.Ping, 30*time.Second, e.log.Underlying())
	_ = health.RegisterCallback(func(healthy bool) {
		e.vectorDegraded.Store(!healthy)
	})
	health.Start()

	e.mu.Lock()
	e.embedder = provider
	e.vectors = store
	e.health = health
	e.mu.Unlock()
}

// searchConfig projects the engine configuration onto the searcher's.
func (e *Engine) searchConfig(cfg *config.Config) search.Config {
	return search.Config{
		FuzzyEnabled:       cfg.FuzzyEnabled(),
		FuzzyUseJaro:       cfg.Search.FuzzyUseJaro,
		FuzzyMaxDistance:   cfg.Search.FuzzyMaxDistance,
		FuzzySimilarity:    cfg.Search.FuzzyThreshold,
		SemanticOversample: cfg.Search.SemanticOversample,
		RRFConstant:        cfg.Search.RRFConstant,
		ContextLines:       cfg.Search.ContextLines,
		DefaultLimit:       cfg.Search.DefaultLimit,
		Timeout:            cfg.Search.Timeout.Duration(),
	}
}

// startWatcher begins the debounced filesystem watch and its worker
// pool feeding the indexing pipeline.
func (e *Engine) startWatcher(cfg *config.Config, roots []string) error {
	w, err := watcher.New(roots, cfg.Indexing.WatchDebounce.Duration(), cfg.Indexing.Threads)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.watch = w
	e.mu.Unlock()
	e.watcherRunning.Store(true)

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		w.Run(e.bgCtx)
		e.watcherRunning.Store(false)
	}()
	go func() {
		defer e.wg.Done()
		watcher.Dispatch(e.bgCtx, w.Events(), cfg.Indexing.Threads, e.handleEvent)
	}()
	return nil
}

// Stop drains in-flight work, flushes the text index, and closes every
// store. The engine can be re-initialized afterwards.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if err := e.state.CanTransition(StateStopped); err != nil {
		e.mu.Unlock()
		return err
	}
	e.state = StateStopped
	watch := e.watch
	health := e.health
	e.mu.Unlock()

	if watch != nil {
		_ = watch.Close()
	}
	if health != nil {
		health.Stop()
	}
	if e.bgCancel != nil {
		e.bgCancel()
	}
	e.wg.Wait()

	var firstErr error
	if e.text != nil {
		if err := e.text.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.meta != nil {
		if err := e.meta.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.vectors != nil {
		if err := e.vectors.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.embedder != nil {
		_ = e.embedder.Close()
	}
	if e.cache != nil {
		e.cache.Close()
	}

	e.watcherRunning.Store(false)
	e.log.Info(ctx, "engine stopped")
	return firstErr
}
