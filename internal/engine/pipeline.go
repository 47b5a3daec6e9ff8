package engine

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/coderune/rune/internal/events"
	"github.com/coderune/rune/internal/filemeta"
	"github.com/coderune/rune/internal/hashing"
	"github.com/coderune/rune/internal/logging"
	"github.com/coderune/rune/internal/textindex"
	"github.com/coderune/rune/internal/vectorstore"
	"github.com/coderune/rune/internal/walker"
	"github.com/coderune/rune/internal/watcher"
	"github.com/coderune/rune/pkg/types"
)

func eventFor(repository string) events.RepositoryChanged {
	return events.RepositoryChanged{Repository: repository}
}

// acquirePath blocks until this engine holds the exclusive right to
// index or remove path, so a path is assigned to exactly one worker at
// a time.
func (e *Engine) acquirePath(path string) {
	for {
		e.inflightMu.Lock()
		ch, busy := e.inflight[path]
		if !busy {
			e.inflight[path] = make(chan struct{})
			e.inflightMu.Unlock()
			return
		}
		e.inflightMu.Unlock()
		<-ch
	}
}

func (e *Engine) releasePath(path string) {
	e.inflightMu.Lock()
	ch := e.inflight[path]
	delete(e.inflight, path)
	e.inflightMu.Unlock()
	if ch != nil {
		close(ch)
	}
}

// initialWalk indexes every workspace with a bounded worker pool and
// returns when all of them are done.
func (e *Engine) initialWalk(ctx context.Context) {
	start := time.Now()
	var files, syms int64
	for _, wk := range e.walkers {
		f, s := e.walkWorkspace(ctx, wk)
		files += f
		syms += s
	}
	e.log.Info(ctx, "initial walk completed",
		zap.Int64("files", files),
		zap.Int64("symbols", syms),
		zap.Duration("elapsed", time.Since(start)))
}

// walkWorkspace feeds every discovered file through the pipeline using
// indexing_threads workers, returning how many files were (re)indexed
// and how many symbols they produced.
func (e *Engine) walkWorkspace(ctx context.Context, wk *walker.Walker) (int64, int64) {
	ctx = logging.WithWorkspace(ctx, wk.Root())
	ctx = logging.WithRepository(ctx, wk.Repository())
	paths := make(chan types.File, 256)

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		files, syms int64
	)
	threads := e.threads
	if threads <= 0 {
		threads = 4
	}
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range paths {
				changed, count, err := e.indexFile(ctx, f)
				if err != nil {
					e.met.indexErrors.Inc()
					e.log.Warn(ctx, "indexing failed, file skipped",
						zap.String("path", f.Path), zap.Error(err))
					continue
				}
				if changed {
					mu.Lock()
					files++
					syms += int64(count)
					mu.Unlock()
				}
			}
		}()
	}

	err := wk.Walk(ctx, func(f types.File) error {
		select {
		case paths <- f:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	close(paths)
	wg.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		e.log.Warn(ctx, "workspace walk incomplete",
			zap.String("root", wk.Root()), zap.Error(err))
	}

	// Commit the tail of the batch so searches immediately after the
	// walk see every document.
	if err := e.text.Flush(ctx); err != nil {
		e.textDegraded.Store(true)
		e.log.Warn(ctx, "text index flush failed", zap.Error(err))
	}
	return files, syms
}

// handleEvent routes one debounced watcher event into the pipeline.
func (e *Engine) handleEvent(ctx context.Context, ev watcher.Event) {
	var owner *walker.Walker
	for _, wk := range e.walkers {
		if wk.Contains(ev.Path) {
			owner = wk
			break
		}
	}
	if owner == nil {
		return
	}

	ctx = logging.WithWorkspace(ctx, owner.Root())
	ctx = logging.WithRepository(ctx, owner.Repository())

	switch ev.Kind {
	case watcher.EventRemove:
		e.removePath(ctx, ev.Path, owner.Repository())
		e.bus.Publish(eventFor(owner.Repository()))
	case watcher.EventReindex:
		f, ok := owner.FileFor(ev.Path)
		if !ok {
			// The path may have shrunk to excluded status (emptied,
			// turned binary); make sure no stale entry lingers.
			if _, err := e.meta.Get(ctx, ev.Path); err == nil {
				e.removePath(ctx, ev.Path, owner.Repository())
				e.bus.Publish(eventFor(owner.Repository()))
			}
			return
		}
		changed, _, err := e.indexFile(ctx, f)
		if err != nil {
			e.met.indexErrors.Inc()
			e.log.Warn(ctx, "indexing failed, file skipped",
				zap.String("path", f.Path), zap.Error(err))
			return
		}
		if changed {
			// A watch event is a single file; commit it right away so
			// the index converges within the debounce window.
			if err := e.text.Flush(ctx); err != nil {
				e.log.Warn(ctx, "text index flush failed", zap.Error(err))
			}
			e.bus.Publish(eventFor(owner.Repository()))
		}
	}
}

// indexFile runs one file through hash → chunk → symbols → text index →
// embeddings. changed is false when the content hash matched the stored
// one and only indexed_at was refreshed.
func (e *Engine) indexFile(ctx context.Context, f types.File) (changed bool, symbolCount int, err error) {
	e.acquirePath(f.Path)
	defer e.releasePath(f.Path)

	content, err := os.ReadFile(f.Path)
	if err != nil {
		return false, 0, err
	}
	f.ContentHash = hashing.HashBytes(content)
	now := time.Now().UTC()

	// Extensionless scripts still deserve a symbol pass when their
	// interpreter line names a supported language.
	if f.Language == types.LangUnknown {
		if lang := types.LanguageForShebang(content); lang != types.LangUnknown {
			f.Language = lang
		}
	}

	prev, err := e.meta.Get(ctx, f.Path)
	if err == nil && prev.ContentHash == f.ContentHash {
		if err := e.meta.Touch(ctx, f.Path, now); err != nil {
			return false, 0, err
		}
		e.met.filesUnchanged.Inc()
		return false, 0, nil
	}
	if err != nil && !errors.Is(err, filemeta.ErrNotFound) {
		return false, 0, err
	}

	chunks, err := e.chunks.Chunk(ctx, f, content)
	if err != nil {
		// Parse failures fall back to text-only indexing: chunk by line
		// budget with no grammar, emit no symbols.
		plain := f
		plain.Language = types.LangUnknown
		chunks, err = e.chunks.Chunk(ctx, plain, content)
		if err != nil {
			return false, 0, err
		}
	}

	var syms []types.Symbol
	if e.symLangs[f.Language] {
		syms, err = e.syms.Extract(ctx, f, content)
		if err != nil {
			e.log.Warn(ctx, "symbol extraction failed, indexing text only",
				zap.String("path", f.Path), zap.Error(err))
			syms = nil
		}
	}

	spans := make([]textindex.SymbolSpan, len(syms))
	for i, s := range syms {
		spans[i] = textindex.SymbolSpan{Name: s.Name, Kind: s.Kind, StartLine: s.StartLine, EndLine: s.EndLine}
	}
	doc := textindex.Document{
		Path:       f.Path,
		Repository: f.Repository,
		Language:   f.Language,
		Symbols:    spans,
		Content:    string(content),
	}
	if err := e.upsertWithRetry(ctx, doc); err != nil {
		return false, 0, err
	}

	e.upsertVectors(ctx, f, chunks)

	f.IndexedAt = now
	if err := e.meta.Upsert(ctx, f); err != nil {
		return false, 0, err
	}

	e.lastIndexAt.Store(now.Unix())
	e.met.filesIndexed.Inc()
	return true, len(syms), nil
}

// upsertWithRetry commits a document to the text index, retrying with
// exponential backoff before marking the engine degraded.
func (e *Engine) upsertWithRetry(ctx context.Context, doc textindex.Document) error {
	backoff := 50 * time.Millisecond
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if err = e.text.Upsert(ctx, doc); err == nil {
			e.textDegraded.Store(false)
			return nil
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	e.textDegraded.Store(true)
	return err
}

// upsertVectors replaces a file's points with its current chunks.
// Embedding or vector store failures drop the vectors but never fail
// the file: it stays fully indexed in text and symbols.
func (e *Engine) upsertVectors(ctx context.Context, f types.File, chunks []types.Chunk) {
	e.mu.Lock()
	vectors := e.vectors
	embedder := e.embedder
	e.mu.Unlock()
	if vectors == nil || embedder == nil || len(chunks) == 0 {
		return
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vecs, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil || len(vecs) != len(chunks) {
		e.log.Warn(ctx, "embedding failed, vectors dropped",
			zap.String("path", f.Path), zap.Error(err))
		return
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, c := range chunks {
		points[i] = vectorstore.Point{
			ID:         c.ID,
			Vector:     vecs[i],
			Path:       c.Path,
			RelPath:    c.RelPath,
			Repository: c.Repository,
			Language:   string(c.Language),
			StartLine:  c.StartLine,
			EndLine:    c.EndLine,
			SymbolName: c.SymbolName,
			Content:    c.Content,
		}
	}

	collection := vectorstore.CollectionNameFor(e.rootFor(f.Repository))
	if err := vectors.DeleteByPath(ctx, collection, f.Path); err != nil {
		e.noteVectorError(ctx, f.Path, err)
		return
	}
	if err := vectors.Upsert(ctx, collection, points); err != nil {
		e.noteVectorError(ctx, f.Path, err)
	}
}

func (e *Engine) noteVectorError(ctx context.Context, path string, err error) {
	if errors.Is(err, vectorstore.ErrUnavailable) || errors.Is(err, vectorstore.ErrConnectionFailed) {
		e.vectorDegraded.Store(true)
	}
	e.log.Warn(ctx, "vector store write failed, vectors dropped",
		zap.String("path", path), zap.Error(err))
}

func (e *Engine) rootFor(repository string) string {
	for _, wk := range e.walkers {
		if wk.Repository() == repository {
			return wk.Root()
		}
	}
	return ""
}

// removePath deletes a file from the text index, the vector store, and
// finally FileMeta. FileMeta goes last so a crash mid-delete leaves a
// record that startup reconciliation can finish the job from.
func (e *Engine) removePath(ctx context.Context, path, repository string) {
	e.acquirePath(path)
	defer e.releasePath(path)

	if err := e.text.Delete(ctx, path); err != nil {
		e.log.Warn(ctx, "text index delete failed", zap.String("path", path), zap.Error(err))
	}

	e.mu.Lock()
	vectors := e.vectors
	e.mu.Unlock()
	if vectors != nil {
		collection := vectorstore.CollectionNameFor(e.rootFor(repository))
		if err := vectors.DeleteByPath(ctx, collection, path); err != nil {
			e.noteVectorError(ctx, path, err)
		}
	}

	if err := e.meta.Delete(ctx, path); err != nil {
		e.log.Warn(ctx, "filemeta delete failed", zap.String("path", path), zap.Error(err))
		return
	}
	e.met.filesRemoved.Inc()
	e.lastIndexAt.Store(time.Now().Unix())
}
