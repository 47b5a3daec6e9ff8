package engine

import (
	"context"

	"go.uber.org/zap"
)

// reconcile repairs divergence between FileMeta and the text index left
// behind by a crash mid-delete or mid-index. A text document without a
// FileMeta row is deleted from the text index; a FileMeta row without a
// text document is removed from every store so the following walk
// re-indexes the file from scratch. The vector store is not listed:
// points whose path has neither a FileMeta row nor a text document are
// not detected here.
func (e *Engine) reconcile(ctx context.Context) error {
	metaFiles, err := e.meta.All(ctx)
	if err != nil {
		return err
	}
	textPaths, err := e.text.Paths(ctx)
	if err != nil {
		return err
	}

	inMeta := make(map[string]string, len(metaFiles))
	for _, f := range metaFiles {
		inMeta[f.Path] = f.Repository
	}
	inText := make(map[string]bool, len(textPaths))
	for _, p := range textPaths {
		inText[p] = true
	}

	removed := 0
	for _, p := range textPaths {
		if _, ok := inMeta[p]; ok {
			continue
		}
		if err := e.text.Delete(ctx, p); err != nil {
			e.log.Warn(ctx, "reconcile: orphaned document not removed",
				zap.String("path", p), zap.Error(err))
			continue
		}
		removed++
	}

	dropped := 0
	for path, repo := range inMeta {
		if inText[path] {
			continue
		}
		e.removePath(ctx, path, repo)
		dropped++
	}

	if removed > 0 || dropped > 0 {
		e.log.Info(ctx, "startup reconciliation repaired stores",
			zap.Int("orphaned_documents", removed),
			zap.Int("orphaned_filemeta", dropped))
	}
	return nil
}
