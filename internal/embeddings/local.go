//go:build cgo

package embeddings

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	fastembed "github.com/anush008/fastembed-go"
)

// chunkBatchSize is how many chunk texts are handed to the model per
// inference call. Chunks are short (a few dozen lines), so a largish
// batch amortizes tokenizer overhead without ballooning memory.
const chunkBatchSize = 256

// localModels maps rune's model names onto the fastembed loader's
// identifiers.
var localModels = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-small-en":                      fastembed.BGESmallEN,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"BAAI/bge-base-en":                       fastembed.BGEBaseEN,
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
}

// localProvider runs an ONNX embedding model in-process. BGE-family
// models distinguish passages from queries by instruction prefix, which
// maps directly onto rune's two call paths: chunks embed as passages,
// search text embeds as a query.
type localProvider struct {
	mu        sync.RWMutex
	model     *fastembed.FlagEmbedding
	dimension int
}

func newLocalProvider(cfg Config) (Provider, error) {
	id, ok := localModels[cfg.Model]
	if !ok {
		return nil, fmt.Errorf("%w: no local model %q", ErrInvalidConfig, cfg.Model)
	}

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(".", "model_cache")
	}

	// The daemon logs to stderr; a download progress bar would
	// interleave with it.
	progress := false
	model, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                id,
		CacheDir:             cacheDir,
		MaxLength:            cfg.MaxLength,
		ShowDownloadProgress: &progress,
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings: load model %s: %w", cfg.Model, err)
	}

	return &localProvider{
		model:     model,
		dimension: ModelDimension(cfg.Model),
	}, nil
}

// EmbedDocuments embeds a batch of chunk contents, one vector per
// chunk, in input order.
func (p *localProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	vectors, err := p.model.PassageEmbed(texts, chunkBatchSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedFailed, err)
	}
	return vectors, nil
}

// EmbedQuery embeds search text with the model's query instruction.
func (p *localProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	vector, err := p.model.QueryEmbed(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedFailed, err)
	}
	return vector, nil
}

func (p *localProvider) Dimension() int {
	return p.dimension
}

func (p *localProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model == nil {
		return nil
	}
	err := p.model.Destroy()
	p.model = nil
	return err
}

var _ Provider = (*localProvider)(nil)
