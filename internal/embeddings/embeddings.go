// Package embeddings turns code chunks and search queries into the
// fixed-dimension vectors the semantic index stores. Two providers are
// available: a local ONNX model (the default, no network dependency at
// query time) and a remote HTTP embedding server for deployments that
// centralize inference. Both are used through the Provider interface;
// NewThrottled adds the bounded worker queue the indexing pipeline
// requires.
package embeddings

import (
	"errors"
	"fmt"

	"github.com/coderune/rune/internal/vectorstore"
)

var (
	// ErrInvalidConfig is returned for unknown providers or models.
	ErrInvalidConfig = errors.New("embeddings: invalid configuration")

	// ErrEmptyInput is returned when there is nothing to embed.
	ErrEmptyInput = errors.New("embeddings: empty input")

	// ErrEmbedFailed wraps inference failures from either provider.
	ErrEmbedFailed = errors.New("embeddings: inference failed")

	// ErrLocalUnavailable is returned when the local ONNX provider was
	// compiled out (CGO disabled); use the remote provider instead.
	ErrLocalUnavailable = errors.New("embeddings: local provider unavailable in this build")
)

// Provider maps chunk content and queries to vectors. EmbedDocuments is
// the indexing path (one vector per chunk); EmbedQuery is the search
// path. Implementations must return vectors of exactly Dimension()
// floats.
type Provider interface {
	vectorstore.Embedder
	Close() error
}

// Config selects and tunes a provider.
type Config struct {
	// Provider is "local" (ONNX via fastembed, default) or "remote"
	// (HTTP embedding server).
	Provider string

	// Model names the embedding model. The default, bge-small-en-v1.5,
	// produces the 384-dim vectors the vector collections are created
	// with.
	Model string

	// CacheDir is where the local provider stores downloaded model
	// files.
	CacheDir string

	// BaseURL is the remote embedding server endpoint (remote only).
	BaseURL string

	// MaxLength caps input length in model tokens; longer chunks are
	// truncated by the model tokenizer. Default 512.
	MaxLength int
}

// DefaultModel is the model used when none is configured.
const DefaultModel = "BAAI/bge-small-en-v1.5"

// modelDimensions is the closed table of models rune knows how to load
// locally, with the vector width each produces.
var modelDimensions = map[string]int{
	"BAAI/bge-small-en-v1.5":                 384,
	"BAAI/bge-small-en":                      384,
	"BAAI/bge-base-en-v1.5":                  768,
	"BAAI/bge-base-en":                       768,
	"sentence-transformers/all-MiniLM-L6-v2": 384,
}

// ModelDimension resolves a model name to its vector width. Unknown
// models fall back to 384, the width of every small-tier model in the
// table and the dimension the vector store schema assumes.
func ModelDimension(model string) int {
	if dim, ok := modelDimensions[model]; ok {
		return dim
	}
	return 384
}

// NewProvider builds the configured provider.
func NewProvider(cfg Config) (Provider, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = 512
	}

	switch cfg.Provider {
	case "", "local":
		return newLocalProvider(cfg)
	case "remote":
		return newRemoteProvider(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
