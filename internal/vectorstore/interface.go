// Package vectorstore defines and implements the external vector database
// client: a Qdrant-backed store of chunk embeddings, one collection per
// indexed workspace.
package vectorstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/coderune/rune/internal/config"
)

// CollectionNameFor derives the Qdrant collection name for a workspace
// root: rune_<hex64(sha256(workspace_root))>.
func CollectionNameFor(workspaceRoot string) string {
	sum := sha256.Sum256([]byte(workspaceRoot))
	return "rune_" + hex.EncodeToString(sum[:])
}

// QuantizationMode re-exports config.QuantizationMode so callers outside
// internal/config don't need to import it just to pass a mode through.
type QuantizationMode = config.QuantizationMode

const (
	QuantizationNone       = config.QuantizationNone
	QuantizationScalar     = config.QuantizationScalar
	QuantizationBinary     = config.QuantizationBinary
	QuantizationAsymmetric = config.QuantizationAsymmetric
)

// Sentinel errors for vector store operations.
var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrCollectionExists is returned when attempting to create an existing collection.
	ErrCollectionExists = errors.New("collection already exists")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyPoints indicates an empty or nil point batch.
	ErrEmptyPoints = errors.New("empty or nil points")

	// ErrConnectionFailed indicates gRPC connection issues.
	ErrConnectionFailed = errors.New("failed to connect to Qdrant")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")

	// ErrUnavailable indicates the vector store is currently unreachable;
	// callers should treat semantic/hybrid search as degraded rather than
	// fail the whole request.
	ErrUnavailable = errors.New("vector store unavailable")
)

// Embedder produces fixed-dimension vectors from text. Implementations
// live in internal/embeddings; this interface is declared here so the
// store and its callers don't need to import that package.
type Embedder interface {
	// EmbedDocuments embeds chunk content for indexing.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a single search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Dimension returns the width of vectors this embedder produces.
	Dimension() int
}

// CollectionInfo contains metadata about a vector collection.
type CollectionInfo struct {
	Name       string `json:"name"`
	PointCount int    `json:"point_count"`
	VectorSize int    `json:"vector_size"`
}

// Point is a single chunk embedding plus the metadata needed to turn a
// vector hit back into a types.Result.
type Point struct {
	ID         string // deterministic: same as the owning chunk's ID
	Vector     []float32
	Path       string
	RelPath    string
	Repository string
	Language   string
	StartLine  int
	EndLine    int
	SymbolName string
	Content    string
}

// ScoredPoint is a Point returned from a similarity search, with its score.
type ScoredPoint struct {
	Point
	Score float32
}

// Store is the interface for the external vector database client.
//
// Collections are named rune_<sha256(workspace_root)[:64]>, one per indexed
// workspace; see CollectionNameFor.
type Store interface {
	// Upsert inserts or replaces points in a collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search performs a similarity search against a query vector.
	Search(ctx context.Context, collection string, queryVector []float32, k int, filter map[string]string) ([]ScoredPoint, error)

	// ExactSearch performs brute-force similarity search, bypassing the
	// HNSW index. Intended for small collections where the index may not
	// have been built yet.
	ExactSearch(ctx context.Context, collection string, queryVector []float32, k int) ([]ScoredPoint, error)

	// Delete removes points by ID from a collection.
	Delete(ctx context.Context, collection string, ids []string) error

	// DeleteByPath removes all points belonging to a file path from a
	// collection, used when a file is deleted or re-chunked.
	DeleteByPath(ctx context.Context, collection string, path string) error

	// CreateCollection creates a collection with the given vector size and
	// quantization mode, if it doesn't already exist.
	CreateCollection(ctx context.Context, collection string, vectorSize int, quantization QuantizationMode) error

	// DeleteCollection deletes a collection and all its points.
	DeleteCollection(ctx context.Context, collection string) error

	// CollectionExists reports whether a collection exists.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// GetCollectionInfo returns point count and vector size for a collection.
	GetCollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error)

	// Close releases the underlying connection.
	Close() error
}
