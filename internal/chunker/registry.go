// Package chunker splits indexed files into the Chunk-sized ranges the
// embedder and text index operate on, preferring tree-sitter definition
// boundaries where a grammar is registered and falling back to a fixed
// line budget otherwise.
package chunker

import (
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/coderune/rune/pkg/types"
)

// LanguageSpec pairs a tree-sitter grammar with the query used to find
// chunk boundaries in it, keyed by the closed types.Language set.
type LanguageSpec struct {
	Language *sitter.Language
	// Query is a tree-sitter S-expression query. Matches must capture the
	// outer node as @chunk and, optionally, its identifier as @name.
	Query string
}

// Registry maps a types.Language to its LanguageSpec. Languages with no
// registered spec (JSON, YAML, TOML, and anything unrecognized) use the
// line-budget chunker instead.
type Registry struct {
	mu    sync.RWMutex
	specs map[types.Language]*LanguageSpec
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[types.Language]*LanguageSpec)}
}

// Register adds or replaces the spec for lang.
func (r *Registry) Register(lang types.Language, spec *LanguageSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[lang] = spec
}

// Lookup returns the spec registered for lang, if any.
func (r *Registry) Lookup(lang types.Language) (*LanguageSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[lang]
	return spec, ok
}
