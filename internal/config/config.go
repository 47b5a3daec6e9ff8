// Package config loads and validates rune's on-disk configuration.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

// QuantizationMode is the closed set of Qdrant quantization strategies a
// collection can be created with.
type QuantizationMode string

const (
	QuantizationNone       QuantizationMode = "none"
	QuantizationScalar     QuantizationMode = "scalar"
	QuantizationBinary     QuantizationMode = "binary"
	QuantizationAsymmetric QuantizationMode = "asymmetric"
)

// Config is the full configuration for a rune engine instance.
type Config struct {
	Workspace  WorkspaceConfig   `koanf:"workspace"`
	Workspaces []WorkspaceConfig `koanf:"workspaces"`
	Storage    StorageConfig     `koanf:"storage"`
	Indexing   IndexingConfig    `koanf:"indexing"`
	Search     SearchConfig      `koanf:"search"`
	Embeddings EmbeddingsConfig  `koanf:"embeddings"`
	Qdrant     QdrantConfig      `koanf:"qdrant"`
	Cache      CacheConfig       `koanf:"cache"`
	Logging    LoggingConfig     `koanf:"logging"`
}

// WorkspaceConfig describes one root directory being indexed. An engine
// may index several: `workspace` configures the primary one, `workspaces`
// adds more. Each root becomes its own repository label and its own
// vector collection.
type WorkspaceConfig struct {
	Root       string   `koanf:"root"`
	Repository string   `koanf:"repository"`
	Excludes   []string `koanf:"excludes"`
}

// StorageConfig locates the on-disk cache: the FileMeta KV database under
// <dir>/kv/ and the full-text index under <dir>/text/. When SharedCache
// is set the effective directory becomes <dir>/<sha256(workspace_id)[:16]>
// so several engines can share one cache volume without colliding.
type StorageConfig struct {
	Dir         string `koanf:"dir"`
	SharedCache bool   `koanf:"shared_cache"`
	WorkspaceID string `koanf:"workspace_id"`
}

// SearchConfig tunes the search executors. Boolean knobs are pointers so
// an absent YAML key is distinguishable from an explicit false.
type SearchConfig struct {
	FuzzyEnabled       *bool    `koanf:"fuzzy_enabled"`
	FuzzyUseJaro       bool     `koanf:"fuzzy_use_jaro"`
	FuzzyThreshold     float64  `koanf:"fuzzy_threshold"`
	FuzzyMaxDistance   int      `koanf:"fuzzy_max_distance"`
	EnableSemantic     *bool    `koanf:"enable_semantic"`
	SemanticOversample int      `koanf:"semantic_oversample"`
	RRFConstant        int      `koanf:"rrf_constant"`
	ContextLines       int      `koanf:"context_lines"`
	DefaultLimit       int      `koanf:"default_limit"`
	MaxLimit           int      `koanf:"max_limit"`
	Timeout            Duration `koanf:"timeout"`
}

// IndexingConfig controls the indexing pipeline's concurrency and limits.
type IndexingConfig struct {
	Threads       int      `koanf:"threads"`
	Languages     []string `koanf:"languages"`
	MaxFileSizeKB int      `koanf:"max_file_size_kb"`
	ChunkMinLines int      `koanf:"chunk_min_lines"`
	ChunkMaxLines int      `koanf:"chunk_max_lines"`
	WatchDebounce Duration `koanf:"watch_debounce"`
	BatchSize     int      `koanf:"batch_size"`
	BatchInterval Duration `koanf:"batch_interval"`
}

// EmbeddingsConfig selects and configures the embedding model.
type EmbeddingsConfig struct {
	Provider  string `koanf:"provider"` // "local" (default) or "remote"
	Model     string `koanf:"model"`
	CacheDir  string `koanf:"cache_dir"`
	BaseURL   string `koanf:"base_url"` // remote provider endpoint
	MaxLength int    `koanf:"max_length"`
}

// QdrantConfig configures the external vector database connection.
type QdrantConfig struct {
	Host           string           `koanf:"host"`
	Port           int              `koanf:"port"`
	APIKey         Secret           `koanf:"api_key"`
	UseTLS         bool             `koanf:"use_tls"`
	Quantization   QuantizationMode `koanf:"quantization"`
	MaxRetries     int              `koanf:"max_retries"`
	RetryBackoff   Duration         `koanf:"retry_backoff"`
	CircuitBreaker int              `koanf:"circuit_breaker_threshold"`
}

// CacheConfig configures the query cache.
type CacheConfig struct {
	MaxEntries int      `koanf:"max_entries"`
	TTL        Duration `koanf:"ttl"`
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // "json" or "console"
}

// AllWorkspaces returns the primary workspace followed by any additional
// ones, with empty entries dropped.
func (c *Config) AllWorkspaces() []WorkspaceConfig {
	out := make([]WorkspaceConfig, 0, 1+len(c.Workspaces))
	if c.Workspace.Root != "" {
		out = append(out, c.Workspace)
	}
	for _, w := range c.Workspaces {
		if w.Root != "" {
			out = append(out, w)
		}
	}
	return out
}

// EffectiveCacheDir resolves the on-disk cache directory, applying the
// shared-cache namespacing when configured.
func (c *Config) EffectiveCacheDir() string {
	if !c.Storage.SharedCache || c.Storage.WorkspaceID == "" {
		return c.Storage.Dir
	}
	sum := sha256.Sum256([]byte(c.Storage.WorkspaceID))
	return filepath.Join(c.Storage.Dir, hex.EncodeToString(sum[:])[:16])
}

// FuzzyEnabled reports whether literal-mode fuzzy fallback is on.
func (c *Config) FuzzyEnabled() bool {
	return c.Search.FuzzyEnabled == nil || *c.Search.FuzzyEnabled
}

// SemanticEnabled reports whether the embedder and vector store should be
// wired at all.
func (c *Config) SemanticEnabled() bool {
	return c.Search.EnableSemantic == nil || *c.Search.EnableSemantic
}

// Validate checks the configuration for required fields and sane ranges.
func (c *Config) Validate() error {
	if len(c.AllWorkspaces()) == 0 {
		return fmt.Errorf("workspace.root is required")
	}
	seen := make(map[string]bool)
	for _, w := range c.AllWorkspaces() {
		if seen[w.Repository] {
			return fmt.Errorf("duplicate workspace repository label %q", w.Repository)
		}
		seen[w.Repository] = true
	}
	if c.Indexing.Threads <= 0 {
		return fmt.Errorf("indexing.threads must be positive, got %d", c.Indexing.Threads)
	}
	if c.Indexing.ChunkMinLines <= 0 || c.Indexing.ChunkMaxLines < c.Indexing.ChunkMinLines {
		return fmt.Errorf("indexing.chunk_min_lines/chunk_max_lines misconfigured")
	}
	if c.Qdrant.Host == "" {
		return fmt.Errorf("qdrant.host is required")
	}
	switch c.Qdrant.Quantization {
	case QuantizationNone, QuantizationScalar, QuantizationBinary, QuantizationAsymmetric:
	default:
		return fmt.Errorf("qdrant.quantization must be one of none|scalar|binary|asymmetric, got %q", c.Qdrant.Quantization)
	}
	return nil
}

// ApplyDefaults fills in unset fields with the documented defaults, for
// callers constructing a Config directly instead of through the loader.
func (c *Config) ApplyDefaults() {
	applyDefaults(c)
}

// applyDefaults fills in unset fields with the documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.Workspace.Root == "" && len(cfg.Workspaces) == 0 {
		cfg.Workspace.Root = "."
	}
	if cfg.Workspace.Root != "" && cfg.Workspace.Repository == "" {
		cfg.Workspace.Repository = repositoryLabel(cfg.Workspace.Root)
	}
	for i := range cfg.Workspaces {
		if cfg.Workspaces[i].Repository == "" {
			cfg.Workspaces[i].Repository = repositoryLabel(cfg.Workspaces[i].Root)
		}
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = ".rune_cache"
	}
	if cfg.Search.FuzzyThreshold == 0 {
		cfg.Search.FuzzyThreshold = 0.75
	}
	if cfg.Search.FuzzyMaxDistance == 0 {
		cfg.Search.FuzzyMaxDistance = 2
	}
	if cfg.Search.SemanticOversample == 0 {
		cfg.Search.SemanticOversample = 2
	}
	if cfg.Search.RRFConstant == 0 {
		cfg.Search.RRFConstant = 60
	}
	if cfg.Search.ContextLines == 0 {
		cfg.Search.ContextLines = 2
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 50
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 500
	}
	if cfg.Search.Timeout == 0 {
		cfg.Search.Timeout = Duration(250 * 1e6)
	}
	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = "localhost"
	}
	if cfg.Indexing.Threads == 0 {
		cfg.Indexing.Threads = 4
	}
	if cfg.Indexing.MaxFileSizeKB == 0 {
		cfg.Indexing.MaxFileSizeKB = 10 * 1024
	}
	if len(cfg.Indexing.Languages) == 0 {
		cfg.Indexing.Languages = []string{
			"rust", "javascript", "typescript", "python", "go", "java", "cpp",
		}
	}
	if cfg.Indexing.ChunkMinLines == 0 {
		cfg.Indexing.ChunkMinLines = 40
	}
	if cfg.Indexing.ChunkMaxLines == 0 {
		cfg.Indexing.ChunkMaxLines = 80
	}
	if cfg.Indexing.WatchDebounce == 0 {
		cfg.Indexing.WatchDebounce = Duration(500 * 1e6)
	}
	if cfg.Indexing.BatchSize == 0 {
		cfg.Indexing.BatchSize = 50
	}
	if cfg.Indexing.BatchInterval == 0 {
		cfg.Indexing.BatchInterval = Duration(250 * 1e6)
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}
	if cfg.Embeddings.MaxLength == 0 {
		cfg.Embeddings.MaxLength = 512
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6334
	}
	if cfg.Qdrant.Quantization == "" {
		cfg.Qdrant.Quantization = QuantizationScalar
	}
	if cfg.Qdrant.MaxRetries == 0 {
		cfg.Qdrant.MaxRetries = 3
	}
	if cfg.Qdrant.RetryBackoff == 0 {
		cfg.Qdrant.RetryBackoff = Duration(1e9)
	}
	if cfg.Qdrant.CircuitBreaker == 0 {
		cfg.Qdrant.CircuitBreaker = 5
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 10000
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = Duration(300 * 1e9)
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// repositoryLabel derives a workspace's repository name from its root
// directory when configuration doesn't name one explicitly.
func repositoryLabel(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return filepath.Base(root)
	}
	return filepath.Base(abs)
}
