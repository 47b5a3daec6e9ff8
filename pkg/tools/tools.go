// Package tools exposes the engine's operations as MCP tools: search,
// index_status, reindex, and configure. The handlers here are a thin
// serialization boundary; the protocol framing itself belongs to the
// host process.
package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/coderune/rune/internal/engine"
	"github.com/coderune/rune/internal/logging"
	"github.com/coderune/rune/pkg/types"
)

// Server wraps an MCP server with rune's tool set registered.
type Server struct {
	mcp    *mcp.Server
	engine *engine.Engine
}

// Config names the MCP implementation advertised to clients.
type Config struct {
	Name    string
	Version string
}

// NewServer builds an MCP server exposing eng's operations.
func NewServer(cfg Config, eng *engine.Engine) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("tools: engine is required")
	}
	if cfg.Name == "" {
		cfg.Name = "rune"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	s := &Server{
		mcp:    mcp.NewServer(&mcp.Implementation{Name: cfg.Name, Version: cfg.Version}, nil),
		engine: eng,
	}
	s.registerTools()
	return s, nil
}

// Run serves tool calls over stdio until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

type searchInput struct {
	Query        string   `json:"query" jsonschema:"required,Search query text"`
	Mode         string   `json:"mode,omitempty" jsonschema:"Search mode: literal, regex, symbol, semantic, or hybrid (default hybrid)"`
	Repositories []string `json:"repositories,omitempty" jsonschema:"Restrict results to these repository labels"`
	FilePatterns []string `json:"file_patterns,omitempty" jsonschema:"Glob patterns matched against result paths, e.g. *.py"`
	Limit        int      `json:"limit,omitempty" jsonschema:"Maximum results (default 50, max 500)"`
	Offset       int      `json:"offset,omitempty" jsonschema:"Results to skip, for pagination"`
}

type searchResult struct {
	Path          string   `json:"path"`
	Repository    string   `json:"repository"`
	LineNumber    int      `json:"line_number"`
	Column        int      `json:"column,omitempty"`
	Content       string   `json:"content"`
	ContextBefore []string `json:"context_before,omitempty"`
	ContextAfter  []string `json:"context_after,omitempty"`
	Score         float64  `json:"score"`
	MatchType     string   `json:"match_type"`
	Symbol        string   `json:"symbol,omitempty"`
}

type searchOutput struct {
	Results      []searchResult `json:"results"`
	TotalMatches int            `json:"total_matches"`
	SearchTimeMs int64          `json:"search_time_ms"`
	Degraded     bool           `json:"degraded,omitempty"`
}

type indexStatusOutput struct {
	IndexedFiles   int64    `json:"indexed_files"`
	TotalSymbols   int64    `json:"total_symbols"`
	IndexSizeBytes int64    `json:"index_size_bytes"`
	CacheSizeBytes int64    `json:"cache_size_bytes"`
	WatcherRunning bool     `json:"watcher_running"`
	LastIndexAt    string   `json:"last_index_at,omitempty"`
	Degraded       []string `json:"degraded,omitempty"`
}

type reindexInput struct {
	Repositories []string `json:"repositories,omitempty" jsonschema:"Repositories to reindex; all when empty"`
}

type reindexOutput struct {
	FilesIndexed     int64 `json:"files_indexed"`
	SymbolsExtracted int64 `json:"symbols_extracted"`
	TimeTakenMs      int64 `json:"time_taken_ms"`
}

type configureInput struct {
	FuzzyEnabled     *bool    `json:"fuzzy_enabled,omitempty" jsonschema:"Enable literal-mode fuzzy fallback"`
	FuzzyThreshold   *float64 `json:"fuzzy_threshold,omitempty" jsonschema:"Minimum normalized similarity for fuzzy variants"`
	FuzzyMaxDistance *int     `json:"fuzzy_max_distance,omitempty" jsonschema:"Maximum Levenshtein distance for fuzzy variants"`
	DefaultLimit     *int     `json:"default_limit,omitempty" jsonschema:"Default result limit"`
	MaxLimit         *int     `json:"max_limit,omitempty" jsonschema:"Hard cap on result limit"`
	ContextLines     *int     `json:"context_lines,omitempty" jsonschema:"Context lines around each result"`
	RRFConstant      *int     `json:"rrf_constant,omitempty" jsonschema:"Rank fusion constant for hybrid mode"`
}

type configureOutput struct {
	Success bool `json:"success"`
	Config  any  `json:"config"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Search indexed workspaces. Modes: literal (full text), regex, symbol (definitions), semantic (similarity), hybrid (fused ranking, default).",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Report index statistics: file and symbol counts, on-disk size, cache size, watcher status.",
	}, s.handleIndexStatus)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "reindex",
		Description: "Purge file metadata for the given repositories (or all) and re-walk their workspaces.",
	}, s.handleReindex)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "configure",
		Description: "Update runtime-tunable search configuration and return the effective config.",
	}, s.handleConfigure)
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, in searchInput) (*mcp.CallToolResult, searchOutput, error) {
	ctx = logging.WithRequestID(ctx, uuid.NewString())
	if in.Query == "" {
		return nil, searchOutput{}, fmt.Errorf("query is required")
	}
	mode, err := parseMode(in.Mode)
	if err != nil {
		return nil, searchOutput{}, err
	}

	reply, err := s.engine.Search(ctx, types.Query{
		Text:         in.Query,
		Mode:         mode,
		Repositories: in.Repositories,
		FilePatterns: in.FilePatterns,
		Limit:        in.Limit,
		Offset:       in.Offset,
	})
	if err != nil {
		return nil, searchOutput{}, err
	}

	out := searchOutput{
		Results:      make([]searchResult, len(reply.Results)),
		TotalMatches: reply.TotalMatches,
		SearchTimeMs: reply.SearchTimeMs,
		Degraded:     reply.Degraded,
	}
	for i, r := range reply.Results {
		out.Results[i] = searchResult{
			Path:          r.Path,
			Repository:    r.Repository,
			LineNumber:    r.LineNumber,
			Column:        r.Column,
			Content:       r.Snippet,
			ContextBefore: r.ContextBefore,
			ContextAfter:  r.ContextAfter,
			Score:         r.Score,
			MatchType:     string(r.MatchType),
			Symbol:        r.SymbolName,
		}
	}
	return nil, out, nil
}

func (s *Server) handleIndexStatus(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, indexStatusOutput, error) {
	stats, err := s.engine.Stats(ctx)
	if err != nil {
		return nil, indexStatusOutput{}, err
	}
	out := indexStatusOutput{
		IndexedFiles:   stats.IndexedFiles,
		TotalSymbols:   stats.TotalSymbols,
		IndexSizeBytes: stats.IndexSizeBytes,
		CacheSizeBytes: stats.CacheSizeBytes,
		WatcherRunning: stats.WatcherRunning,
		Degraded:       stats.Degraded,
	}
	if !stats.LastIndexAt.IsZero() {
		out.LastIndexAt = stats.LastIndexAt.Format(time.RFC3339)
	}
	return nil, out, nil
}

func (s *Server) handleReindex(ctx context.Context, _ *mcp.CallToolRequest, in reindexInput) (*mcp.CallToolResult, reindexOutput, error) {
	ctx = logging.WithRequestID(ctx, uuid.NewString())
	reply, err := s.engine.Reindex(ctx, in.Repositories)
	if err != nil {
		return nil, reindexOutput{}, err
	}
	return nil, reindexOutput{
		FilesIndexed:     reply.FilesIndexed,
		SymbolsExtracted: reply.SymbolsExtracted,
		TimeTakenMs:      reply.TimeTakenMs,
	}, nil
}

func (s *Server) handleConfigure(ctx context.Context, _ *mcp.CallToolRequest, in configureInput) (*mcp.CallToolResult, configureOutput, error) {
	cfg, err := s.engine.Configure(ctx, engine.ConfigPatch{
		FuzzyEnabled:     in.FuzzyEnabled,
		FuzzyThreshold:   in.FuzzyThreshold,
		FuzzyMaxDistance: in.FuzzyMaxDistance,
		DefaultLimit:     in.DefaultLimit,
		MaxLimit:         in.MaxLimit,
		ContextLines:     in.ContextLines,
		RRFConstant:      in.RRFConstant,
	})
	if err != nil {
		return nil, configureOutput{}, err
	}
	return nil, configureOutput{Success: true, Config: cfg}, nil
}

// parseMode validates the wire-level mode string, defaulting to hybrid.
func parseMode(mode string) (types.Mode, error) {
	switch types.Mode(mode) {
	case "":
		return types.ModeHybrid, nil
	case types.ModeLiteral, types.ModeRegex, types.ModeSymbol, types.ModeSemantic, types.ModeHybrid:
		return types.Mode(mode), nil
	default:
		return "", fmt.Errorf("unknown search mode %q", mode)
	}
}
