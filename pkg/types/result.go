package types

// MatchType classifies how a Result was produced, independent of which
// Mode the caller requested (Hybrid requests tag every fused Result
// with MatchHybrid).
type MatchType string

const (
	MatchExact    MatchType = "Exact"
	MatchFuzzy    MatchType = "Fuzzy"
	MatchSymbol   MatchType = "Symbol"
	MatchSemantic MatchType = "Semantic"
	MatchHybrid   MatchType = "Hybrid"
)

// Result is a single match returned from any search mode, normalized to a
// common shape so the tool-call surface doesn't need to branch on mode.
type Result struct {
	Path          string
	RelPath       string
	Repository    string
	Language      Language
	LineNumber    int // 1-based line the match anchors to
	Column        int // 1-based column the match starts at, 0 if not applicable
	StartLine     int // chunk/match start line, for symbol/semantic/hybrid
	EndLine       int
	Score         float64 // mode-specific; for hybrid this is the fused RRF score
	Snippet       string
	ContextBefore []string // up to N lines preceding Snippet
	ContextAfter  []string // up to N lines following Snippet
	SymbolName    string   // populated for symbol and hybrid results, when known
	Mode          Mode     // which mode actually produced this result (hybrid fuses several)
	MatchType     MatchType
}

// Key identifies a result for deduplication purposes: (path, line_number).
type Key struct {
	Path       string
	LineNumber int
}

// DedupeKey returns the (path, line_number) key used by hybrid fusion
// to collapse duplicate hits across search modes.
func (r Result) DedupeKey() Key {
	return Key{Path: r.Path, LineNumber: r.LineNumber}
}
