package chunker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/coderune/rune/pkg/types"
)

// Chunker splits a file's content into Chunks, preferring tree-sitter
// definition boundaries and falling back to a fixed line budget for
// languages with no registered grammar (JSON, YAML, TOML, and anything
// unrecognized).
type Chunker struct {
	registry *Registry
	minLines int
	maxLines int
}

// New returns a Chunker. maxLines is the line-budget fallback's window
// size (60 when not positive) and the span above which an AST capture is
// split; minLines is stored but neither chunking path reads it.
func New(registry *Registry, minLines, maxLines int) *Chunker {
	return &Chunker{registry: registry, minLines: minLines, maxLines: maxLines}
}

// Chunk splits file's content according to lang, using the registered
// tree-sitter grammar if one exists and the line-budget fallback
// otherwise.
func (c *Chunker) Chunk(ctx context.Context, file types.File, content []byte) ([]types.Chunk, error) {
	spec, ok := c.registry.Lookup(file.Language)
	if !ok {
		return c.chunkByLineBudget(file, content, "")
	}

	captures, err := parseCaptures(ctx, spec, content)
	if err != nil {
		return nil, fmt.Errorf("chunker: parse %s: %w", file.Path, err)
	}
	if len(captures) == 0 {
		return c.chunkByLineBudget(file, content, "")
	}

	lines := strings.Split(string(content), "\n")
	chunks := make([]types.Chunk, 0, len(captures))
	for _, cap := range captures {
		span := cap.endLine - cap.startLine + 1
		if span > c.maxLines {
			split, err := c.chunkByLineBudget(file, []byte(joinLines(lines, cap.startLine, cap.endLine)), cap.name)
			if err != nil {
				return nil, err
			}
			for i := range split {
				split[i].StartLine += cap.startLine - 1
				split[i].EndLine += cap.startLine - 1
				split[i].ID = chunkID(file.Path, split[i].StartLine, split[i].EndLine)
			}
			chunks = append(chunks, split...)
			continue
		}
		chunks = append(chunks, types.Chunk{
			ID:         chunkID(file.Path, cap.startLine, cap.endLine),
			Path:       file.Path,
			RelPath:    file.RelPath,
			Repository: file.Repository,
			Language:   file.Language,
			StartLine:  cap.startLine,
			EndLine:    cap.endLine,
			Content:    joinLines(lines, cap.startLine, cap.endLine),
			SymbolName: cap.name,
		})
	}
	return chunks, nil
}

// chunkByLineBudget splits content into non-overlapping windows of
// roughly c.maxLines (never exceeding it), the fallback path for
// languages with no tree-sitter grammar and for oversized AST captures.
func (c *Chunker) chunkByLineBudget(file types.File, content []byte, symbolName string) ([]types.Chunk, error) {
	lines := strings.Split(string(content), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil, nil
	}

	budget := c.maxLines
	if budget <= 0 {
		budget = 60
	}

	var chunks []types.Chunk
	for start := 0; start < len(lines); start += budget {
		end := start + budget
		if end > len(lines) {
			end = len(lines)
		}
		startLine := start + 1
		endLine := end
		chunks = append(chunks, types.Chunk{
			ID:         chunkID(file.Path, startLine, endLine),
			Path:       file.Path,
			RelPath:    file.RelPath,
			Repository: file.Repository,
			Language:   file.Language,
			StartLine:  startLine,
			EndLine:    endLine,
			Content:    strings.Join(lines[start:end], "\n"),
			SymbolName: symbolName,
		})
	}
	return chunks, nil
}

type capture struct {
	name      string
	nodeType  string
	startLine int
	endLine   int
	startByte uint32
	endByte   uint32
}

// Definition is one tree-sitter-captured top-level definition: a
// function, method, class, or similar construct matched by a
// LanguageSpec's query. internal/symbols maps NodeType to a
// pkg/types.SymbolKind; the chunker itself only cares about the span.
type Definition struct {
	Name      string
	NodeType  string // tree-sitter node type, e.g. "function_declaration"
	StartLine int
	EndLine   int
}

// ParseDefinitions runs the registry's query for lang against content and
// returns its top-level definitions. internal/symbols calls this with the
// same registry the Chunker uses so both packages walk the grammar the
// same way, rather than each maintaining its own node-type table.
func ParseDefinitions(ctx context.Context, registry *Registry, lang types.Language, content []byte) ([]Definition, bool, error) {
	spec, ok := registry.Lookup(lang)
	if !ok {
		return nil, false, nil
	}
	captures, err := parseCaptures(ctx, spec, content)
	if err != nil {
		return nil, true, err
	}
	defs := make([]Definition, len(captures))
	for i, c := range captures {
		defs[i] = Definition{Name: c.name, NodeType: c.nodeType, StartLine: c.startLine, EndLine: c.endLine}
	}
	return defs, true, nil
}

// parseCaptures runs the language's query against content and returns the
// deduplicated top-level matches, outer nodes winning over nested ones.
func parseCaptures(ctx context.Context, spec *LanguageSpec, content []byte) ([]capture, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(spec.Language)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	q, err := sitter.NewQuery([]byte(spec.Query), spec.Language)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())

	var captures []capture
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		var chunkNode *sitter.Node
		var name string
		for _, mc := range m.Captures {
			switch q.CaptureNameForId(mc.Index) {
			case "chunk":
				chunkNode = mc.Node
			case "name":
				name = mc.Node.Content(content)
			}
		}
		if chunkNode == nil {
			continue
		}
		captures = append(captures, capture{
			name:      name,
			nodeType:  chunkNode.Type(),
			startLine: int(chunkNode.StartPoint().Row) + 1,
			endLine:   int(chunkNode.EndPoint().Row) + 1,
			startByte: chunkNode.StartByte(),
			endByte:   chunkNode.EndByte(),
		})
	}

	return dedupCaptures(captures), nil
}

// dedupCaptures keeps only the outermost capture when two overlap, the
// the way an outer capture shadows nested
// definitions (e.g. a method inside a class both matching @chunk).
func dedupCaptures(caps []capture) []capture {
	if len(caps) <= 1 {
		return caps
	}
	sort.Slice(caps, func(i, j int) bool {
		if caps[i].startByte != caps[j].startByte {
			return caps[i].startByte < caps[j].startByte
		}
		return (caps[i].endByte - caps[i].startByte) > (caps[j].endByte - caps[j].startByte)
	})

	var out []capture
	var lastEnd uint32
	for _, c := range caps {
		if len(out) == 0 || c.startByte >= lastEnd {
			out = append(out, c)
			lastEnd = c.endByte
		}
	}
	return out
}

func joinLines(lines []string, startLine, endLine int) string {
	start := startLine - 1
	if start < 0 {
		start = 0
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}
	if start >= endLine {
		return ""
	}
	return strings.Join(lines[start:endLine], "\n")
}

// chunkID is the deterministic sha256(path, start_line, end_line) id
// pkg/types.Chunk documents.
func chunkID(path string, startLine, endLine int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d", path, startLine, endLine)))
	return hex.EncodeToString(sum[:])
}
