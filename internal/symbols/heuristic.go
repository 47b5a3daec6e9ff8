package symbols

import (
	"regexp"
	"strings"

	"github.com/coderune/rune/pkg/types"
)

// keyPattern is a compiled regex paired with a confidence weight: the
// highest-weight match wins, picking between a quoted-key and a
// bare-key reading of the same line.
type keyPattern struct {
	weight float64
	regex  *regexp.Regexp
}

var heuristicPatterns = []keyPattern{
	// "key": value  (JSON, or YAML/TOML with a quoted key)
	{weight: 0.9, regex: regexp.MustCompile(`^\s*"([^"]+)"\s*:\s*\S`)},
	// key: value  (YAML)
	{weight: 0.7, regex: regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_.-]*)\s*:\s*\S`)},
	// key = value  (TOML)
	{weight: 0.7, regex: regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_.-]*)\s*=\s*\S`)},
	// [section] or [[array_of_tables]]  (TOML)
	{weight: 0.6, regex: regexp.MustCompile(`^\s*\[\[?([A-Za-z0-9_.-]+)\]?\]\s*$`)},
}

// extractHeuristic scans content line by line for key/value pairs (at
// any indentation) and table headers, emitting each as a variable symbol. It does
// not attempt to track nesting depth: every assignment is worth finding
// through a symbol-name search, a structural outline is not the goal.
func extractHeuristic(file types.File, content []byte) []types.Symbol {
	lines := strings.Split(string(content), "\n")
	var symbols []types.Symbol

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		var bestName string
		var bestWeight float64
		for _, p := range heuristicPatterns {
			m := p.regex.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if p.weight > bestWeight {
				bestWeight = p.weight
				bestName = m[1]
			}
		}
		if bestName == "" {
			continue
		}

		symbols = append(symbols, types.Symbol{
			Name:      bestName,
			Kind:      types.SymbolVariable,
			Path:      file.Path,
			RelPath:   file.RelPath,
			Language:  file.Language,
			StartLine: i + 1,
			EndLine:   i + 1,
		})
	}
	return symbols
}
