// Package ignore decides which workspace paths the walker and watcher
// skip. Rules come from the workspace's own ignore files (.gitignore,
// .runeignore) plus the engine's built-in exclusions, normalized into
// doublestar globs matched against root-relative paths.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// RuleSet is a compiled list of exclusion globs. The zero value
// excludes nothing.
type RuleSet struct {
	globs []string
}

// Load builds a RuleSet for a workspace root: every readable file named
// in fileNames contributes its patterns, then extra (the engine's
// built-ins and any configured excludes) is appended. A root with no
// ignore files at all still gets the extras.
func Load(root string, fileNames []string, extra ...string) (*RuleSet, error) {
	rs := &RuleSet{}
	for _, name := range fileNames {
		if err := rs.addFile(filepath.Join(root, name)); err != nil {
			return nil, err
		}
	}
	rs.Add(extra...)
	return rs, nil
}

// Add appends raw gitignore-style patterns to the rule set. Negations
// and lines that normalize to an invalid glob are dropped: one odd line
// in a user's ignore file must not take down a workspace walk.
func (rs *RuleSet) Add(patterns ...string) {
	for _, p := range patterns {
		glob := normalize(p)
		if glob == "" || !doublestar.ValidatePattern(glob) {
			continue
		}
		rs.globs = append(rs.globs, glob)
	}
}

// Match reports whether relPath (slash-separated, relative to the
// workspace root) is excluded.
func (rs *RuleSet) Match(relPath string) bool {
	for _, glob := range rs.globs {
		if ok, _ := doublestar.Match(glob, relPath); ok {
			return true
		}
	}
	return false
}

// Len returns how many rules are active, for logging at startup.
func (rs *RuleSet) Len() int {
	return len(rs.globs)
}

func (rs *RuleSet) addFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		rs.Add(scanner.Text())
	}
	return scanner.Err()
}

// normalize turns one gitignore-style line into a doublestar glob over
// root-relative paths, or "" for lines that contribute no rule
// (blanks, comments, negations).
func normalize(line string) string {
	line = strings.TrimRight(line, " \t")
	switch {
	case line == "", strings.HasPrefix(line, "#"):
		return ""
	case strings.HasPrefix(line, "!"):
		// Re-inclusion rules are not supported; matching gitignore's
		// full precedence model is not worth it for an index exclude
		// list, and silently excluding less is the safe direction.
		return ""
	}

	anchored := strings.HasPrefix(line, "/")
	glob := strings.TrimPrefix(line, "/")
	wildcard := strings.ContainsAny(glob, "*?[")

	// "dir/" names a directory: everything beneath it is excluded.
	if strings.HasSuffix(glob, "/") {
		glob += "**"
	}

	// An unanchored pattern with no separator matches at any depth,
	// like gitignore's "name matches in every directory" rule.
	if !anchored && !strings.Contains(strings.TrimSuffix(glob, "/**"), "/") {
		glob = "**/" + glob
	}

	// A bare name could be a file or a directory; cover the directory
	// reading too unless the pattern already reaches into children.
	if !strings.HasSuffix(glob, "/**") && !wildcard {
		glob += "{,/**}"
	}

	return glob
}
