// Package walker performs the initial recursive scan of a workspace,
// discovering the files the indexing pipeline should hash, chunk, and
// embed, filtered down to indexable source files.
package walker

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/coderune/rune/internal/ignore"
	"github.com/coderune/rune/pkg/types"
)

// defaultExcludes are applied in addition to whatever the workspace's own
// ignore files contribute: VCS metadata, dependency caches, and build
// output that is never useful to search over.
var defaultExcludes = []string{
	"**/.git/**",
	"**/.svn/**",
	"**/.hg/**",
	"**/node_modules/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/.venv/**",
	"**/venv/**",
	"**/.idea/**",
	"**/.vscode/**",
	"**/dist/**",
	"**/build/**",
	"**/target/**",
	"**/.rune/**",
	"**/.rune_cache/**",
}

// ignoreFileNames are read, if present, from the workspace root to
// supplement defaultExcludes with project-specific exclusions.
var ignoreFileNames = []string{".gitignore", ".runeignore"}

// Walker discovers indexable files under a workspace root.
type Walker struct {
	root        string
	repository  string
	maxFileSize int64
	matcher     *ignore.RuleSet
}

// New builds a Walker for root, loading .gitignore/.runeignore patterns
// and merging in the built-in exclusions plus any extra excludes from
// configuration.
func New(root, repository string, maxFileSizeBytes int64, extraExcludes []string) (*Walker, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	rules, err := ignore.Load(absRoot, ignoreFileNames, append(defaultExcludes, extraExcludes...)...)
	if err != nil {
		return nil, err
	}

	return &Walker{
		root:        absRoot,
		repository:  repository,
		maxFileSize: maxFileSizeBytes,
		matcher:     rules,
	}, nil
}

// Walk traverses the workspace and calls fn for every discovered,
// non-excluded, non-binary file within the size budget. Walk stops and
// returns ctx.Err() if ctx is canceled mid-traversal.
func (w *Walker) Walk(ctx context.Context, fn func(types.File) error) error {
	return filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return nil // unreadable entry: skip rather than abort the walk
		}

		if path == w.root {
			return nil
		}

		relPath, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		slashRel := filepath.ToSlash(relPath)

		if d.IsDir() {
			if w.matcher.Match(slashRel) || w.matcher.Match(slashRel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if w.matcher.Match(slashRel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() == 0 || info.Size() > w.maxFileSize {
			return nil
		}

		binary, err := looksBinary(path)
		if err != nil || binary {
			return nil
		}

		file := types.File{
			Path:       path,
			RelPath:    slashRel,
			Repository: w.repository,
			Language:   types.LanguageForExtension(filepath.Ext(path)),
			SizeBytes:  info.Size(),
			ModTime:    info.ModTime(),
		}
		return fn(file)
	})
}

// Root returns the absolute workspace root this walker covers.
func (w *Walker) Root() string {
	return w.root
}

// Repository returns the repository label files under this walker's root
// are tagged with.
func (w *Walker) Repository() string {
	return w.repository
}

// Contains reports whether path falls under this walker's root.
func (w *Walker) Contains(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !filepath.IsAbs(rel) && rel != "." && !isDotDotPrefixed(rel)
}

func isDotDotPrefixed(rel string) bool {
	return rel == ".." || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}

// FileFor applies the walker's exclusion, size, and binary filters to a
// single path, so watcher events go through the same gate the initial
// walk does. ok is false when the path should not be indexed.
func (w *Walker) FileFor(path string) (types.File, bool) {
	relPath, err := filepath.Rel(w.root, path)
	if err != nil {
		return types.File{}, false
	}
	slashRel := filepath.ToSlash(relPath)

	if w.matcher.Match(slashRel) {
		return types.File{}, false
	}

	info, err := os.Lstat(path)
	if err != nil || info.IsDir() || info.Mode()&fs.ModeSymlink != 0 {
		return types.File{}, false
	}
	if info.Size() == 0 || info.Size() > w.maxFileSize {
		return types.File{}, false
	}

	binary, err := looksBinary(path)
	if err != nil || binary {
		return types.File{}, false
	}

	return types.File{
		Path:       path,
		RelPath:    slashRel,
		Repository: w.repository,
		Language:   types.LanguageForExtension(filepath.Ext(path)),
		SizeBytes:  info.Size(),
		ModTime:    info.ModTime(),
	}, true
}

// binaryProbeSize is how much of a file's head is inspected for a null
// byte before it is treated as binary and skipped.
const binaryProbeSize = 8000

// looksBinary applies the same heuristic git and most text editors use:
// a null byte anywhere in the first chunk of the file means binary.
func looksBinary(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, binaryProbeSize)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false, err
	}
	for _, b := range buf[:n] {
		if b == 0 {
			return true, nil
		}
	}
	return false, nil
}
