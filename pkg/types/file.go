// Package types holds the domain types shared across the indexing and
// search packages: files, chunks, symbols, queries, and results.
package types

import (
	"bytes"
	"strings"
	"time"
)

// Language is a closed set of source languages the engine can chunk and
// extract symbols from.
type Language string

const (
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangPython     Language = "python"
	LangJava       Language = "java"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangCSharp     Language = "csharp"
	LangRuby       Language = "ruby"
	LangPHP        Language = "php"
	LangHTML       Language = "html"
	LangCSS        Language = "css"
	LangJSON       Language = "json"
	LangYAML       Language = "yaml"
	LangTOML       Language = "toml"
	LangRust       Language = "rust"
	LangUnknown    Language = "unknown"
)

// extensionLanguage maps file extensions (including the leading dot) to
// their language. Rust has no tree-sitter grammar wired (see the symbols
// package) but is still recognized so it gets the line-budget chunker
// instead of falling through to LangUnknown.
var extensionLanguage = map[string]Language{
	".go":    LangGo,
	".js":    LangJavaScript,
	".jsx":   LangJavaScript,
	".mjs":   LangJavaScript,
	".ts":    LangTypeScript,
	".tsx":   LangTypeScript,
	".py":    LangPython,
	".java":  LangJava,
	".c":     LangC,
	".h":     LangC,
	".cpp":   LangCPP,
	".cc":    LangCPP,
	".hpp":   LangCPP,
	".cs":    LangCSharp,
	".rb":    LangRuby,
	".php":   LangPHP,
	".html":  LangHTML,
	".htm":   LangHTML,
	".css":   LangCSS,
	".json":  LangJSON,
	".yaml":  LangYAML,
	".yml":   LangYAML,
	".toml":  LangTOML,
	".rs":    LangRust,
}

// LanguageForExtension resolves a file extension (as returned by
// filepath.Ext, including the leading dot) to a Language. Unrecognized
// extensions resolve to LangUnknown, which still gets indexed via the
// line-budget chunker and a plain-text fallback.
func LanguageForExtension(ext string) Language {
	if lang, ok := extensionLanguage[ext]; ok {
		return lang
	}
	return LangUnknown
}

// LanguageForShebang inspects an interpreter line for files whose
// extension (or lack of one) gave no answer. Only languages in the
// closed set are recognized; shell scripts and the rest stay
// LangUnknown and index as plain text.
func LanguageForShebang(content []byte) Language {
	if !bytes.HasPrefix(content, []byte("#!")) {
		return LangUnknown
	}
	line := content
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		line = content[:i]
	}

	interpreter := string(line)
	switch {
	case strings.Contains(interpreter, "python"):
		return LangPython
	case strings.Contains(interpreter, "node"):
		return LangJavaScript
	case strings.Contains(interpreter, "ruby"):
		return LangRuby
	case strings.Contains(interpreter, "php"):
		return LangPHP
	default:
		return LangUnknown
	}
}

// File is a single indexed file within a workspace.
type File struct {
	Path         string    // absolute path on disk
	RelPath      string    // path relative to the workspace root
	Repository   string    // repository name the file belongs to
	Language     Language
	SizeBytes    int64
	ModTime      time.Time
	ContentHash  [32]byte // blake3 digest of file content
	IndexedAt    time.Time
}
