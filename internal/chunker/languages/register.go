package languages

import "github.com/coderune/rune/internal/chunker"

// RegisterAll registers every AST-backed grammar rune ships with. JSON,
// YAML, and TOML are intentionally absent: data-description formats have
// no function or class boundaries to chunk around, so they and anything
// unregistered fall back to the chunker's line-budget path.
func RegisterAll(r *chunker.Registry) {
	registerGo(r)
	registerJavaScript(r)
	registerTypeScript(r)
	registerPython(r)
	registerJava(r)
	registerC(r)
	registerCPP(r)
	registerCSharp(r)
	registerRuby(r)
	registerPHP(r)
	registerHTML(r)
	registerCSS(r)
}
