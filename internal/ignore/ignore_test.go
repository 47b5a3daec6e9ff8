package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"", ""},
		{"# build artifacts", ""},
		{"!keep.go", ""},
		{"*.log", "**/*.log"},
		{"node_modules/", "**/node_modules/**"},
		{"/dist/", "dist/**"},
		{"build", "**/build{,/**}"},
		{"docs/internal.md", "docs/internal.md{,/**}"},
		{"/secrets.env", "secrets.env{,/**}"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, normalize(tt.line), "line %q", tt.line)
	}
}

func TestRuleSet_MatchDepth(t *testing.T) {
	var rs RuleSet
	rs.Add("*.log", "node_modules/", "/coverage")

	require.True(t, rs.Match("server.log"))
	require.True(t, rs.Match("deep/nested/server.log"))
	require.True(t, rs.Match("node_modules/pkg/index.js"))
	require.True(t, rs.Match("sub/node_modules/pkg/index.js"))
	require.True(t, rs.Match("coverage"))
	require.True(t, rs.Match("coverage/html/index.html"))

	require.False(t, rs.Match("src/main.go"))
	require.False(t, rs.Match("sub/coverage.go"))
}

func TestLoad_ReadsWorkspaceIgnoreFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"),
		[]byte("# deps\nnode_modules/\n*.tmp\n!src/\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".runeignore"),
		[]byte("generated/\n"), 0o644))

	rs, err := Load(root, []string{".gitignore", ".runeignore"}, "**/.git/**")
	require.NoError(t, err)

	require.True(t, rs.Match("node_modules/left-pad/index.js"))
	require.True(t, rs.Match("scratch.tmp"))
	require.True(t, rs.Match("generated/api.go"))
	require.True(t, rs.Match(".git/HEAD"))
	require.False(t, rs.Match("src/main.go"), "negations drop the rule rather than excluding")
}

func TestLoad_MissingFilesAreFine(t *testing.T) {
	rs, err := Load(t.TempDir(), []string{".gitignore"}, "**/vendor/**")
	require.NoError(t, err)
	require.Equal(t, 1, rs.Len())
	require.True(t, rs.Match("vendor/lib/lib.go"))
}

func TestRuleSet_DropsInvalidGlobs(t *testing.T) {
	var rs RuleSet
	rs.Add("[unclosed", "*.ok")
	require.Equal(t, 1, rs.Len())
	require.True(t, rs.Match("file.ok"))
}
