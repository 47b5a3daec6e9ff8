package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"login", "logln", 1},
		{"user", "usre", 2},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, levenshtein(tt.a, tt.b), "levenshtein(%q, %q)", tt.a, tt.b)
	}
}

func TestSimilarity(t *testing.T) {
	require.Equal(t, 1.0, similarity("abc", "abc", 0))
	require.InDelta(t, 0.571, similarity("kitten", "sitting", 3), 0.001)
	require.InDelta(t, 0.8, similarity("login", "logln", 1), 0.001)
	require.Equal(t, 1.0, similarity("", "", 0))
}

func TestJaroWinkler(t *testing.T) {
	require.Equal(t, 1.0, jaroWinkler("login", "login"))
	require.Equal(t, 0.0, jaroWinkler("abc", ""))
	require.Equal(t, 0.0, jaroWinkler("abc", "xyz"))

	// Shared prefixes score higher than the same edits elsewhere.
	require.Greater(t, jaroWinkler("loginuser", "loginusre"), jaroWinkler("loginuser", "ologinuser"))
	require.Greater(t, jaroWinkler("martha", "marhta"), 0.9)
}

func TestSymbolScore(t *testing.T) {
	require.Equal(t, 1.0, symbolScore("loginUser", "loginUser", tokenize("loginUser")))
	require.Equal(t, 1.0, symbolScore("LoginUser", "loginuser", tokenize("loginuser")))
	require.Equal(t, 0.7, symbolScore("loginUserSession", "login", tokenize("login")))
	require.Equal(t, 0.5, symbolScore("doLogin", "login", tokenize("login")))
	require.Equal(t, 0.0, symbolScore("logout", "fetch", tokenize("fetch")))
}

func TestTokenize(t *testing.T) {
	require.Equal(t, []string{"database", "connection", "pooling"}, tokenize("database connection pooling"))
	require.Equal(t, []string{"login_user"}, tokenize("login_user"))
	require.Equal(t, []string{"foo", "bar"}, tokenize("foo.bar()"))
	require.Empty(t, tokenize("  ,;  "))
}
