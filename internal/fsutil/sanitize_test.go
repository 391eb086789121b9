package fsutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Educacion", "Educacion"},
		{"slashes and colons", "Guerra/civil:1936", "Guerra-civil-1936"},
		{"wildcards", "a*b?c", "a-b-c"},
		{"collapses runs", "a//b  c", "a-b-c"},
		{"trims edges", "/revista/", "revista"},
		{"whitespace becomes dash", "La Gaceta de Madrid", "La-Gaceta-de-Madrid"},
		{"only invalid chars", `\/*?:"<>|`, ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}

func TestSanitizeNoDoubleDashes(t *testing.T) {
	got := Sanitize("a/:*b")
	require.NotContains(t, got, "--")
	require.Equal(t, "a-b", got)
}

func TestSanitizeOr(t *testing.T) {
	require.Equal(t, "unknown_issn", SanitizeOr("", "unknown_issn"))
	require.Equal(t, "unknown_collection", SanitizeOr("///", "unknown_collection"))
	require.Equal(t, "0210-1521", SanitizeOr("0210-1521", "unknown_issn"))
}
