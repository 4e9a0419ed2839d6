// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  Set
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, GeminiAPIKey, "  gk_abc123  \n")
				writeFile(t, dir, GoogleAPIKey, "AIza-xyz")
				writeFile(t, dir, GoogleCSEID, "cx-123\n")
				return dir
			},
			want: Set{
				GeminiAPIKey: "gk_abc123",
				GoogleAPIKey: "AIza-xyz",
				GoogleCSEID:  "cx-123",
			},
		},
		{
			name: "returns empty set for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: Set{},
		},
		{
			name: "skips empty files dotfiles and subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, RedisPassword, "valid")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: Set{RedisPassword: "valid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files without permission bits")
	}
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")
	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "value123", got["good-key"])
	assert.NotContains(t, got, "bad-key")
}

func TestResolve(t *testing.T) {
	set := Set{GeminiAPIKey: "from-file"}
	t.Setenv("DR_TEST_PRIMARY", "")
	t.Setenv("DR_TEST_SECONDARY", " from-env ")

	assert.Equal(t, "explicit", set.Resolve("explicit", GeminiAPIKey, "DR_TEST_SECONDARY"))
	assert.Equal(t, "from-env", set.Resolve("", GeminiAPIKey, "DR_TEST_PRIMARY", "DR_TEST_SECONDARY"))
	assert.Equal(t, "from-file", set.Resolve("", GeminiAPIKey, "DR_TEST_PRIMARY"))
	assert.Empty(t, set.Resolve("", GoogleCSEID))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Set{"c": "3", "a": "1", "b": "2"}.Keys())
	assert.Empty(t, Set{}.Keys())
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
