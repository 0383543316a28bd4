package configstore

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "config"))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func countOccurrences(t *testing.T, path, line string) int {
	t.Helper()
	count := 0
	for _, l := range strings.Split(readFile(t, path), "\n") {
		if normalize(l) == normalize(line) {
			count++
		}
	}
	return count
}

func TestContains_MissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "does-not-exist"))

	present, err := s.Contains("anything")
	require.NoError(t, err, "missing file is absent, not an error")
	assert.False(t, present)
}

func TestContains_FixedStringMatch(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Append(
		`export PATH="/opt/shared/bin:$PATH"`,
		"# comment with regex chars .* [a-z]",
	))

	tests := []struct {
		name    string
		pattern string
		want    bool
	}{
		{"exact substring", "/opt/shared/bin", true},
		{"full line", `export PATH="/opt/shared/bin:$PATH"`, true},
		{"regex metacharacters are literal", ".* [a-z]", true},
		{"regex pattern does not match as regex", "e.port", false},
		{"absent text", "/usr/local/other", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			present, err := s.Contains(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, present)
		})
	}
}

func TestContains_NormalizedWhitespace(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Append("Host\tml007   extra"))

	present, err := s.Contains("Host ml007")
	require.NoError(t, err)
	assert.True(t, present, "tabs and runs of spaces compare equal to single spaces")
}

func TestContains_DoesNotMutate(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Append("line one"))
	before := readFile(t, s.Path())

	_, err := s.Contains("line")
	require.NoError(t, err)
	_, err = s.Contains("missing")
	require.NoError(t, err)

	assert.Equal(t, before, readFile(t, s.Path()))
}

func TestContainsLine_WholeLineOnly(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Append("export PATH=/opt/shared/bin:$PATH # and more"))

	present, err := s.ContainsLine("export PATH=/opt/shared/bin:$PATH")
	require.NoError(t, err)
	assert.False(t, present, "a fragment of a longer line is not the same line")

	present, err = s.ContainsLine("export  PATH=/opt/shared/bin:$PATH   # and more")
	require.NoError(t, err)
	assert.True(t, present, "whitespace differences are normalized away")
}

func TestEnsureLine_CreatesFileAndParents(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "deeply", "nested", "bashrc"))

	outcome, err := s.EnsureLine("export PATH=/opt/shared/bin:$PATH")
	require.NoError(t, err)
	assert.Equal(t, Added, outcome)
	assert.Equal(t, "export PATH=/opt/shared/bin:$PATH\n", readFile(t, s.Path()))
}

func TestEnsureLine_Idempotent(t *testing.T) {
	s := tempStore(t)
	line := "export PATH=/opt/shared/bin:$PATH"

	outcome, err := s.EnsureLine(line)
	require.NoError(t, err)
	assert.Equal(t, Added, outcome)

	// Re-running converges: still exactly one occurrence.
	for i := 0; i < 3; i++ {
		outcome, err = s.EnsureLine(line)
		require.NoError(t, err)
		assert.Equal(t, AlreadyPresent, outcome)
	}

	assert.Equal(t, 1, countOccurrences(t, s.Path(), line))
}

func TestEnsureLine_PreservesExistingContent(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Append("first", "second"))

	_, err := s.EnsureLine("third")
	require.NoError(t, err)

	assert.Equal(t, "first\nsecond\nthird\n", readFile(t, s.Path()))
}

func TestEnsureLine_ReportsAlreadyPresentForExistingEntry(t *testing.T) {
	// Scenario: shell init file already contains the PATH line for the
	// shared-bin path. A re-run adds nothing.
	s := tempStore(t)
	require.NoError(t, s.Append(`export PATH="/opt/shared/bin:$PATH"`))
	before := readFile(t, s.Path())

	outcome, err := s.EnsureLine(`export PATH="/opt/shared/bin:$PATH"`)
	require.NoError(t, err)
	assert.Equal(t, AlreadyPresent, outcome)
	assert.Equal(t, before, readFile(t, s.Path()))
}

func TestNewCredentialStore_TightPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}

	dir := t.TempDir()
	s := NewCredentialStore(filepath.Join(dir, ".ssh", "config"))

	_, err := s.EnsureLine("Host ml007")
	require.NoError(t, err)

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "added", Added.String())
	assert.Equal(t, "already present", AlreadyPresent.String())
}

func TestRewrite_ArchivesPreviousVersion(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Append("old content"))

	backup, err := s.Rewrite([]byte("new content\n"))
	require.NoError(t, err)
	require.NotEmpty(t, backup)

	assert.Equal(t, "new content\n", readFile(t, s.Path()))
	assert.Equal(t, "old content\n", readFile(t, backup))
	assert.True(t, strings.HasPrefix(filepath.Base(backup), filepath.Base(s.Path())+".bak-"))
}

func TestRewrite_NoArchiveWhenFileMissing(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "fresh"))

	backup, err := s.Rewrite([]byte("content\n"))
	require.NoError(t, err)
	assert.Empty(t, backup, "nothing to archive for a new file")
	assert.Equal(t, "content\n", readFile(t, s.Path()))
}
