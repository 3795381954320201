package instructions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	return full
}

func TestLoad_DefaultWhenNothingConfigured(t *testing.T) {
	got := Load("", t.TempDir())
	assert.Equal(t, Default(), got)
}

func TestLoad_ConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "instructions.md", "Only check for SQL injection.\n")

	got := Load(path, t.TempDir())
	assert.Equal(t, "Only check for SQL injection.", got)
}

func TestLoad_UnreadableFileFallsBack(t *testing.T) {
	got := Load(filepath.Join(t.TempDir(), "missing.md"), t.TempDir())
	assert.Equal(t, Default(), got)
}

func TestLoad_BlankFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "instructions.md", "   \n\n")

	got := Load(path, t.TempDir())
	assert.Equal(t, Default(), got)
}

func TestLoad_AppendsRepoGuidelines(t *testing.T) {
	repo := t.TempDir()
	writeFile(t, repo, "CONTRIBUTING.md", "Always wrap errors with context.")
	writeFile(t, repo, ".github/review-guidelines.md", "Public functions need doc comments.")

	got := Load("", repo)
	assert.Contains(t, got, Default())
	assert.Contains(t, got, "## Repository Guidelines")
	assert.Contains(t, got, "### CONTRIBUTING.md")
	assert.Contains(t, got, "Always wrap errors with context.")
	assert.Contains(t, got, "### .github/review-guidelines.md")
	assert.Contains(t, got, "Public functions need doc comments.")
}

func TestLoad_EmptyRepoRootSkipsGuidelines(t *testing.T) {
	got := Load("", "")
	assert.Equal(t, Default(), got)
}

func TestLoad_GuidelineSizeCapped(t *testing.T) {
	repo := t.TempDir()
	writeFile(t, repo, "CONTRIBUTING.md", strings.Repeat("rule\n", 1000))

	got := Load("", repo)
	assert.Contains(t, got, "...[truncated]")
	assert.Contains(t, got, "guideline content was truncated")
	// The per-file cap bounds the embedded content.
	assert.Less(t, len(got), len(Default())+maxGuidelineBytes+1000)
}

func TestLoad_IgnoresGuidelineDirectories(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(repo, "AGENTS.md"), 0o755))

	got := Load("", repo)
	assert.Equal(t, Default(), got)
}
