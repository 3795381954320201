package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserPrompt(t *testing.T) {
	p := UserPrompt(Request{
		Instructions: "Focus on error handling.",
		Path:         "internal/api/server.go",
		Diff:         "@@ -1 +1,2 @@\n keep\n+add",
		Content:      "package api\n",
	})

	assert.Contains(t, p, "## Review Instructions\nFocus on error handling.")
	assert.Contains(t, p, "## File: internal/api/server.go")
	assert.Contains(t, p, "```diff\n@@ -1 +1,2 @@")
	assert.Contains(t, p, "package api")
	assert.Contains(t, p, `"findings"`)
}

func TestUserPrompt_MissingSections(t *testing.T) {
	p := UserPrompt(Request{Path: "a.go"})

	assert.NotContains(t, p, "## Review Instructions")
	assert.Contains(t, p, "(no diff available for this file)")
	assert.Contains(t, p, "(file content unavailable)")
}

func TestUserPrompt_TruncatesOversizedDiff(t *testing.T) {
	huge := strings.Repeat("+x\n", maxDiffBytes)
	p := UserPrompt(Request{Path: "a.go", Diff: huge})

	assert.Less(t, len(p), len(huge))
	assert.Contains(t, p, "truncated")
}
