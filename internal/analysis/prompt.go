package analysis

import (
	"fmt"
	"strings"
)

// Caps keep a single-file request bounded regardless of how large the
// changed file is. Oversized sections are truncated, not rejected.
const (
	maxDiffBytes    = 48_000
	maxContentBytes = 96_000
)

// SystemPrompt is the fixed role preamble shared by all providers.
const SystemPrompt = "You are an expert code reviewer. You review one file at a time and respond with a single JSON object."

const responseSchema = `Respond with exactly one JSON object (optionally inside a json fenced block) of the form:
{
  "score": 7,
  "summary": "one or two sentences about this file's change",
  "findings": [
    {"kind": "blocking|improvement|minor", "line": 42, "message": "what is wrong", "suggestion": "replacement code (optional)"}
  ]
}
Rules:
- "score" is an integer 1-10 rating the change quality.
- "line" refers to the file's current (head) line numbering and must point at a changed line; omit it when no single line applies.
- "message" is required for every finding.
- "suggestion" contains only replacement source text for the referenced line, no fences.
- Return an empty "findings" array when the change looks good.`

// UserPrompt renders the per-file request body sent to every provider.
func UserPrompt(req Request) string {
	var sb strings.Builder

	if inst := strings.TrimSpace(req.Instructions); inst != "" {
		sb.WriteString("## Review Instructions\n")
		sb.WriteString(inst)
		sb.WriteString("\n\n")
	}

	fmt.Fprintf(&sb, "## File: %s\n\n", req.Path)

	sb.WriteString("### Diff\n")
	if diff := strings.TrimSpace(req.Diff); diff != "" {
		sb.WriteString("```diff\n")
		sb.WriteString(truncate(diff, maxDiffBytes))
		sb.WriteString("\n```\n\n")
	} else {
		sb.WriteString("(no diff available for this file)\n\n")
	}

	sb.WriteString("### Full file content at head\n")
	if content := req.Content; strings.TrimSpace(content) != "" {
		sb.WriteString("```\n")
		sb.WriteString(truncate(content, maxContentBytes))
		sb.WriteString("\n```\n\n")
	} else {
		sb.WriteString("(file content unavailable)\n\n")
	}

	sb.WriteString(responseSchema)
	return sb.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n...[truncated]"
}
