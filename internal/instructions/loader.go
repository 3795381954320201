// Package instructions loads the review-instructions blob handed to the
// analysis capability. The blob is loaded once at startup and treated as
// read-only for the rest of the run.
package instructions

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	maxGuidelineFiles    = 8
	maxBytesPerGuideline = 1500
	maxGuidelineBytes    = 5000
)

// builtinDefault is used when no instructions file is configured or the
// configured file cannot be read.
const builtinDefault = `Review the changed file for correctness, security, and maintainability.
Prioritize real bugs and security problems over style.
Only flag style when it obscures behavior or violates an explicit repository rule.
Keep every finding short, concrete, and tied to a specific changed line where possible.`

var guidelineCandidates = []string{
	"AGENTS.md",
	"CONTRIBUTING.md",
	".github/copilot-instructions.md",
	".github/review-guidelines.md",
}

// Load returns the instructions text. Resolution order: the configured
// path if readable, otherwise the built-in default. Repository-local
// guideline files found under repoRoot are appended in both cases,
// size-capped so the prompt stays bounded.
func Load(path, repoRoot string) string {
	base := builtinDefault
	if p := strings.TrimSpace(path); p != "" {
		if b, err := os.ReadFile(p); err == nil && strings.TrimSpace(string(b)) != "" {
			base = strings.TrimSpace(string(b))
		}
	}

	extra := repoGuidelineSection(repoRoot)
	if extra == "" {
		return base
	}
	return base + "\n\n" + extra
}

// Default returns the built-in instructions text.
func Default() string {
	return builtinDefault
}

// repoGuidelineSection discovers repository-local guideline files and
// formats them for prompt injection. Empty string means none were found.
func repoGuidelineSection(repoRoot string) string {
	root := strings.TrimSpace(repoRoot)
	if root == "" {
		return ""
	}

	paths := discoverGuidelinePaths(root)
	if len(paths) == 0 {
		return ""
	}

	var (
		total     int
		usedFiles int
		sb        strings.Builder
		truncated bool
	)

	sb.WriteString("## Repository Guidelines\n")
	sb.WriteString("Apply these repository rules when reviewing. If a rule conflicts with correctness or security, prioritize correctness/security.\n\n")

	for _, p := range paths {
		if usedFiles >= maxGuidelineFiles || total >= maxGuidelineBytes {
			break
		}

		b, err := os.ReadFile(filepath.Join(root, p))
		if err != nil {
			continue
		}

		content := strings.TrimSpace(string(b))
		if content == "" {
			continue
		}

		if len(content) > maxBytesPerGuideline {
			content = strings.TrimSpace(content[:maxBytesPerGuideline]) + "\n...[truncated]"
			truncated = true
		}

		remaining := maxGuidelineBytes - total
		if len(content) > remaining {
			content = strings.TrimSpace(content[:remaining]) + "\n...[truncated]"
			truncated = true
		}
		if strings.TrimSpace(content) == "" {
			break
		}

		sb.WriteString(fmt.Sprintf("### %s\n", p))
		sb.WriteString("```markdown\n")
		sb.WriteString(content)
		sb.WriteString("\n```\n\n")

		total += len(content)
		usedFiles++
	}

	if usedFiles == 0 {
		return ""
	}
	if truncated {
		sb.WriteString("Note: guideline content was truncated to fit the prompt size limit.\n")
	}

	return strings.TrimSpace(sb.String())
}

func discoverGuidelinePaths(root string) []string {
	seen := map[string]struct{}{}
	var out []string

	addIfFile := func(rel string) {
		if _, ok := seen[rel]; ok {
			return
		}
		info, err := os.Stat(filepath.Join(root, rel))
		if err != nil || info.IsDir() {
			return
		}
		seen[rel] = struct{}{}
		out = append(out, rel)
	}

	for _, rel := range guidelineCandidates {
		addIfFile(rel)
	}

	sort.Strings(out)
	return out
}
