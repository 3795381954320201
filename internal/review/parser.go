package review

import (
	"encoding/json"
	"strconv"
	"strings"
)

// rawReport mirrors the JSON record the analysis capability is asked to
// embed in its reply. Score and Line tolerate number-or-string values
// since models are inconsistent about quoting.
type rawReport struct {
	Score    any          `json:"score"`
	Summary  string       `json:"summary"`
	Findings []rawFinding `json:"findings"`
}

type rawFinding struct {
	Kind       string `json:"kind"`
	Line       any    `json:"line"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

// ParseReport extracts the embedded JSON record from a capability reply
// and validates it into a FileReport. A reply with no parsable record
// yields the degraded report for the path; individual findings that
// fail validation are dropped (counted in Dropped) without affecting
// their siblings. Never returns an error: per-file parse problems are
// not fatal to the run.
func ParseReport(path, text string) FileReport {
	payload := extractJSONPayload(text)
	if payload == "" {
		return DegradedReport(path)
	}

	var raw rawReport
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return DegradedReport(path)
	}

	report := FileReport{
		Path:    path,
		Score:   clampScore(coerceInt(raw.Score)),
		Summary: strings.TrimSpace(raw.Summary),
	}

	for _, rf := range raw.Findings {
		f, ok := validateFinding(rf)
		if !ok {
			report.Dropped++
			continue
		}
		report.Findings = append(report.Findings, f)
	}

	return report
}

// validateFinding enforces the schema invariants: a finding without a
// message is rejected; an unknown kind downgrades to minor; a
// non-positive line is treated as absent.
func validateFinding(rf rawFinding) (Finding, bool) {
	msg := strings.TrimSpace(rf.Message)
	if msg == "" {
		return Finding{}, false
	}

	kind := KindMinor
	switch strings.ToLower(strings.TrimSpace(rf.Kind)) {
	case "blocking", "critical", "error":
		kind = KindBlocking
	case "improvement", "suggestion", "warning":
		kind = KindImprovement
	}

	line := coerceInt(rf.Line)
	if line < 1 {
		line = 0
	}

	return Finding{
		Kind:       kind,
		Line:       line,
		Message:    msg,
		Suggestion: trimBlankEdges(rf.Suggestion),
	}, true
}

// extractJSONPayload locates the embedded JSON object in free-form
// text: a fenced block when present, otherwise the outermost braces.
func extractJSONPayload(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "```") {
		lines := strings.Split(trimmed, "\n")
		if len(lines) >= 3 {
			last := len(lines) - 1
			for last > 0 && strings.TrimSpace(lines[last]) == "" {
				last--
			}
			if strings.TrimSpace(lines[last]) == "```" {
				trimmed = strings.TrimSpace(strings.Join(lines[1:last], "\n"))
			}
		}
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(trimmed[start : end+1])
}

func coerceInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case json.Number:
		n, _ := t.Int64()
		return int(n)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err == nil {
			return n
		}
	}
	return 0
}

func clampScore(n int) int {
	if n < 1 {
		return 0
	}
	if n > 10 {
		return 10
	}
	return n
}

func trimBlankEdges(s string) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}
