package diffparse

import "strings"

// ExtractFileDiff returns the slice of a full unified diff that belongs
// to path, headers included. Pure text operation: it matches on the
// per-file "diff --git" header and falls back to the "+++ b/" header
// for diffs without git preamble. An empty result means the file has no
// fragment in the diff, which callers treat as "no diff available".
func ExtractFileDiff(raw, path string) string {
	if strings.TrimSpace(raw) == "" || path == "" {
		return ""
	}

	lines := strings.Split(raw, "\n")

	start := -1
	for i, line := range lines {
		if strings.HasPrefix(line, "diff --git ") && strings.HasSuffix(line, " b/"+path) {
			start = i
			break
		}
		if line == "+++ b/"+path || line == "+++ "+path {
			start = i
			if i > 0 && strings.HasPrefix(lines[i-1], "--- ") {
				start = i - 1
			}
			break
		}
	}
	if start == -1 {
		return ""
	}

	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		if strings.HasPrefix(lines[i], "diff --git ") {
			end = i
			break
		}
	}

	return strings.TrimRight(strings.Join(lines[start:end], "\n"), "\n")
}
