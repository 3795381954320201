package review

import (
	"path/filepath"
	"strings"
)

// defaultDenyExts excludes documentation, structured-data configs, logs
// and binary artifacts from analysis.
var defaultDenyExts = []string{
	".md", ".rst", ".adoc", ".txt",
	".json", ".yaml", ".yml", ".toml", ".ini",
	".log",
	".svg", ".png", ".jpg", ".jpeg", ".gif", ".ico",
	".pdf", ".zip", ".tar", ".gz",
	".lock", ".sum", ".snap", ".min.js", ".min.css",
}

// defaultDenyNames excludes well-known lockfiles and generated
// manifests whose names carry no useful extension.
var defaultDenyNames = []string{
	"package-lock.json", "yarn.lock", "pnpm-lock.yaml",
	"Gemfile.lock", "Cargo.lock", "poetry.lock", "composer.lock",
	"go.sum",
}

// FilterPaths classifies changed paths as analyzable or excluded.
// Pure function, order preserving, no failure mode. A non-empty
// override replaces the built-in deny-list; override entries are
// matched as extensions (leading dot), exact base names, or glob
// patterns against the base name.
func FilterPaths(paths []string, override []string) []PathDecision {
	out := make([]PathDecision, 0, len(paths))
	for _, p := range paths {
		out = append(out, PathDecision{Path: p, Included: !excluded(p, override)})
	}
	return out
}

// IncludedPaths returns just the analyzable paths, in order.
func IncludedPaths(decisions []PathDecision) []string {
	var out []string
	for _, d := range decisions {
		if d.Included {
			out = append(out, d.Path)
		}
	}
	return out
}

func excluded(path string, override []string) bool {
	base := filepath.Base(path)

	if len(override) > 0 {
		for _, pat := range override {
			if matchesPattern(base, path, pat) {
				return true
			}
		}
		return false
	}

	for _, name := range defaultDenyNames {
		if base == name {
			return true
		}
	}
	lower := strings.ToLower(base)
	for _, ext := range defaultDenyExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	// Vendored and generated trees.
	for _, dir := range []string{"vendor/", "node_modules/", "dist/", "third_party/"} {
		if strings.HasPrefix(path, dir) || strings.Contains(path, "/"+dir) {
			return true
		}
	}
	return false
}

func matchesPattern(base, path, pat string) bool {
	pat = strings.TrimSpace(pat)
	if pat == "" {
		return false
	}
	if strings.HasPrefix(pat, ".") && !strings.ContainsAny(pat, "*?[") {
		return strings.HasSuffix(strings.ToLower(base), strings.ToLower(pat))
	}
	if ok, err := filepath.Match(pat, base); err == nil && ok {
		return true
	}
	if ok, err := filepath.Match(pat, path); err == nil && ok {
		return true
	}
	return base == pat
}
