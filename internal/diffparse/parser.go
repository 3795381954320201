package diffparse

import (
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// FileFragment is one file's parsed slice of a unified diff.
type FileFragment struct {
	OldName   string
	NewName   string
	IsNew     bool
	IsDeleted bool
	IsRenamed bool
	Hunks     []Hunk
	Stats     DiffStats
}

// Hunk represents a diff hunk.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

// Line represents a single line in a diff. Position is the offset from
// the file's first hunk header, the unit the platform's line-commenting
// API anchors on.
type Line struct {
	Kind     LineKind
	Content  string
	OldLine  int
	NewLine  int
	Position int
}

// LineKind classifies a diff line.
type LineKind int

const (
	LineContext LineKind = iota
	LineAdded
	LineDeleted
)

// DiffStats holds addition/deletion counts.
type DiffStats struct {
	Additions int
	Deletions int
}

// Path returns the file's display path, preferring the head-side name.
func (f *FileFragment) Path() string {
	if strings.TrimSpace(f.NewName) != "" {
		return f.NewName
	}
	return f.OldName
}

// ParseFileFragment parses one file's unified diff fragment. Fragments
// without file headers (bare hunks, as returned by some platform APIs)
// get a pseudo header so the parser accepts them.
func ParseFileFragment(path, fragment string) (*FileFragment, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, fmt.Errorf("diffparse: empty fragment for %s", path)
	}
	if strings.HasPrefix(fragment, "@@") {
		fragment = fmt.Sprintf("--- a/%s\n+++ b/%s\n%s", path, path, fragment)
	}

	fd, err := diff.ParseFileDiff([]byte(fragment))
	if err != nil {
		return nil, fmt.Errorf("diffparse: failed to parse fragment for %s: %w", path, err)
	}
	return fromFileDiff(fd), nil
}

// ParseUnifiedDiff parses a full multi-file unified diff.
func ParseUnifiedDiff(raw string) ([]*FileFragment, error) {
	fileDiffs, err := diff.ParseMultiFileDiff([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("diffparse: failed to parse diff: %w", err)
	}

	out := make([]*FileFragment, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		out = append(out, fromFileDiff(fd))
	}
	return out, nil
}

func fromFileDiff(fd *diff.FileDiff) *FileFragment {
	f := &FileFragment{
		OldName: cleanPath(fd.OrigName),
		NewName: cleanPath(fd.NewName),
	}

	if fd.OrigName == "/dev/null" {
		f.IsNew = true
		f.OldName = ""
	}
	if fd.NewName == "/dev/null" {
		f.IsDeleted = true
		f.NewName = ""
	}
	if f.OldName != "" && f.NewName != "" && f.OldName != f.NewName {
		f.IsRenamed = true
	}

	// Position 1 is the first line after the file's first hunk header;
	// later hunk headers occupy a position slot themselves.
	position := 0

	for hi, h := range fd.Hunks {
		if hi > 0 {
			position++
		}

		hunk := Hunk{
			OldStart: int(h.OrigStartLine),
			OldLines: int(h.OrigLines),
			NewStart: int(h.NewStartLine),
			NewLines: int(h.NewLines),
		}

		oldLine := int(h.OrigStartLine)
		newLine := int(h.NewStartLine)

		for _, line := range strings.Split(string(h.Body), "\n") {
			if len(line) == 0 {
				continue
			}
			position++

			l := Line{Position: position}
			switch line[0] {
			case '+':
				l.Kind = LineAdded
				l.Content = line[1:]
				l.NewLine = newLine
				newLine++
				f.Stats.Additions++
			case '-':
				l.Kind = LineDeleted
				l.Content = line[1:]
				l.OldLine = oldLine
				oldLine++
				f.Stats.Deletions++
			default:
				l.Kind = LineContext
				if line[0] == ' ' {
					l.Content = line[1:]
				} else {
					l.Content = line
				}
				l.OldLine = oldLine
				l.NewLine = newLine
				oldLine++
				newLine++
			}
			hunk.Lines = append(hunk.Lines, l)
		}

		f.Hunks = append(f.Hunks, hunk)
	}

	return f
}

func cleanPath(p string) string {
	p = strings.TrimPrefix(p, "a/")
	p = strings.TrimPrefix(p, "b/")
	return p
}
