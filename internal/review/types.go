package review

import (
	"errors"
	"fmt"

	"github.com/autorevd/autorev/internal/vcs"
)

// Fatal errors: nothing downstream can proceed, surfaced with a
// non-zero exit. Every later failure degrades per-file instead.
var (
	// ErrAmbiguousChangeSet means no change set, or more than one, matched
	// the current branch.
	ErrAmbiguousChangeSet = errors.New("ambiguous change set")

	// ErrChangeSetUnreadable means the platform query for the diff or the
	// changed-file list failed.
	ErrChangeSetUnreadable = errors.New("change set unreadable")
)

// FindingKind classifies a finding's severity.
type FindingKind string

const (
	KindBlocking    FindingKind = "blocking"
	KindImprovement FindingKind = "improvement"
	KindMinor       FindingKind = "minor"
)

// Marker returns the severity tag used in published comment bodies.
func (k FindingKind) Marker() string {
	switch k {
	case KindBlocking:
		return "[BLOCKING]"
	case KindImprovement:
		return "[IMPROVEMENT]"
	default:
		return "[MINOR]"
	}
}

// Finding is one structured observation about a file.
type Finding struct {
	Kind    FindingKind
	Line    int // head-file numbering; 0 means no line
	Message string
	// Suggestion holds optional replacement text for the referenced line.
	Suggestion string

	// Position is the diff offset resolved by the position mapper; 0
	// means the finding has no valid anchor and degrades to the summary.
	Position int
}

// Anchored reports whether the finding can carry a line comment.
func (f Finding) Anchored() bool {
	return f.Line > 0 && f.Position > 0
}

// FileReport is the per-file review outcome. A dispatch or parse
// failure yields a degraded report instead of aborting the run.
type FileReport struct {
	Path     string
	Score    int // 1-10; meaningless when Degraded
	Summary  string
	Findings []Finding

	// Degraded marks reports where analysis could not complete; score
	// renders as "unavailable" and Findings is empty.
	Degraded bool

	// Dropped counts findings discarded during schema validation.
	Dropped int
}

// ScoreString renders the score. Degraded reports and reports whose
// payload carried no usable score both render as "unavailable".
func (r FileReport) ScoreString() string {
	if r.Degraded || r.Score < 1 {
		return "unavailable"
	}
	return fmt.Sprintf("%d/10", r.Score)
}

// DegradedReport builds the defined degraded FileReport for a path.
func DegradedReport(path string) FileReport {
	return FileReport{
		Path:     path,
		Summary:  "analysis unavailable",
		Degraded: true,
	}
}

// PathDecision records the filter's verdict for one changed path.
type PathDecision struct {
	Path     string
	Included bool
}

// RunReport is the aggregate outcome of one review run.
type RunReport struct {
	ChangeSet *vcs.ChangeSet

	// Files holds one report per included path, in changed-path order.
	Files []FileReport

	// Excluded lists the paths the filter rejected, in input order.
	Excluded []string

	// NothingToReview is set when the change set had no changed paths.
	NothingToReview bool
}

// HasBlocking reports whether any finding across all files is blocking.
func (r *RunReport) HasBlocking() bool {
	for _, fr := range r.Files {
		for _, f := range fr.Findings {
			if f.Kind == KindBlocking {
				return true
			}
		}
	}
	return false
}
