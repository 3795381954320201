package review

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/autorevd/autorev/internal/config"
	"github.com/autorevd/autorev/internal/vcs"
)

// publishTimeout bounds the posting stage on its own. The run timeout
// only covers analysis; reports that finished before it fired must
// still reach the platform.
const publishTimeout = 2 * time.Minute

// Publisher posts line comments and the aggregate summary for a run.
// Comment bodies are a pure function of the RunReport, so re-running on
// identical inputs re-posts byte-identical content.
type Publisher struct {
	VCS vcs.Provider

	// Verbosity controls which finding kinds publish: minimal posts
	// blocking only, normal adds improvements, detailed posts everything.
	Verbosity string

	// SummaryOnly suppresses line comments entirely.
	SummaryOnly bool

	// Log receives partial-publish warnings. Defaults to os.Stderr.
	Log io.Writer
}

// PublishResult summarizes what was posted.
type PublishResult struct {
	LineComments int
	FailedPosts  int
	HasBlocking  bool
}

// Publish posts every anchored finding as a line comment, then exactly
// one aggregate summary comment. A failed line post is logged and the
// rest continue; the summary is always attempted. Posting runs on its
// own deadline so a run timeout that fired during analysis cannot
// swallow the completed reports.
func (p *Publisher) Publish(ctx context.Context, repo string, report *RunReport) (*PublishResult, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	res := &PublishResult{HasBlocking: report.HasBlocking()}

	if !p.SummaryOnly && !report.NothingToReview {
		for _, fr := range report.Files {
			for _, f := range fr.Findings {
				if !p.Publishable(f.Kind) || !f.Anchored() {
					continue
				}
				body := p.lineCommentBody(f)
				err := p.VCS.PostLineComment(ctx, repo, report.ChangeSet.Number, report.ChangeSet.HeadSHA, vcs.LineComment{
					Path:     fr.Path,
					Line:     f.Line,
					Position: f.Position,
					Body:     body,
				})
				if err != nil {
					res.FailedPosts++
					fmt.Fprintf(p.logW(), "Warning: failed to post line comment on %s:%d: %v\n",
						fr.Path, f.Line, err)
					continue
				}
				res.LineComments++
			}
		}
	}

	summary := p.BuildSummary(report)
	if err := p.VCS.PostSummaryComment(ctx, repo, report.ChangeSet.Number, summary); err != nil {
		res.FailedPosts++
		return res, fmt.Errorf("failed to post summary comment: %w", err)
	}

	return res, nil
}

// lineCommentBody renders one anchored finding: severity marker,
// message, and the platform's native suggestion block when replacement
// text is available.
func (p *Publisher) lineCommentBody(f Finding) string {
	body := f.Kind.Marker() + " " + f.Message
	if f.Suggestion != "" {
		body += "\n\n" + p.VCS.FormatSuggestionBlock(f.Suggestion)
	}
	return body
}

// BuildSummary renders the aggregate summary comment: per-file score,
// status and summary, plus every publishable finding that could not be
// anchored to a diff line. Pure function of the report.
func (p *Publisher) BuildSummary(report *RunReport) string {
	var sb strings.Builder
	sb.WriteString("## Automated Review\n\n")

	if report.NothingToReview {
		sb.WriteString("Nothing to review: the change set contains no analyzable files.\n")
		return sb.String()
	}

	degraded := 0
	sb.WriteString("| File | Score | Status |\n|---|---|---|\n")
	for _, fr := range report.Files {
		status := "analyzed"
		if fr.Degraded {
			status = "analysis unavailable"
			degraded++
		}
		fmt.Fprintf(&sb, "| `%s` | %s | %s |\n", fr.Path, fr.ScoreString(), status)
	}
	sb.WriteString("\n")

	for _, fr := range report.Files {
		var lines []string
		if s := strings.TrimSpace(fr.Summary); s != "" && !fr.Degraded {
			lines = append(lines, s)
		}
		for _, f := range fr.Findings {
			if !p.Publishable(f.Kind) || f.Anchored() {
				continue
			}
			note := f.Kind.Marker() + " " + f.Message
			if f.Line > 0 {
				note = fmt.Sprintf("%s %s (line %d, outside the diff)", f.Kind.Marker(), f.Message, f.Line)
			}
			lines = append(lines, "- "+note)
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "### `%s`\n%s\n\n", fr.Path, strings.Join(lines, "\n"))
	}

	if len(report.Excluded) > 0 {
		fmt.Fprintf(&sb, "_%d file(s) excluded from analysis (documentation, lockfiles, generated artifacts)._\n\n", len(report.Excluded))
	}

	if report.HasBlocking() {
		sb.WriteString("**Verdict: blocking issues found.**\n")
	} else if degraded == len(report.Files) {
		sb.WriteString("**Verdict: analysis unavailable for every file.**\n")
	} else {
		sb.WriteString("**Verdict: no blocking issues found.**\n")
	}

	return sb.String()
}

// kindRank orders finding kinds for verbosity filtering.
func kindRank(k FindingKind) int {
	switch k {
	case KindBlocking:
		return 3
	case KindImprovement:
		return 2
	default:
		return 1
	}
}

// Publishable reports whether findings of the given kind clear the
// configured verbosity. Callers rendering previews must apply the same
// gate so a dry run shows exactly what a real run would post.
func (p *Publisher) Publishable(k FindingKind) bool {
	switch p.Verbosity {
	case config.VerbosityMinimal:
		return kindRank(k) >= 3
	case config.VerbosityDetailed:
		return true
	default:
		return kindRank(k) >= 2
	}
}

func (p *Publisher) logW() io.Writer {
	if p.Log != nil {
		return p.Log
	}
	return os.Stderr
}
