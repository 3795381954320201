package review

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/autorevd/autorev/internal/analysis"
	"github.com/autorevd/autorev/internal/diffparse"
	"github.com/autorevd/autorev/internal/vcs"
)

// ProgressCallback reports pipeline progress to the CLI.
type ProgressCallback func(stage string, current, total int)

// Pipeline runs the review orchestration for one change set: load the
// diff, filter paths, fan out per-file analysis over a bounded worker
// pool, and aggregate ordered FileReports. Fatal failures exist only
// while loading; every per-file problem degrades that file's report.
type Pipeline struct {
	VCS      vcs.Provider
	Analyzer analysis.Provider

	// Instructions is the process-wide review-instructions blob,
	// read-only and shared across workers.
	Instructions string

	// Concurrency bounds the worker pool; values < 1 mean 1.
	Concurrency int

	// FileTimeout bounds a single analysis call.
	FileTimeout time.Duration

	// Exclude overrides the built-in deny-list when non-empty.
	Exclude []string

	Debug bool

	// Log receives warnings and debug lines. Defaults to os.Stderr.
	Log io.Writer

	OnProgress ProgressCallback
}

// Run executes the pipeline for a resolved change set. The returned
// error is non-nil only for fatal load failures; the run otherwise
// always completes with a full RunReport.
func (p *Pipeline) Run(ctx context.Context, repo string, cs *vcs.ChangeSet) (*RunReport, error) {
	onProgress := p.OnProgress
	if onProgress == nil {
		onProgress = func(string, int, int) {}
	}

	onProgress("Loading diff", 0, 0)
	rawDiff, err := p.VCS.FetchRawDiff(ctx, repo, cs.Number)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChangeSetUnreadable, err)
	}

	paths, err := p.VCS.ListChangedPaths(ctx, repo, cs.Number)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChangeSetUnreadable, err)
	}

	report := &RunReport{ChangeSet: cs}
	if len(paths) == 0 {
		report.NothingToReview = true
		return report, nil
	}

	decisions := FilterPaths(paths, p.Exclude)
	for _, d := range decisions {
		if !d.Included {
			report.Excluded = append(report.Excluded, d.Path)
		}
	}
	included := IncludedPaths(decisions)
	if len(included) == 0 {
		report.NothingToReview = true
		return report, nil
	}

	// Fan out per-file work. Results slot into a slice indexed by the
	// original path order so output is identical regardless of which
	// worker finishes first.
	results := make([]*FileReport, len(included))
	jobs := make(chan int)
	var wg sync.WaitGroup
	var completed atomic.Int64

	workers := p.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(included) {
		workers = len(included)
	}

	onProgress("Analyzing files", 0, len(included))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					// Abandon remaining work; unfinished slots degrade
					// at the join point below.
					continue
				}
				fr := p.reviewFile(ctx, repo, cs, included[idx], rawDiff)
				results[idx] = &fr
				onProgress("Analyzing files", int(completed.Add(1)), len(included))
			}
		}()
	}

	for idx := range included {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	// Join: fill anything the timeout cut short.
	for i, r := range results {
		if r == nil {
			p.warnf("%s: analysis abandoned before completion", included[i])
			report.Files = append(report.Files, DegradedReport(included[i]))
			continue
		}
		report.Files = append(report.Files, *r)
	}

	return report, nil
}

// reviewFile runs the full per-file stage chain: fetch content, slice
// the diff, dispatch analysis, parse findings, and map each finding's
// line to a diff position. Every failure path returns the degraded
// report for the file.
func (p *Pipeline) reviewFile(ctx context.Context, repo string, cs *vcs.ChangeSet, path, rawDiff string) FileReport {
	content, err := p.VCS.FetchFileContent(ctx, repo, cs.HeadSHA, path)
	if err != nil {
		p.warnf("%s: failed to fetch content: %v", path, err)
		return DegradedReport(path)
	}

	fragment := diffparse.ExtractFileDiff(rawDiff, path)
	if fragment == "" {
		p.debugf("%s: no diff fragment found, sending content only", path)
	}

	req := analysis.Request{
		Instructions: p.Instructions,
		Path:         path,
		Diff:         fragment,
		Content:      content,
	}

	callCtx := ctx
	if p.FileTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.FileTimeout)
		defer cancel()
	}

	resp, err := p.Analyzer.Analyze(callCtx, req)
	if err != nil {
		p.warnf("%s: analysis failed: %v", path, err)
		return DegradedReport(path)
	}

	fr := ParseReport(path, resp.Text)
	if fr.Degraded {
		p.warnf("%s: unparsable analysis payload", path)
		return fr
	}
	if fr.Dropped > 0 {
		p.warnf("%s: dropped %d invalid finding(s)", path, fr.Dropped)
	}

	p.mapPositions(&fr, fragment)
	return fr
}

// mapPositions resolves each finding's advisory head line into a diff
// position. Findings that cannot be anchored keep Position == 0 and
// surface in the summary instead.
func (p *Pipeline) mapPositions(fr *FileReport, fragment string) {
	if strings.TrimSpace(fragment) == "" {
		return
	}
	parsed, err := diffparse.ParseFileFragment(fr.Path, fragment)
	if err != nil {
		p.debugf("%s: cannot parse fragment for position mapping: %v", fr.Path, err)
		return
	}

	for i := range fr.Findings {
		if fr.Findings[i].Line <= 0 {
			continue
		}
		l, ok := parsed.PositionForLine(fr.Findings[i].Line)
		if !ok {
			p.debugf("%s: line %d outside diff hunks, demoting to summary",
				fr.Path, fr.Findings[i].Line)
			continue
		}
		if l.NewLine != fr.Findings[i].Line {
			p.debugf("%s: line %d anchored on nearby diff line %d",
				fr.Path, fr.Findings[i].Line, l.NewLine)
			fr.Findings[i].Line = l.NewLine
		}
		fr.Findings[i].Position = l.Position
	}
}

func (p *Pipeline) logW() io.Writer {
	if p.Log != nil {
		return p.Log
	}
	return os.Stderr
}

func (p *Pipeline) warnf(format string, args ...any) {
	fmt.Fprintf(p.logW(), "Warning: "+format+"\n", args...)
}

func (p *Pipeline) debugf(format string, args ...any) {
	if !p.Debug {
		return
	}
	fmt.Fprintf(p.logW(), "[debug] "+format+"\n", args...)
}
