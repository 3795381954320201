package review

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/autorevd/autorev/internal/analysis"
	"github.com/autorevd/autorev/internal/vcs"
)

// fakeVCS is an in-memory vcs.Provider for pipeline and publisher tests.
type fakeVCS struct {
	mu sync.Mutex

	changeSets    map[int64]*vcs.ChangeSet
	branchMatches []*vcs.ChangeSet
	rawDiff       string
	paths         []string
	contents      map[string]string

	fetchErr        error
	branchErr       error
	diffErr         error
	pathsErr        error
	lineCommentErr  error
	summaryErr      error
	failLineOnPaths map[string]bool

	lineComments    []vcs.LineComment
	summaryBodies   []string
	summaryNumbers  []int64
	lineCommentSHAs []string
}

func (f *fakeVCS) Info() vcs.ProviderInfo { return vcs.ProviderInfo{Name: "fake"} }

func (f *fakeVCS) FetchChangeSet(ctx context.Context, repo string, number int64) (*vcs.ChangeSet, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	cs, ok := f.changeSets[number]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return cs, nil
}

func (f *fakeVCS) FindChangeSetsByBranch(ctx context.Context, repo, headBranch string) ([]*vcs.ChangeSet, error) {
	if f.branchErr != nil {
		return nil, f.branchErr
	}
	return f.branchMatches, nil
}

func (f *fakeVCS) FetchRawDiff(ctx context.Context, repo string, number int64) (string, error) {
	if f.diffErr != nil {
		return "", f.diffErr
	}
	return f.rawDiff, nil
}

func (f *fakeVCS) ListChangedPaths(ctx context.Context, repo string, number int64) ([]string, error) {
	if f.pathsErr != nil {
		return nil, f.pathsErr
	}
	return f.paths, nil
}

func (f *fakeVCS) FetchFileContent(ctx context.Context, repo, ref, path string) (string, error) {
	content, ok := f.contents[path]
	if !ok {
		return "", fmt.Errorf("no content for %s", path)
	}
	return content, nil
}

func (f *fakeVCS) PostLineComment(ctx context.Context, repo string, number int64, headSHA string, comment vcs.LineComment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lineCommentErr != nil {
		return f.lineCommentErr
	}
	if f.failLineOnPaths[comment.Path] {
		return fmt.Errorf("injected failure for %s", comment.Path)
	}
	f.lineComments = append(f.lineComments, comment)
	f.lineCommentSHAs = append(f.lineCommentSHAs, headSHA)
	return nil
}

func (f *fakeVCS) PostSummaryComment(ctx context.Context, repo string, number int64, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.summaryErr != nil {
		return f.summaryErr
	}
	f.summaryBodies = append(f.summaryBodies, body)
	f.summaryNumbers = append(f.summaryNumbers, number)
	return nil
}

func (f *fakeVCS) FormatSuggestionBlock(suggestion string) string {
	return "```suggestion\n" + suggestion + "\n```"
}

func (f *fakeVCS) Validate() error { return nil }

// fakeAnalyzer returns a canned reply per path, with optional failure
// injection and an artificial delay to exercise timeouts and ordering.
type fakeAnalyzer struct {
	mu sync.Mutex

	replies   map[string]string
	failPaths map[string]bool
	delay     time.Duration

	calls []string
}

func (f *fakeAnalyzer) Info() analysis.ProviderInfo {
	return analysis.ProviderInfo{Name: "fake", DisplayName: "Fake"}
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req analysis.Request) (*analysis.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.Path)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, &analysis.ProviderError{
				Provider: "fake",
				Code:     analysis.ErrCodeTimeout,
				Message:  ctx.Err().Error(),
			}
		}
	}
	if f.failPaths[req.Path] {
		return nil, &analysis.ProviderError{
			Provider: "fake",
			Code:     analysis.ErrCodeProviderUnavailable,
			Message:  "injected failure",
		}
	}

	reply, ok := f.replies[req.Path]
	if !ok {
		reply = `{"score": 8, "summary": "Looks fine.", "findings": []}`
	}
	return &analysis.Response{Text: reply, Model: "fake-1"}, nil
}

func (f *fakeAnalyzer) Validate(ctx context.Context) error { return nil }
