package vcs

import "context"

// Provider abstracts the hosting platform's pull-request operations
// (GitHub today; the registry leaves room for others).
type Provider interface {
	Info() ProviderInfo

	// FetchChangeSet loads a pull request by number.
	FetchChangeSet(ctx context.Context, repo string, number int64) (*ChangeSet, error)

	// FindChangeSetsByBranch returns every open pull request whose head
	// branch matches. The caller decides what zero or multiple matches mean.
	FindChangeSetsByBranch(ctx context.Context, repo, headBranch string) ([]*ChangeSet, error)

	// FetchRawDiff returns the full unified diff for a pull request.
	FetchRawDiff(ctx context.Context, repo string, number int64) (string, error)

	// ListChangedPaths returns the flat list of changed file paths, in the
	// order the platform reports them.
	ListChangedPaths(ctx context.Context, repo string, number int64) ([]string, error)

	// FetchFileContent returns the content of a file at the given ref.
	FetchFileContent(ctx context.Context, repo, ref, path string) (string, error)

	// PostLineComment anchors a comment to a line on the head side of the diff.
	PostLineComment(ctx context.Context, repo string, number int64, headSHA string, comment LineComment) error

	// PostSummaryComment posts one top-level comment on the pull request.
	PostSummaryComment(ctx context.Context, repo string, number int64, body string) error

	// FormatSuggestionBlock wraps replacement text in the platform's
	// native suggestion syntax.
	FormatSuggestionBlock(suggestion string) string

	Validate() error
}

// ProviderInfo describes a registered platform provider.
type ProviderInfo struct {
	Name    string
	BaseURL string
}

// ChangeSet holds platform-agnostic pull-request metadata. Immutable
// once resolved.
type ChangeSet struct {
	Number     int64
	Title      string
	Author     string
	BaseBranch string
	HeadBranch string
	HeadSHA    string
	State      string
	WebURL     string
}

// LineComment holds data for posting a line-anchored review comment.
// Line is in head-file numbering; Position is the diff offset computed
// by the position mapper.
type LineComment struct {
	Path     string
	Line     int
	Position int
	Body     string
}
