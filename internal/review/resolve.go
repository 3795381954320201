package review

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/autorevd/autorev/internal/vcs"
)

// ResolveChangeSet turns an optional explicit number into a resolved
// change set. When number is zero the current local branch is used to
// find the matching open pull request; zero or multiple matches are
// fatal with ErrAmbiguousChangeSet.
func ResolveChangeSet(ctx context.Context, provider vcs.Provider, repo string, number int64, repoRoot string) (*vcs.ChangeSet, error) {
	if number > 0 {
		cs, err := provider.FetchChangeSet(ctx, repo, number)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrChangeSetUnreadable, err)
		}
		return cs, nil
	}

	branch, err := CurrentBranch(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot determine current branch: %v", ErrAmbiguousChangeSet, err)
	}

	return resolveByBranch(ctx, provider, repo, branch)
}

func resolveByBranch(ctx context.Context, provider vcs.Provider, repo, branch string) (*vcs.ChangeSet, error) {
	matches, err := provider.FindChangeSetsByBranch(ctx, repo, branch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChangeSetUnreadable, err)
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, fmt.Errorf("%w: no open change set for branch %q", ErrAmbiguousChangeSet, branch)
	default:
		return nil, fmt.Errorf("%w: %d open change sets for branch %q", ErrAmbiguousChangeSet, len(matches), branch)
	}
}

// CurrentBranch returns the checked-out branch name for the repository
// at repoPath.
func CurrentBranch(repoPath string) (string, error) {
	cmd := exec.Command("git", "-C", repoPath, "rev-parse", "--abbrev-ref", "HEAD")
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git command failed: %s", string(exitErr.Stderr))
		}
		return "", fmt.Errorf("git command failed: %w", err)
	}

	branch := strings.TrimSpace(string(out))
	if branch == "" || branch == "HEAD" {
		return "", fmt.Errorf("not on a branch (detached HEAD)")
	}
	return branch, nil
}
