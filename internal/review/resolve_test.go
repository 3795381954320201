package review

import (
	"context"
	"fmt"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autorevd/autorev/internal/vcs"
)

func TestResolveChangeSet_ExplicitNumber(t *testing.T) {
	v := &fakeVCS{changeSets: map[int64]*vcs.ChangeSet{7: {Number: 7, Title: "explicit"}}}

	cs, err := ResolveChangeSet(context.Background(), v, "acme/widgets", 7, ".")
	require.NoError(t, err)
	assert.Equal(t, int64(7), cs.Number)
}

func TestResolveChangeSet_ExplicitNumberNotFound(t *testing.T) {
	v := &fakeVCS{changeSets: map[int64]*vcs.ChangeSet{}}

	_, err := ResolveChangeSet(context.Background(), v, "acme/widgets", 999, ".")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChangeSetUnreadable)
}

func TestResolveByBranch_SingleMatch(t *testing.T) {
	v := &fakeVCS{branchMatches: []*vcs.ChangeSet{{Number: 12, HeadBranch: "feature/x"}}}

	cs, err := resolveByBranch(context.Background(), v, "acme/widgets", "feature/x")
	require.NoError(t, err)
	assert.Equal(t, int64(12), cs.Number)
}

func TestResolveByBranch_NoMatch(t *testing.T) {
	v := &fakeVCS{}

	_, err := resolveByBranch(context.Background(), v, "acme/widgets", "feature/x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmbiguousChangeSet)
	assert.Contains(t, err.Error(), "no open change set")
}

func TestResolveByBranch_MultipleMatches(t *testing.T) {
	v := &fakeVCS{branchMatches: []*vcs.ChangeSet{
		{Number: 12, HeadBranch: "feature/x"},
		{Number: 13, HeadBranch: "feature/x"},
	}}

	_, err := resolveByBranch(context.Background(), v, "acme/widgets", "feature/x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmbiguousChangeSet)
	assert.Contains(t, err.Error(), "2 open change sets")
}

func TestResolveByBranch_QueryFailure(t *testing.T) {
	v := &fakeVCS{branchErr: fmt.Errorf("boom")}

	_, err := resolveByBranch(context.Background(), v, "acme/widgets", "feature/x")
	assert.ErrorIs(t, err, ErrChangeSetUnreadable)
}

func TestCurrentBranch(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}

	run("init", "-b", "feature/current-branch")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	run("commit", "--allow-empty", "-m", "init")

	branch, err := CurrentBranch(dir)
	require.NoError(t, err)
	assert.Equal(t, "feature/current-branch", branch)
}

func TestCurrentBranch_NotARepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	_, err := CurrentBranch(t.TempDir())
	assert.Error(t, err)
}
