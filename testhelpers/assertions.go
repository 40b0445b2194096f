// Package testhelpers provides fixtures for prstack tests: real git
// repositories with a bare remote, an httptest GitHub server, and an
// in-memory review host.
package testhelpers

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// Must panics if err is not nil, otherwise returns val
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// ExpectRemoteBranches asserts the exact set of branches on a remote
func ExpectRemoteBranches(t *testing.T, repo *GitRepo, remote string, expected []string) {
	t.Helper()

	actual, err := repo.RemoteBranchNames(remote)
	require.NoError(t, err, "failed to list remote branches")

	expected = append([]string(nil), expected...)
	sort.Strings(expected)
	require.Equal(t, expected, actual, "remote branches do not match")
}

// ExpectSubjects asserts the commit subjects in a revision range, oldest first
func ExpectSubjects(t *testing.T, repo *GitRepo, revRange string, expected []string) {
	t.Helper()

	actual, err := repo.ListSubjects(revRange)
	require.NoError(t, err, "failed to list commits")
	require.Equal(t, expected, actual, "commits do not match")
}

// ExpectPullRequestChain asserts that the open pull requests titled titles
// (oldest first) are chained base to head, with the first based on target
func ExpectPullRequestChain(t *testing.T, host *FakeHost, target string, titles ...string) {
	t.Helper()

	open := host.OpenPullRequests()
	require.Len(t, open, len(titles), "unexpected number of open pull requests")

	base := target
	for _, title := range titles {
		pr, ok := host.PullRequestByTitle(title)
		require.True(t, ok, "no pull request titled %q", title)
		require.False(t, host.IsClosed(pr.Number), "pull request %q is closed", title)
		require.Equal(t, base, pr.BaseRefName, "base of %q", title)
		base = pr.HeadRefName
	}
}
