package engine

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"prstack.dev/prstack/internal/config"
	"prstack.dev/prstack/internal/git"
	"prstack.dev/prstack/internal/github"
	"prstack.dev/prstack/internal/tui"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	splog, err := tui.NewSplogWithOptions(tui.SplogOptions{Writer: io.Discard})
	require.NoError(t, err)
	e, err := New(config.Default(t.TempDir()), nil, nil, splog)
	require.NoError(t, err)
	return e
}

func TestRevisionHistory(t *testing.T) {
	e := newTestEngine(t)
	branches := []git.RemoteBranch{
		{Name: "main", Commit: git.Commit{Hash: "m"}},
		{Name: "prstack/main/aaaa", Commit: git.Commit{Hash: "a3"}},
		{Name: "prstack/main/aaaa_02", Commit: git.Commit{Hash: "a2"}},
		{Name: "prstack/main/aaaa_01", Commit: git.Commit{Hash: "a1"}},
		{Name: "prstack/main/bbbb", Commit: git.Commit{Hash: "b1"}},
		{Name: "prstack/release/aaaa_07", Commit: git.Commit{Hash: "r"}},
	}

	history := e.revisionHistory(branches)

	require.Len(t, history, 2)
	require.Equal(t, []int{1, 2}, history["aaaa"].revisions)
	require.Equal(t, "a3", history["aaaa"].current.Commit.Hash)
	require.Equal(t, 3, history["aaaa"].nextRevision())
	require.Equal(t, 1, history["bbbb"].nextRevision())

	t.Run("snapshots the current tip of out-of-date branches", func(t *testing.T) {
		specs := e.revisionSnapshots([]git.Commit{
			{Hash: "a4", ID: "aaaa"},
			{Hash: "b2", ID: "bbbb"},
			{Hash: "c1", ID: "cccc"},
		}, history)

		require.Equal(t, []string{
			"a3:refs/heads/prstack/main/aaaa_03",
			"b1:refs/heads/prstack/main/bbbb_01",
		}, []string{specs[0].String(), specs[1].String()})
		require.Len(t, specs, 2)
		require.Equal(t, []int{1, 2, 3}, history["aaaa"].revisions)
	})
}

func TestRenderBody(t *testing.T) {
	e := newTestEngine(t)
	repo := github.RepoInfo{Hostname: "github.com", Owner: "o", Repo: "r"}
	stack := []git.Commit{
		{ID: "aaaa", FullMessage: "Add a\n\nDetails here.\n\ncommit-id: aaaa\n"},
		{ID: "bbbb", FullMessage: "Add b"},
	}
	prs := []github.PullRequest{{Number: 4}, {Number: 7}}
	history := map[string]*branchHistory{"aaaa": {revisions: []int{1}}}

	body := e.renderBody(repo, stack, 0, prs, history)

	require.Equal(t, "Details here.\n\n"+
		"---\n\n**Stack**:\n- #7\n- #4 ⬅\n"+
		"  - [01..Current](https://github.com/o/r/compare/prstack/main/aaaa_01..prstack/main/aaaa)\n"+
		"\n⚠️ *Part of a stack managed by prstack. Merge with `prstack merge` rather than the web UI.*", body)

	t.Run("lists revisions under every entry", func(t *testing.T) {
		body := e.renderBody(repo, stack, 1, prs, history)
		require.Equal(t, "---\n\n**Stack**:\n- #7 ⬅\n- #4\n"+
			"  - [01..Current](https://github.com/o/r/compare/prstack/main/aaaa_01..prstack/main/aaaa)\n"+
			"\n⚠️ *Part of a stack managed by prstack. Merge with `prstack merge` rather than the web UI.*", body)
	})

	t.Run("omits links for commits pushed once", func(t *testing.T) {
		body := e.renderBody(repo, stack, 1, prs, map[string]*branchHistory{})
		require.NotContains(t, body, "compare")
		require.Contains(t, body, "- #7 ⬅\n- #4\n")
	})
}

func TestSplitDontPush(t *testing.T) {
	e := newTestEngine(t)
	stack := []git.Commit{{ShortMessage: "a"}, {ShortMessage: "Dont-Push: wip"}, {ShortMessage: "c"}}

	pushable, held := e.splitDontPush(stack)
	require.Len(t, pushable, 1)
	require.Len(t, held, 2)

	pushable, held = e.splitDontPush(stack[2:])
	require.Len(t, pushable, 1)
	require.Empty(t, held)
}
