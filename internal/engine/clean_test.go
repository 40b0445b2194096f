package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"prstack.dev/prstack/internal/engine"
	"prstack.dev/prstack/testhelpers/scenario"
)

func TestCleanOrphans(t *testing.T) {
	t.Run("reports branches without an open pull request", func(t *testing.T) {
		s := scenario.NewScenario(t, nil)
		s.Commit("a").Commit("b")
		s.Push()
		a, b := s.PullRequest("a"), s.PullRequest("b")
		require.NoError(t, s.Host.ClosePullRequest(context.Background(), a))
		require.NoError(t, s.Scene.Repo.ForcePushRef("origin", "HEAD", "feature"))

		orphans, err := s.Engine.CleanOrphans(context.Background(), engine.CleanOptions{})
		require.NoError(t, err)

		require.Equal(t, []string{a.HeadRefName}, orphans)
		s.ExpectRemoteBranches("main", "feature", a.HeadRefName, b.HeadRefName)
		require.Contains(t, s.Output.String(), "--force")
	})

	t.Run("deletes orphans with force", func(t *testing.T) {
		s := scenario.NewScenario(t, nil)
		s.Commit("a").Commit("b")
		s.Push()
		a, b := s.PullRequest("a"), s.PullRequest("b")
		require.NoError(t, s.Scene.Repo.ForcePushRef("origin", "HEAD~1", a.HeadRefName+"_01"))
		require.NoError(t, s.Host.ClosePullRequest(context.Background(), a))

		orphans, err := s.Engine.CleanOrphans(context.Background(), engine.CleanOptions{Force: true})
		require.NoError(t, err)

		require.Equal(t, []string{a.HeadRefName, a.HeadRefName + "_01"}, orphans)
		s.ExpectRemoteBranches("main", b.HeadRefName)
	})

	t.Run("keeps revision snapshots of open pull requests", func(t *testing.T) {
		s := scenario.NewScenario(t, nil)
		s.Commit("a")
		s.Push()
		a := s.PullRequest("a")
		require.NoError(t, s.Scene.Repo.ForcePushRef("origin", "HEAD", a.HeadRefName+"_01"))

		orphans, err := s.Engine.CleanOrphans(context.Background(), engine.CleanOptions{Force: true})
		require.NoError(t, err)

		require.Empty(t, orphans)
		s.ExpectRemoteBranches("main", a.HeadRefName, a.HeadRefName+"_01")
		require.Contains(t, s.Output.String(), "No orphaned branches")
	})
}
