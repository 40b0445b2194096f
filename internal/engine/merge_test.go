package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	prerrors "prstack.dev/prstack/internal/errors"
	"prstack.dev/prstack/testhelpers"
	"prstack.dev/prstack/testhelpers/scenario"
)

func TestMerge(t *testing.T) {
	t.Run("merges through the last approved commit", func(t *testing.T) {
		s := scenario.NewScenario(t, nil)
		s.Commit("a").Commit("b").Commit("c")
		s.Push()
		s.Approve("a", "b")
		a, b, c := s.PullRequest("a"), s.PullRequest("b"), s.PullRequest("c")
		s.Host.ResetMutations()

		result := s.Merge()

		require.Len(t, result.Merged, 2)
		require.Equal(t, b.Number, result.PullRequest.Number)
		branches, err := s.Scene.Repo.RemoteBranches("origin")
		require.NoError(t, err)
		require.Equal(t, result.Merged[1].Hash, branches["main"])
		s.ExpectRemoteBranches("main", c.HeadRefName)

		require.True(t, s.Host.IsClosed(a.Number))
		require.False(t, s.Host.IsClosed(c.Number))

		mutations := s.Host.Mutations()
		require.Len(t, mutations, 2)
		require.Equal(t, testhelpers.MutationUpdate, mutations[0].Kind)
		require.Equal(t, b.Number, mutations[0].PullRequest.Number)
		require.Equal(t, "main", mutations[0].PullRequest.BaseRefName)
		require.Equal(t, testhelpers.MutationClose, mutations[1].Kind)
		require.Equal(t, a.Number, mutations[1].PullRequest.Number)
		for _, m := range mutations {
			require.NotEqual(t, c.Number, m.PullRequest.Number)
		}

		require.Len(t, s.Status().Commits, 1)
	})

	t.Run("stops before an unapproved commit in the middle", func(t *testing.T) {
		s := scenario.NewScenario(t, nil)
		s.Commit("a").Commit("b").Commit("c")
		s.Push()
		s.Approve("a", "c")
		s.Host.ResetMutations()

		result := s.Merge()

		require.Len(t, result.Merged, 1)
		require.Equal(t, "a", result.Merged[0].ShortMessage)
		branches, err := s.Scene.Repo.RemoteBranches("origin")
		require.NoError(t, err)
		require.Equal(t, result.Merged[0].Hash, branches["main"])
		s.ExpectRemoteBranches("main", s.Branch("b"), s.Branch("c"))
		require.Empty(t, s.Host.Mutations(), "the bottom pull request already targets main")
		require.Contains(t, s.Output.String(), `"b" is awaiting review and waiting for checks`)
	})

	t.Run("merges the prefix of an earlier status", func(t *testing.T) {
		s := scenario.NewScenario(t, nil)
		s.Commit("a").Commit("b").Commit("c")
		s.Push()
		s.Approve("a")
		status := s.Status()
		require.Equal(t, 0, status.MergeableIndex())

		s.Approve("b", "c")
		result, err := s.Engine.MergeStatus(context.Background(), status)
		require.NoError(t, err)

		require.Len(t, result.Merged, 1)
		require.Equal(t, "a", result.Merged[0].ShortMessage)
		require.Equal(t, s.PullRequest("a").Number, result.PullRequest.Number)
		branches, err := s.Scene.Repo.RemoteBranches("origin")
		require.NoError(t, err)
		require.Equal(t, result.Merged[0].Hash, branches["main"])
		s.ExpectRemoteBranches("main", s.Branch("b"), s.Branch("c"))
	})

	t.Run("deletes revision snapshots of merged commits", func(t *testing.T) {
		s := scenario.NewScenario(t, nil)
		s.Commit("a")
		s.Push()
		message, err := s.Scene.Repo.GetMessage("HEAD")
		require.NoError(t, err)
		require.NoError(t, s.Scene.Repo.CreateChange("a2", "change1", false))
		require.NoError(t, s.Scene.Repo.AmendMessage(message))
		s.Push()
		s.Approve("a")
		s.ExpectRemoteBranches("main", s.Branch("a"), s.Branch("a")+"_01")

		result := s.Merge()

		require.Len(t, result.DeletedBranches, 2)
		s.ExpectRemoteBranches("main")
	})

	t.Run("warns when nothing is mergeable", func(t *testing.T) {
		s := scenario.NewScenario(t, nil)
		s.Commit("a")
		s.Push()

		_, err := s.Engine.Merge(context.Background(), "")
		require.ErrorIs(t, err, prerrors.ErrNothingToMerge)
		require.True(t, prerrors.IsWarning(err))
		require.Contains(t, err.Error(), `"a" is awaiting review`)
	})

	t.Run("warns when behind the target", func(t *testing.T) {
		s := scenario.NewScenario(t, nil)
		s.Commit("a")
		s.Push()
		s.Approve("a")
		s.AdvanceTarget("landed elsewhere")

		_, err := s.Engine.Merge(context.Background(), "")
		require.ErrorIs(t, err, prerrors.ErrBehindTarget)
		require.True(t, prerrors.IsWarning(err))
		s.ExpectRemoteBranches("main", s.Branch("a"))
	})

	t.Run("fails on an empty stack", func(t *testing.T) {
		s := scenario.NewScenario(t, nil)

		_, err := s.Engine.Merge(context.Background(), "")
		require.ErrorIs(t, err, prerrors.ErrEmptyStack)
		require.False(t, prerrors.IsWarning(err))
	})
}
