package engine_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"prstack.dev/prstack/internal/engine"
	"prstack.dev/prstack/testhelpers/scenario"
)

func TestStatus(t *testing.T) {
	t.Run("reports unpushed commits", func(t *testing.T) {
		s := scenario.NewScenario(t, nil)
		s.Commit("a").Commit("b")

		status := s.Status()

		require.Len(t, status.Commits, 2)
		for _, c := range status.Commits {
			require.False(t, c.Pushed())
			require.False(t, c.PullRequestExists())
			require.Nil(t, c.ChecksPass)
			require.False(t, c.StackCheck)
		}
		require.Equal(t, "[❌][❌][⌛][❌][❌] : a\n[❌][❌][⌛][❌][❌] : b\n", engine.RenderStatus(status))
	})

	t.Run("reports pushed commits awaiting review", func(t *testing.T) {
		s := scenario.NewScenario(t, nil)
		s.Commit("a")
		s.Push()

		status := s.Status()

		require.Len(t, status.Commits, 1)
		c := status.Commits[0]
		require.True(t, c.Pushed())
		require.True(t, c.PullRequestExists())
		require.Nil(t, c.Approved)
		require.Equal(t, "[✅][✅][⌛][❌][❌] https://github.com/owner/repo/pull/1 : a\n", engine.RenderStatus(status))
	})

	t.Run("stack check requires every earlier position", func(t *testing.T) {
		s := scenario.NewScenario(t, nil)
		s.Commit("a").Commit("b").Commit("c")
		s.Push()
		s.Approve("a", "c")

		status := s.Status()

		var checks []bool
		for _, c := range status.Commits {
			checks = append(checks, c.StackCheck)
		}
		require.Equal(t, []bool{true, false, false}, checks)
		require.True(t, status.Commits[2].Mergeable())
		require.Equal(t, 0, status.MergeableIndex())
		require.False(t, status.Mergeable())
	})

	t.Run("failing checks are reported", func(t *testing.T) {
		s := scenario.NewScenario(t, nil)
		s.Commit("a")
		s.Push()
		pr := s.PullRequest("a")
		s.Host.Approve(pr.Number, true)
		s.Host.SetChecks(pr.Number, false)

		rendered := engine.RenderStatus(s.Status())
		require.True(t, strings.HasPrefix(rendered, "[✅][✅][❌][✅][❌] "))
	})

	t.Run("amended commits are no longer pushed", func(t *testing.T) {
		s := scenario.NewScenario(t, nil)
		s.Commit("a")
		s.Push()
		s.Approve("a")
		require.NoError(t, s.Scene.Repo.CreateChange("amended", "change1", false))
		require.NoError(t, s.Scene.Repo.RunGitCommand("commit", "--quiet", "--amend", "--no-edit", "--no-verify"))

		status := s.Status()
		require.False(t, status.Commits[0].Pushed())
		require.True(t, status.Commits[0].PullRequestExists())
		require.False(t, status.Commits[0].StackCheck)
	})

	t.Run("behind target disables the stack check", func(t *testing.T) {
		s := scenario.NewScenario(t, nil)
		s.Commit("a").Commit("b")
		s.Push()
		s.Approve("a", "b")
		s.AdvanceTarget("landed elsewhere")

		status := s.Status()

		require.Equal(t, 1, status.Behind)
		for _, c := range status.Commits {
			require.True(t, c.Mergeable())
			require.False(t, c.StackCheck)
		}
		rendered := engine.RenderStatus(status)
		require.Contains(t, rendered, "Your stack is 1 commit(s) behind origin/main")
		require.Contains(t, rendered, "git rebase origin/main")
	})

	t.Run("lists held commits as local only", func(t *testing.T) {
		s := scenario.NewScenario(t, nil)
		s.Commit("a").Commit("DONT PUSH debugging")

		status := s.Status()

		require.Len(t, status.Commits, 1)
		require.Len(t, status.Held, 1)
		require.Contains(t, engine.RenderStatus(status), "[ local only ] : DONT PUSH debugging\n")
	})
}
