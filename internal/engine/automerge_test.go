package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	prerrors "prstack.dev/prstack/internal/errors"
	"prstack.dev/prstack/testhelpers/scenario"
)

func TestAutoMerge(t *testing.T) {
	t.Run("waits for approval then merges the whole stack", func(t *testing.T) {
		s := scenario.NewScenario(t, nil)
		s.Commit("a").Commit("b")
		s.Push()

		polls := 0
		s.Host.BeforeList = func(int) {
			polls++
			if polls == 2 {
				s.Host.ApproveAll()
			}
		}

		result, err := s.Engine.AutoMerge(context.Background(), "")
		require.NoError(t, err)

		require.Equal(t, 2, polls)
		require.Len(t, result.Merged, 2)
		require.Contains(t, s.Output.String(), "Waiting")
		branches, err := s.Scene.Repo.RemoteBranches("origin")
		require.NoError(t, err)
		require.Equal(t, result.Merged[1].Hash, branches["main"])
	})

	t.Run("stops when cancelled", func(t *testing.T) {
		s := scenario.NewScenario(t, nil)
		s.Commit("a")
		s.Push()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s.Host.BeforeList = func(int) { cancel() }

		_, err := s.Engine.AutoMerge(ctx, "")
		require.ErrorIs(t, err, context.Canceled)
		s.ExpectRemoteBranches("main", s.Branch("a"))
	})

	t.Run("gives up when behind the target", func(t *testing.T) {
		s := scenario.NewScenario(t, nil)
		s.Commit("a")
		s.Push()
		s.AdvanceTarget("landed elsewhere")

		_, err := s.Engine.AutoMerge(context.Background(), "")
		require.ErrorIs(t, err, prerrors.ErrBehindTarget)
		require.True(t, prerrors.IsWarning(err))
	})

	t.Run("gives up on an empty stack", func(t *testing.T) {
		s := scenario.NewScenario(t, nil)

		_, err := s.Engine.AutoMerge(context.Background(), "")
		require.ErrorIs(t, err, prerrors.ErrEmptyStack)
	})
}
