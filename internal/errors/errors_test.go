package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	prerrors "prstack.dev/prstack/internal/errors"
)

func TestPreconditionError(t *testing.T) {
	t.Run("matches its sentinel through wrapping", func(t *testing.T) {
		err := fmt.Errorf("push: %w", prerrors.NewPreconditionError(prerrors.ErrMergeCommit, "commit %s has 2 parents", "abc123"))

		require.ErrorIs(t, err, prerrors.ErrMergeCommit)
		require.False(t, prerrors.IsWarning(err))
		require.Contains(t, err.Error(), "commit abc123 has 2 parents")
	})

	t.Run("falls back to the sentinel message", func(t *testing.T) {
		err := &prerrors.PreconditionError{Err: prerrors.ErrDirtyWorkingTree}
		require.Equal(t, "working directory is not clean", err.Error())
	})
}

func TestWarning(t *testing.T) {
	err := fmt.Errorf("merge: %w", prerrors.NewWarning(prerrors.ErrBehindTarget, "3 commits behind %s", "origin/main"))

	require.True(t, prerrors.IsWarning(err))
	require.ErrorIs(t, err, prerrors.ErrBehindTarget)

	var w *prerrors.Warning
	require.True(t, errors.As(err, &w))
	require.Equal(t, "3 commits behind origin/main", w.Message)
}

func TestHostAPIError(t *testing.T) {
	cause := errors.New("boom")
	err := prerrors.NewHostAPIError("create pull request", 422, "A pull request already exists", cause)

	require.ErrorIs(t, err, cause)
	require.Equal(t, "create pull request failed (HTTP 422): A pull request already exists", err.Error())
}

func TestGitCommandError(t *testing.T) {
	cause := errors.New("exit status 1")
	err := prerrors.NewGitCommandError("git", []string{"push", "origin"}, "", "rejected", cause)

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "stderr: rejected")
	require.Contains(t, err.Error(), "[push origin]")
}
