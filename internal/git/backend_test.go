package git_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	prerrors "prstack.dev/prstack/internal/errors"
	"prstack.dev/prstack/internal/git"
	"prstack.dev/prstack/testhelpers"
)

func forEachBackend(t *testing.T, fn func(t *testing.T, scene *testhelpers.Scene, backend git.Backend)) {
	t.Helper()
	for _, kind := range []git.BackendKind{git.BackendCLI, git.BackendGoGit} {
		t.Run(string(kind), func(t *testing.T) {
			t.Parallel()
			scene := testhelpers.NewSceneParallel(t, testhelpers.StackSceneSetup("a", "b", "c"))
			backend, err := git.NewBackend(kind, scene.Dir, "origin")
			require.NoError(t, err)
			fn(t, scene, backend)
		})
	}
}

func TestLogRange(t *testing.T) {
	t.Parallel()

	t.Run("returns commits oldest first", func(t *testing.T) {
		t.Parallel()
		forEachBackend(t, func(t *testing.T, _ *testhelpers.Scene, backend git.Backend) {
			commits, err := backend.LogRange(context.Background(), "origin/main", "HEAD")
			require.NoError(t, err)

			require.Len(t, commits, 3)
			subjects := []string{commits[0].ShortMessage, commits[1].ShortMessage, commits[2].ShortMessage}
			require.Equal(t, []string{"a", "b", "c"}, subjects)
			require.Equal(t, []string{commits[0].Hash}, commits[1].Parents)
			require.Equal(t, "test@example.com", commits[2].CommitterEmail)
			require.False(t, commits[2].CommitDate.IsZero())
		})
	})

	t.Run("reads commit ids from trailers", func(t *testing.T) {
		t.Parallel()
		forEachBackend(t, func(t *testing.T, scene *testhelpers.Scene, backend git.Backend) {
			require.NoError(t, scene.Repo.CommitWithMessage("d\n\nBody.\n\ncommit-id: 0123abcd\n"))

			commits, err := backend.LogRange(context.Background(), "HEAD~1", "HEAD")
			require.NoError(t, err)
			require.Len(t, commits, 1)
			require.Equal(t, "0123abcd", commits[0].ID)
			require.Equal(t, "d", commits[0].ShortMessage)
		})
	})

	t.Run("returns merge commits with both parents", func(t *testing.T) {
		t.Parallel()
		forEachBackend(t, func(t *testing.T, scene *testhelpers.Scene, backend git.Backend) {
			require.NoError(t, scene.Repo.CreateAndCheckoutBranch("side"))
			require.NoError(t, scene.Repo.CreateChangeAndCommit("side", "side"))
			require.NoError(t, scene.Repo.CheckoutBranch("main"))
			require.NoError(t, scene.Repo.MergeNoFF("side"))

			commits, err := backend.LogRange(context.Background(), "origin/main", "HEAD")
			require.NoError(t, err)
			require.Len(t, commits, 5)
			require.True(t, commits[4].IsMerge())
			for _, c := range commits[:4] {
				require.False(t, c.IsMerge())
			}
		})
	})

	t.Run("is empty when until is an ancestor of since", func(t *testing.T) {
		t.Parallel()
		forEachBackend(t, func(t *testing.T, _ *testhelpers.Scene, backend git.Backend) {
			commits, err := backend.LogRange(context.Background(), "HEAD", "origin/main")
			require.NoError(t, err)
			require.Empty(t, commits)
		})
	})

	t.Run("fails on unresolvable refs", func(t *testing.T) {
		t.Parallel()
		forEachBackend(t, func(t *testing.T, _ *testhelpers.Scene, backend git.Backend) {
			_, err := backend.LogRange(context.Background(), "origin/nope", "HEAD")
			require.ErrorIs(t, err, prerrors.ErrUnresolvableRef)
		})
	})
}

func TestRepositoryState(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, scene *testhelpers.Scene, backend git.Backend) {
		ctx := context.Background()

		head, err := backend.ResolveRef(ctx, "HEAD")
		require.NoError(t, err)
		require.Equal(t, testhelpers.Must(scene.Repo.GetRevision("HEAD")), head)

		branch, err := backend.CurrentBranch(ctx)
		require.NoError(t, err)
		require.Equal(t, "main", branch)

		url, err := backend.RemoteURL(ctx)
		require.NoError(t, err)
		require.Equal(t, scene.RemoteDir, url)

		remote, err := backend.GetRemoteBranches(ctx)
		require.NoError(t, err)
		require.Len(t, remote, 1)
		require.Equal(t, "main", remote[0].Name)
		require.Equal(t, testhelpers.Must(scene.Repo.GetRevision("origin/main")), remote[0].Commit.Hash)

		clean, err := backend.IsWorkingDirectoryClean(ctx)
		require.NoError(t, err)
		require.True(t, clean)

		require.NoError(t, os.WriteFile(filepath.Join(scene.Dir, "untracked.txt"), []byte("x"), 0o600))
		clean, err = backend.IsWorkingDirectoryClean(ctx)
		require.NoError(t, err)
		require.True(t, clean, "untracked files do not make the tree dirty")

		require.NoError(t, scene.Repo.CreateChange("modified", "a", true))
		clean, err = backend.IsWorkingDirectoryClean(ctx)
		require.NoError(t, err)
		require.False(t, clean)

		require.NoError(t, scene.Repo.RunGitCommand("checkout", "--quiet", "--", "."))
		require.NoError(t, scene.Repo.CheckoutDetached("HEAD~1"))
		branch, err = backend.CurrentBranch(ctx)
		require.NoError(t, err)
		require.Empty(t, branch)
	})
}

func TestHistoryRewriting(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, scene *testhelpers.Scene, backend git.Backend) {
		ctx := context.Background()
		commits, err := backend.LogRange(ctx, "origin/main", "HEAD")
		require.NoError(t, err)

		previous, err := backend.Branch(ctx, "stack", "HEAD", false)
		require.NoError(t, err)
		require.Nil(t, previous)

		require.NoError(t, backend.Reset(ctx, commits[0].Hash))
		picked, err := backend.CherryPick(ctx, commits[2])
		require.NoError(t, err)
		require.Equal(t, "c", picked.ShortMessage)
		require.Equal(t, []string{commits[0].Hash}, picked.Parents)

		amended, err := backend.Amend(ctx, git.AddTrailer(picked.FullMessage, git.CommitIDTrailer, "cafef00d"))
		require.NoError(t, err)
		require.Equal(t, "cafef00d", amended.ID)
		require.NotEqual(t, picked.Hash, amended.Hash)

		committed, err := backend.Commit(ctx, "d", []git.Trailer{{Key: git.CommitIDTrailer, Value: "deadbeef"}})
		require.NoError(t, err)
		require.Equal(t, "deadbeef", committed.ID)
		require.Equal(t, []string{amended.Hash}, committed.Parents)

		previous, err = backend.Branch(ctx, "stack", "HEAD", true)
		require.NoError(t, err)
		require.NotNil(t, previous)
		require.Equal(t, commits[2].Hash, previous.Hash)

		require.NoError(t, backend.Checkout(ctx, "stack"))
		branch, err := backend.CurrentBranch(ctx)
		require.NoError(t, err)
		require.Equal(t, "stack", branch)

		deleted, err := backend.DeleteBranches(ctx, []string{"main"}, true)
		require.NoError(t, err)
		require.Equal(t, []string{"main"}, deleted)
		branches, err := scene.Repo.GetLocalBranches()
		require.NoError(t, err)
		require.Equal(t, []string{"stack"}, branches)
	})
}

func TestPush(t *testing.T) {
	t.Parallel()

	t.Run("pushes, forces and deletes in one push", func(t *testing.T) {
		t.Parallel()
		forEachBackend(t, func(t *testing.T, scene *testhelpers.Scene, backend git.Backend) {
			ctx := context.Background()
			require.NoError(t, backend.Push(ctx, []git.RefSpec{
				git.NewBranchRefSpec("HEAD~1", "stack/one"),
				git.NewBranchRefSpec("HEAD", "stack/two"),
			}))
			require.NoError(t, backend.Push(ctx, []git.RefSpec{
				git.NewBranchRefSpec(testhelpers.Must(scene.Repo.GetRevision("HEAD~2")), "stack/two").ForcePush(),
				git.NewDeleteRefSpec("stack/one"),
			}))

			branches, err := scene.Repo.RemoteBranches("origin")
			require.NoError(t, err)
			require.NotContains(t, branches, "stack/one")
			require.Equal(t, testhelpers.Must(scene.Repo.GetRevision("HEAD~2")), branches["stack/two"])

			require.NoError(t, backend.Fetch(ctx, ""))
			remote, err := backend.GetRemoteBranches(ctx)
			require.NoError(t, err)
			names := make([]string, 0, len(remote))
			for _, b := range remote {
				names = append(names, b.Name)
			}
			require.ElementsMatch(t, []string{"main", "stack/two"}, names)
		})
	})

	t.Run("rejects every ref when one is rejected", func(t *testing.T) {
		t.Parallel()
		forEachBackend(t, func(t *testing.T, scene *testhelpers.Scene, backend git.Backend) {
			ctx := context.Background()
			require.NoError(t, scene.Repo.PushBranch("origin", "main"))

			err := backend.Push(ctx, []git.RefSpec{
				git.NewBranchRefSpec("HEAD", "stack/new"),
				git.NewBranchRefSpec("HEAD~1", "main"),
			})
			require.ErrorIs(t, err, prerrors.ErrPushRejected)

			branches, err := scene.Repo.RemoteBranches("origin")
			require.NoError(t, err)
			require.NotContains(t, branches, "stack/new")
			require.Equal(t, testhelpers.Must(scene.Repo.GetRevision("HEAD")), branches["main"])
		})
	})

	t.Run("does nothing without refspecs", func(t *testing.T) {
		t.Parallel()
		forEachBackend(t, func(t *testing.T, _ *testhelpers.Scene, backend git.Backend) {
			require.NoError(t, backend.Push(context.Background(), nil))
		})
	})
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	_, err := git.NewBackend("libgit2", t.TempDir(), "origin")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "unknown git backend"))
}
