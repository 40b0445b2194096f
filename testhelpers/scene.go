package testhelpers

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Scene is a temporary repository with a bare "origin" remote whose main
// branch holds a single initial commit
type Scene struct {
	Dir       string
	RemoteDir string
	Repo      *GitRepo
}

// SceneSetup customizes a scene after the initial commit has been pushed
type SceneSetup func(*Scene) error

// NewScene creates a scene and isolates the process environment for it:
// global git config, the prstack log file, user config and interactive
// prompts. It uses t.Setenv and must not be used from parallel tests.
func NewScene(t *testing.T, setup SceneSetup) *Scene {
	t.Helper()

	home := t.TempDir()
	t.Setenv("GIT_CONFIG_GLOBAL", "/dev/null")
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("PRSTACK_LOG_FILE", filepath.Join(home, "prstack.log"))
	t.Setenv("PRSTACK_USER_CONFIG", filepath.Join(home, "prstack.yml"))
	t.Setenv("PRSTACK_NO_INTERACTIVE", "1")
	for _, key := range []string{"PRSTACK_REMOTE", "PRSTACK_TARGET", "PRSTACK_PREFIX", "PRSTACK_BACKEND", "GITHUB_TOKEN"} {
		t.Setenv(key, "")
	}

	return NewSceneParallel(t, setup)
}

// NewSceneParallel creates a scene without touching the process environment
func NewSceneParallel(t *testing.T, setup SceneSetup) *Scene {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "repo")
	repo, err := NewGitRepo(dir)
	require.NoError(t, err, "failed to create git repo")

	remoteDir, err := repo.CreateBareRemote("origin")
	require.NoError(t, err, "failed to create remote")

	require.NoError(t, repo.CreateChangeAndCommit("initial", "init"))
	require.NoError(t, repo.PushBranch("origin", "main"))
	require.NoError(t, repo.Fetch("origin"))

	scene := &Scene{
		Dir:       dir,
		RemoteDir: remoteDir,
		Repo:      repo,
	}
	if setup != nil {
		require.NoError(t, setup(scene), "scene setup failed")
	}
	return scene
}

// BasicSceneSetup adds a single local commit on top of origin/main
func BasicSceneSetup(scene *Scene) error {
	return scene.Repo.CreateChangeAndCommit("1", "1")
}

// StackSceneSetup returns a setup that commits one change per subject
func StackSceneSetup(subjects ...string) SceneSetup {
	return func(scene *Scene) error {
		for _, subject := range subjects {
			if err := scene.Repo.CreateChangeAndCommit(subject, subject); err != nil {
				return err
			}
		}
		return nil
	}
}
