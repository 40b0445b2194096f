package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"prstack.dev/prstack/internal/git"
)

func isolate(t *testing.T) (repoRoot string, userConfig string) {
	t.Helper()
	dir := t.TempDir()
	userConfig = filepath.Join(dir, "user.yml")
	t.Setenv("PRSTACK_USER_CONFIG", userConfig)
	for _, key := range []string{"PRSTACK_REMOTE", "PRSTACK_TARGET", "PRSTACK_PREFIX", "PRSTACK_BACKEND", "DEBUG", "NO_COLOR"} {
		t.Setenv(key, "")
	}
	repoRoot = filepath.Join(dir, "repo")
	require.NoError(t, os.MkdirAll(repoRoot, 0o755))
	return repoRoot, userConfig
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad(t *testing.T) {
	t.Run("returns defaults when nothing is configured", func(t *testing.T) {
		repoRoot, _ := isolate(t)

		cfg, err := Load(repoRoot, Overrides{})
		require.NoError(t, err)
		require.Equal(t, repoRoot, cfg.WorkingDirectory)
		require.Equal(t, "origin", cfg.RemoteName)
		require.Equal(t, "main", cfg.TargetRef)
		require.Equal(t, "prstack", cfg.RemoteBranchPrefix)
		require.Equal(t, 8, cfg.CommitIDLength)
		require.Equal(t, 10*time.Second, cfg.PollInterval)
		require.Equal(t, git.BackendCLI, cfg.Backend)
		require.Equal(t, "origin/main", cfg.RemoteTargetRef())
	})

	t.Run("repo file overrides user file", func(t *testing.T) {
		repoRoot, userConfig := isolate(t)
		writeFile(t, userConfig, "remote: upstream\ntarget: develop\n")
		writeFile(t, RepoConfigPath(repoRoot), "target: trunk\npollInterval: 3s\nbackend: gogit\n")

		cfg, err := Load(repoRoot, Overrides{})
		require.NoError(t, err)
		require.Equal(t, "upstream", cfg.RemoteName)
		require.Equal(t, "trunk", cfg.TargetRef)
		require.Equal(t, 3*time.Second, cfg.PollInterval)
		require.Equal(t, git.BackendGoGit, cfg.Backend)
	})

	t.Run("environment overrides files and flags override environment", func(t *testing.T) {
		repoRoot, _ := isolate(t)
		writeFile(t, RepoConfigPath(repoRoot), "prefix: stacks\ntarget: trunk\n")
		t.Setenv("PRSTACK_PREFIX", "env-prefix")
		t.Setenv("PRSTACK_TARGET", "env-target")

		cfg, err := Load(repoRoot, Overrides{Target: "flag-target", Verbose: true})
		require.NoError(t, err)
		require.Equal(t, "env-prefix", cfg.RemoteBranchPrefix)
		require.Equal(t, "flag-target", cfg.TargetRef)
		require.True(t, cfg.Verbose)
	})

	t.Run("clamps commit id length", func(t *testing.T) {
		repoRoot, _ := isolate(t)
		writeFile(t, RepoConfigPath(repoRoot), "commitIdLength: 4\n")
		cfg, err := Load(repoRoot, Overrides{})
		require.NoError(t, err)
		require.Equal(t, MinCommitIDLength, cfg.CommitIDLength)

		writeFile(t, RepoConfigPath(repoRoot), "commitIdLength: 64\n")
		cfg, err = Load(repoRoot, Overrides{})
		require.NoError(t, err)
		require.Equal(t, MaxCommitIDLength, cfg.CommitIDLength)
	})

	t.Run("rejects unknown backend", func(t *testing.T) {
		repoRoot, _ := isolate(t)
		_, err := Load(repoRoot, Overrides{Backend: "libgit2"})
		require.ErrorContains(t, err, "unknown git backend")
	})

	t.Run("rejects malformed files", func(t *testing.T) {
		repoRoot, _ := isolate(t)
		writeFile(t, RepoConfigPath(repoRoot), "remote: [unterminated\n")
		_, err := Load(repoRoot, Overrides{})
		require.ErrorContains(t, err, "failed to parse")
	})

	t.Run("rejects invalid poll interval", func(t *testing.T) {
		repoRoot, _ := isolate(t)
		writeFile(t, RepoConfigPath(repoRoot), "pollInterval: soon\n")
		_, err := Load(repoRoot, Overrides{})
		require.ErrorContains(t, err, "invalid pollInterval")
	})

	t.Run("rejects invalid dont-push pattern", func(t *testing.T) {
		repoRoot, _ := isolate(t)
		writeFile(t, RepoConfigPath(repoRoot), "dontPushPattern: \"(\"\n")
		_, err := Load(repoRoot, Overrides{})
		require.ErrorContains(t, err, "invalid dontPushPattern")
	})
}

func TestDontPushRegexp(t *testing.T) {
	t.Parallel()

	re, err := Default("").DontPushRegexp()
	require.NoError(t, err)

	for _, subject := range []string{"dont push", "DONT PUSH: scratch", "dontpush", "dont-push yet"} {
		require.True(t, re.MatchString(subject), subject)
	}
	for _, subject := range []string{"dont-pushing", "don't push", "add dont push marker", "dontpush_x"} {
		require.False(t, re.MatchString(subject), subject)
	}
}

func TestFileConfigRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), RepoConfigFile)
	remote := "upstream"
	length := 12
	require.NoError(t, WriteFileConfig(path, &FileConfig{Remote: &remote, CommitIDLength: &length}))

	fc, err := ReadFileConfig(path)
	require.NoError(t, err)
	require.Equal(t, "upstream", *fc.Remote)
	require.Equal(t, 12, *fc.CommitIDLength)
	require.Nil(t, fc.Target)

	missing, err := ReadFileConfig(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	require.Nil(t, missing.Remote)
}
