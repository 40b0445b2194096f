// Package scenario combines a Scene, a FakeHost and an Engine into a terse
// API for engine integration tests.
package scenario

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"prstack.dev/prstack/internal/config"
	"prstack.dev/prstack/internal/engine"
	"prstack.dev/prstack/internal/git"
	"prstack.dev/prstack/internal/github"
	"prstack.dev/prstack/internal/tui"
	"prstack.dev/prstack/testhelpers"
)

// Scenario is a repository with an origin remote, a fake review host and
// an engine wired to both
type Scenario struct {
	T      *testing.T
	Scene  *testhelpers.Scene
	Host   *testhelpers.FakeHost
	Engine *engine.Engine
	Config config.Config
	// Output collects everything the engine logged to the console
	Output *bytes.Buffer

	changes int
}

// Option adjusts the engine configuration of a scenario
type Option func(*config.Config)

// WithBackend selects the git backend
func WithBackend(kind git.BackendKind) Option {
	return func(cfg *config.Config) {
		cfg.Backend = kind
	}
}

// WithPollInterval sets the auto-merge polling delay
func WithPollInterval(d time.Duration) Option {
	return func(cfg *config.Config) {
		cfg.PollInterval = d
	}
}

// NewScenario creates a scenario. It uses t.Setenv and must not be used
// from parallel tests.
func NewScenario(t *testing.T, setup testhelpers.SceneSetup, opts ...Option) *Scenario {
	t.Helper()

	scene := testhelpers.NewScene(t, setup)

	cfg := config.Default(scene.Dir)
	cfg.PollInterval = 10 * time.Millisecond
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg, err := cfg.Validate()
	require.NoError(t, err)

	backend, err := git.NewBackend(cfg.Backend, scene.Dir, cfg.RemoteName)
	require.NoError(t, err)

	var output bytes.Buffer
	splog, err := tui.NewSplogWithOptions(tui.SplogOptions{Writer: &output, Verbose: true})
	require.NoError(t, err)

	host := testhelpers.NewSceneHost(scene, cfg.RemoteBranchPrefix)
	eng, err := engine.New(cfg, backend, host, splog)
	require.NoError(t, err)

	return &Scenario{
		T:      t,
		Scene:  scene,
		Host:   host,
		Engine: eng,
		Config: cfg,
		Output: &output,
	}
}

// Commit commits a new file with subject as the whole message
func (s *Scenario) Commit(subject string) *Scenario {
	s.T.Helper()
	s.changes++
	err := s.Scene.Repo.CreateChange(subject, fmt.Sprintf("change%d", s.changes), false)
	require.NoError(s.T, err)
	require.NoError(s.T, s.Scene.Repo.CommitWithMessage(subject))
	return s
}

// CommitWithID commits a new file with a commit-id trailer already present
func (s *Scenario) CommitWithID(subject, id string) *Scenario {
	s.T.Helper()
	s.changes++
	err := s.Scene.Repo.CreateChange(subject, fmt.Sprintf("change%d", s.changes), false)
	require.NoError(s.T, err)
	require.NoError(s.T, s.Scene.Repo.CommitWithMessage(git.AddTrailer(subject, git.CommitIDTrailer, id)))
	return s
}

// RunGit runs a git command in the scenario's repository
func (s *Scenario) RunGit(args ...string) *Scenario {
	s.T.Helper()
	require.NoError(s.T, s.Scene.Repo.RunGitCommand(args...))
	return s
}

// Reorder rewrites the local stack into the given subject order
func (s *Scenario) Reorder(subjects ...string) *Scenario {
	s.T.Helper()
	require.NoError(s.T, s.Scene.Repo.Reorder(s.Config.RemoteTargetRef(), subjects...))
	return s
}

// AdvanceTarget lands a commit on the remote target ref behind the stack's back
func (s *Scenario) AdvanceTarget(subject string) *Scenario {
	s.T.Helper()
	repo := s.Scene.Repo
	branch, err := repo.CurrentBranchName()
	require.NoError(s.T, err)

	require.NoError(s.T, repo.CheckoutDetached(s.Config.RemoteTargetRef()))
	s.Commit(subject)
	require.NoError(s.T, repo.RunGitCommand("push", "--quiet", s.Config.RemoteName, "HEAD:refs/heads/"+s.Config.TargetRef))
	require.NoError(s.T, repo.CheckoutBranch(branch))
	return s
}

// Push runs a push and requires it to succeed
func (s *Scenario) Push() *engine.PushResult {
	s.T.Helper()
	result, err := s.Engine.Push(context.Background(), "", engine.PushOptions{})
	require.NoError(s.T, err)
	return result
}

// Status returns the stack status and requires it to succeed
func (s *Scenario) Status() *engine.StackStatus {
	s.T.Helper()
	status, err := s.Engine.Status(context.Background(), "")
	require.NoError(s.T, err)
	return status
}

// Merge runs a merge and requires it to succeed
func (s *Scenario) Merge() *engine.MergeResult {
	s.T.Helper()
	result, err := s.Engine.Merge(context.Background(), "")
	require.NoError(s.T, err)
	return result
}

// PullRequest returns the most recent pull request with a title
func (s *Scenario) PullRequest(title string) github.PullRequest {
	s.T.Helper()
	pr, ok := s.Host.PullRequestByTitle(title)
	require.True(s.T, ok, "no pull request titled %q", title)
	return pr
}

// Approve approves the pull request titled title and marks its checks passing
func (s *Scenario) Approve(titles ...string) *Scenario {
	s.T.Helper()
	for _, title := range titles {
		pr := s.PullRequest(title)
		s.Host.Approve(pr.Number, true)
		s.Host.SetChecks(pr.Number, true)
	}
	return s
}

// Branch returns the encoded remote branch of the commit with a subject
func (s *Scenario) Branch(subject string) string {
	s.T.Helper()
	return s.PullRequest(subject).HeadRefName
}

// ExpectPullRequestChain asserts the open pull requests, oldest first
func (s *Scenario) ExpectPullRequestChain(titles ...string) *Scenario {
	s.T.Helper()
	testhelpers.ExpectPullRequestChain(s.T, s.Host, s.Config.TargetRef, titles...)
	return s
}

// ExpectRemoteBranches asserts the exact set of branches on origin
func (s *Scenario) ExpectRemoteBranches(expected ...string) *Scenario {
	s.T.Helper()
	testhelpers.ExpectRemoteBranches(s.T, s.Scene.Repo, s.Config.RemoteName, expected)
	return s
}

// ExpectLocalStack asserts the subjects between the target ref and HEAD
func (s *Scenario) ExpectLocalStack(subjects ...string) *Scenario {
	s.T.Helper()
	testhelpers.ExpectSubjects(s.T, s.Scene.Repo, s.Config.RemoteTargetRef()+"..HEAD", subjects)
	return s
}
