package runtime

import (
	"context"
	"fmt"
	"io"
	"os"

	"prstack.dev/prstack/internal/config"
	"prstack.dev/prstack/internal/engine"
	"prstack.dev/prstack/internal/git"
	"prstack.dev/prstack/internal/github"
	"prstack.dev/prstack/internal/refname"
	"prstack.dev/prstack/internal/tui"
)

// HostFactory builds the review host client for a repository
type HostFactory func(ctx context.Context, cfg config.Config, backend git.Backend) (github.Client, error)

// Options controls how a Context is built
type Options struct {
	// WorkingDir is where repository discovery starts; defaults to the process working directory
	WorkingDir string
	Overrides  config.Overrides
	// Out receives console output; defaults to os.Stdout
	Out io.Writer
	// NewHost replaces the GitHub client, e.g. with an in-memory host
	NewHost HostFactory
}

// Context provides access to the engine and output for commands
type Context struct {
	context.Context
	Config config.Config
	Git    git.Backend
	Host   github.Client
	Engine *engine.Engine
	Splog  *tui.Splog
}

// NewContext loads configuration for the repository containing
// opts.WorkingDir and builds everything a command needs
func NewContext(ctx context.Context, opts Options) (*Context, error) {
	dir := opts.WorkingDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}

	root, err := git.FindRepoRoot(dir)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(root, opts.Overrides)
	if err != nil {
		return nil, err
	}
	if cfg.NoColor {
		tui.DisableColor()
	}

	splog, err := tui.NewSplogWithOptions(tui.SplogOptions{
		Writer:      opts.Out,
		LogFilePath: tui.GetLogFilePath(),
		Verbose:     cfg.Verbose,
	})
	if err != nil {
		return nil, err
	}

	backend, err := git.NewBackend(cfg.Backend, cfg.WorkingDirectory, cfg.RemoteName)
	if err != nil {
		_ = splog.Close()
		return nil, err
	}

	newHost := opts.NewHost
	if newHost == nil {
		newHost = NewGitHubHost
	}
	host, err := newHost(ctx, cfg, backend)
	if err != nil {
		_ = splog.Close()
		return nil, err
	}

	eng, err := engine.New(cfg, backend, host, splog)
	if err != nil {
		_ = splog.Close()
		return nil, err
	}

	splog.Debug("repository %s, remote %s, target %s, backend %s", cfg.WorkingDirectory, cfg.RemoteName, cfg.TargetRef, cfg.Backend)
	return &Context{
		Context: ctx,
		Config:  cfg,
		Git:     backend,
		Host:    host,
		Engine:  eng,
		Splog:   splog,
	}, nil
}

// NewGitHubHost creates a go-github backed client for the repository the
// configured remote points at
func NewGitHubHost(ctx context.Context, cfg config.Config, backend git.Backend) (github.Client, error) {
	remoteURL, err := backend.RemoteURL(ctx)
	if err != nil {
		return nil, err
	}
	repo, err := github.ParseGitHubRemoteURL(remoteURL)
	if err != nil {
		return nil, err
	}
	if cfg.GitHubHost != "" {
		repo.Hostname = cfg.GitHubHost
	}

	token, err := github.GetGitHubToken(ctx)
	if err != nil {
		return nil, err
	}
	gh, err := github.NewGitHubClient(ctx, repo.Hostname, token)
	if err != nil {
		return nil, err
	}
	return github.NewRESTClient(gh, repo, refname.NewCodec(cfg.RemoteBranchPrefix)), nil
}

// Close flushes the log file
func (c *Context) Close() error {
	return c.Splog.Close()
}
