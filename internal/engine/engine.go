package engine

import (
	"context"
	"fmt"
	"regexp"

	"prstack.dev/prstack/internal/config"
	"prstack.dev/prstack/internal/git"
	"prstack.dev/prstack/internal/github"
	"prstack.dev/prstack/internal/refname"
	"prstack.dev/prstack/internal/tui"
)

// Engine runs stack operations against a git backend and a review host
type Engine struct {
	cfg      config.Config
	git      git.Backend
	host     github.Client
	splog    *tui.Splog
	codec    *refname.Codec
	dontPush *regexp.Regexp
	newID    func() string
}

// New creates an Engine. The config is expected to have been validated.
func New(cfg config.Config, backend git.Backend, host github.Client, splog *tui.Splog) (*Engine, error) {
	dontPush, err := cfg.DontPushRegexp()
	if err != nil {
		return nil, err
	}
	if splog == nil {
		splog = tui.NewSplog()
	}
	length := cfg.CommitIDLength
	return &Engine{
		cfg:      cfg,
		git:      backend,
		host:     host,
		splog:    splog,
		codec:    refname.NewCodec(cfg.RemoteBranchPrefix),
		dontPush: dontPush,
		newID:    func() string { return NewCommitID(length) },
	}, nil
}

// Config returns the engine configuration
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Codec returns the codec for the configured branch prefix
func (e *Engine) Codec() *refname.Codec {
	return e.codec
}

// branchFor returns the remote branch of a commit
func (e *Engine) branchFor(commit git.Commit) string {
	return e.codec.Encode(e.cfg.TargetRef, commit.ID)
}

// remoteTarget returns the remote-tracking target ref, e.g. origin/main
func (e *Engine) remoteTarget() string {
	return e.cfg.RemoteTargetRef()
}

func (e *Engine) fetch(ctx context.Context) error {
	if err := e.git.Fetch(ctx, e.cfg.RemoteName); err != nil {
		return fmt.Errorf("failed to fetch: %w", err)
	}
	return nil
}
