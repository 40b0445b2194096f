package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"prstack.dev/prstack/internal/config"
	prerrors "prstack.dev/prstack/internal/errors"
	"prstack.dev/prstack/internal/git"
)

// NewCommitID returns a random commit id of the given length, clamped to
// the supported range
func NewCommitID(length int) string {
	if length < config.MinCommitIDLength {
		length = config.MinCommitIDLength
	}
	if length > config.MaxCommitIDLength {
		length = config.MaxCommitIDLength
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return id[:length]
}

// missingIDIndex returns the index of the oldest commit without a commit id, or -1
func missingIDIndex(stack []git.Commit) int {
	for i, commit := range stack {
		if commit.ID == "" {
			return i
		}
	}
	return -1
}

// EnsureCommitIDs makes sure every commit in the stack carries a commit-id
// trailer. When none are missing the stack is returned unchanged. Otherwise
// history from the oldest commit lacking an id upwards is replayed with ids
// added, and (nil, nil) is returned: hashes have changed and the caller must
// read the stack again.
func (e *Engine) EnsureCommitIDs(ctx context.Context, stack []git.Commit, localObject string) ([]git.Commit, error) {
	first := missingIDIndex(stack)
	if first < 0 {
		return stack, nil
	}
	if len(stack[first].Parents) == 0 {
		return nil, unrelatedHistory(stack[first], e.remoteTarget())
	}
	if localObject == "" {
		localObject = DefaultLocalObject
	}

	clean, err := e.git.IsWorkingDirectoryClean(ctx)
	if err != nil {
		return nil, err
	}
	if !clean {
		return nil, prerrors.NewPreconditionError(prerrors.ErrDirtyWorkingTree,
			"working directory is not clean; commit or stash your changes so commit ids can be added")
	}

	head, err := e.git.ResolveRef(ctx, "HEAD")
	if err != nil {
		return nil, err
	}
	tip, err := e.git.ResolveRef(ctx, localObject)
	if err != nil {
		return nil, err
	}
	if head != tip {
		return nil, prerrors.NewPreconditionError(prerrors.ErrDetachedStack,
			"%s is not checked out; check it out so commit ids can be added", localObject)
	}

	branch, err := e.git.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}

	e.splog.Warn("%d commit(s) have no commit id; rewriting history from %s (%s)",
		len(stack)-first, stack[first].ShortHash(), stack[first].ShortMessage)
	e.splog.Tip("Run `prstack install-hook` to add commit ids as you commit")

	parent := stack[first].Parents[0]
	if err := e.git.Reset(ctx, parent); err != nil {
		return nil, err
	}
	for _, commit := range stack[first:] {
		picked, err := e.git.CherryPick(ctx, commit)
		if err != nil {
			return nil, fmt.Errorf("failed to replay %s: %w", commit.ShortHash(), err)
		}
		if picked.ID != "" {
			continue
		}
		id := e.newID()
		if _, err := e.git.Amend(ctx, git.AddTrailer(picked.FullMessage, git.CommitIDTrailer, id)); err != nil {
			return nil, err
		}
		e.splog.Debug("assigned commit id %s to %q", id, picked.ShortMessage)
	}

	if branch != "" {
		if _, err := e.git.Branch(ctx, branch, "HEAD", true); err != nil {
			return nil, err
		}
		if err := e.git.Checkout(ctx, branch); err != nil {
			return nil, err
		}
	}
	return nil, nil
}
