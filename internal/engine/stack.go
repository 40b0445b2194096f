package engine

import (
	"context"

	prerrors "prstack.dev/prstack/internal/errors"
	"prstack.dev/prstack/internal/git"
)

// DefaultLocalObject is the local end of the stack when none is given
const DefaultLocalObject = "HEAD"

// ReadStack returns the commits between the remote target ref and
// localObject, oldest first. A merge commit or a root commit anywhere in
// the range is fatal.
func (e *Engine) ReadStack(ctx context.Context, localObject string) ([]git.Commit, error) {
	if localObject == "" {
		localObject = DefaultLocalObject
	}
	commits, err := e.git.LogRange(ctx, e.remoteTarget(), localObject)
	if err != nil {
		return nil, err
	}
	for _, commit := range commits {
		if commit.IsMerge() {
			return nil, prerrors.NewPreconditionError(prerrors.ErrMergeCommit,
				"commit %s (%q) is a merge commit; merge commits are not supported in a stack",
				commit.ShortHash(), commit.ShortMessage)
		}
		if len(commit.Parents) == 0 {
			return nil, unrelatedHistory(commit, e.remoteTarget())
		}
	}
	return commits, nil
}

// behindCount returns how many commits the target ref has that the local
// object does not
func (e *Engine) behindCount(ctx context.Context, localObject string) (int, error) {
	if localObject == "" {
		localObject = DefaultLocalObject
	}
	missing, err := e.git.LogRange(ctx, localObject, e.remoteTarget())
	if err != nil {
		return 0, err
	}
	return len(missing), nil
}

// splitDontPush cuts the stack at the first commit whose subject matches
// the don't-push pattern. That commit and everything above it stay local.
func (e *Engine) splitDontPush(stack []git.Commit) (pushable, held []git.Commit) {
	if e.dontPush == nil {
		return stack, nil
	}
	for i, commit := range stack {
		if e.dontPush.MatchString(commit.ShortMessage) {
			return stack[:i], stack[i:]
		}
	}
	return stack, nil
}

func unrelatedHistory(root git.Commit, target string) error {
	return prerrors.NewPreconditionError(prerrors.ErrUnrelatedHistory,
		"commit %s (%q) is a root commit; the stack must be based on %s", root.ShortHash(), root.ShortMessage, target)
}
