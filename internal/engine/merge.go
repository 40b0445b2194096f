package engine

import (
	"context"
	"strings"

	prerrors "prstack.dev/prstack/internal/errors"
	"prstack.dev/prstack/internal/git"
	"prstack.dev/prstack/internal/github"
)

// MergeResult describes a completed merge
type MergeResult struct {
	// Merged are the commits now on the target ref, oldest first
	Merged []git.Commit
	// PullRequest is the pull request whose head was pushed to the target ref
	PullRequest github.PullRequest
	// Closed are the rolled-up pull requests below it
	Closed          []github.PullRequest
	DeletedBranches []string
}

// Merge fast-forwards the target ref to the top of the longest prefix of
// the stack whose commits are pushed, approved and passing checks.
func (e *Engine) Merge(ctx context.Context, localObject string) (*MergeResult, error) {
	if err := e.fetch(ctx); err != nil {
		return nil, err
	}
	status, err := e.status(ctx, localObject)
	if err != nil {
		return nil, err
	}
	return e.merge(ctx, status)
}

// MergeStatus merges the ready prefix of a status computed earlier by
// Status without fetching again, so the merged commits are exactly the ones
// that status reported.
func (e *Engine) MergeStatus(ctx context.Context, status *StackStatus) (*MergeResult, error) {
	return e.merge(ctx, status)
}

func (e *Engine) merge(ctx context.Context, status *StackStatus) (*MergeResult, error) {
	if len(status.Commits) == 0 {
		return nil, prerrors.NewPreconditionError(prerrors.ErrEmptyStack, "stack is empty; nothing to merge into %s", e.cfg.TargetRef)
	}
	if status.Behind > 0 {
		return nil, prerrors.NewWarning(prerrors.ErrBehindTarget,
			"stack is %d commit(s) behind %s; rebase before merging", status.Behind, status.RemoteTarget)
	}

	top := status.MergeableIndex()
	if top < 0 {
		return nil, prerrors.NewWarning(prerrors.ErrNothingToMerge,
			"nothing to merge: %q is %s", status.Commits[0].Commit.ShortMessage, blocker(status.Commits[0]))
	}
	if top < len(status.Commits)-1 {
		next := status.Commits[top+1]
		e.splog.Info("Merging up to %q; %q is %s", status.Commits[top].Commit.ShortMessage, next.Commit.ShortMessage, blocker(next))
	}

	head := status.Commits[top]
	pr := *head.PullRequest
	if pr.BaseRefName != e.cfg.TargetRef {
		pr.BaseRefName = e.cfg.TargetRef
		e.splog.Debug("retargeting #%d to %s", pr.Number, pr.BaseRefName)
		if err := e.host.UpdatePullRequest(ctx, pr); err != nil {
			return nil, err
		}
	}

	if err := e.git.Push(ctx, []git.RefSpec{git.NewBranchRefSpec(head.Commit.Hash, e.cfg.TargetRef)}); err != nil {
		return nil, err
	}

	result := &MergeResult{PullRequest: pr}
	merged := make(map[string]bool, top+1)
	for _, c := range status.Commits[:top+1] {
		merged[c.Commit.ID] = true
		result.Merged = append(result.Merged, c.Commit)
	}

	branches, err := e.git.GetRemoteBranches(ctx)
	if err != nil {
		return nil, err
	}
	var deletes []git.RefSpec
	for _, b := range branches {
		parts, ok := e.codec.Decode(b.Name)
		if !ok || parts.TargetRef != e.cfg.TargetRef || !merged[parts.CommitID] {
			continue
		}
		deletes = append(deletes, git.NewDeleteRefSpec(b.Name))
		result.DeletedBranches = append(result.DeletedBranches, b.Name)
	}
	if err := e.git.Push(ctx, deletes); err != nil {
		return nil, err
	}

	for _, c := range status.Commits[:top] {
		if err := e.host.ClosePullRequest(ctx, *c.PullRequest); err != nil {
			return nil, err
		}
		result.Closed = append(result.Closed, *c.PullRequest)
	}

	e.splog.Info("Merged %d commit(s) into %s via #%d", len(result.Merged), e.cfg.TargetRef, pr.Number)
	return result, nil
}

// blocker describes why a position is not ready to merge
func blocker(c CommitStatus) string {
	var reasons []string
	switch {
	case !c.Pushed():
		reasons = append(reasons, "not pushed")
	case !c.PullRequestExists():
		reasons = append(reasons, "missing a pull request")
	}
	if c.PullRequestExists() {
		switch {
		case c.Approved == nil:
			reasons = append(reasons, "awaiting review")
		case !*c.Approved:
			reasons = append(reasons, "not approved")
		}
		switch {
		case c.ChecksPass == nil:
			reasons = append(reasons, "waiting for checks")
		case !*c.ChecksPass:
			reasons = append(reasons, "failing checks")
		}
	}
	if len(reasons) == 0 {
		return "not ready"
	}
	return strings.Join(reasons, " and ")
}
