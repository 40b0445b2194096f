package engine

import (
	"context"
	"fmt"
	"strings"

	"prstack.dev/prstack/internal/git"
	"prstack.dev/prstack/internal/github"
)

// CommitStatus is the remote state of one stack position
type CommitStatus struct {
	Commit git.Commit
	// RemoteCommit is the tip of the commit's remote branch, nil when not pushed
	RemoteCommit *git.Commit
	PullRequest  *github.PullRequest
	// ChecksPass is nil while checks are pending or there is no pull request
	ChecksPass *bool
	Approved   *bool
	// StackCheck is set when this position and every one below it are
	// mergeable and the stack is not behind the target ref
	StackCheck bool
}

// Pushed reports whether the remote branch points at the local commit
func (s CommitStatus) Pushed() bool {
	return s.RemoteCommit != nil && s.RemoteCommit.Hash == s.Commit.Hash
}

// PullRequestExists reports whether the commit has an open pull request
func (s CommitStatus) PullRequestExists() bool {
	return s.PullRequest != nil && s.PullRequest.Exists()
}

// Mergeable reports whether the commit is approved with passing checks
func (s CommitStatus) Mergeable() bool {
	return isTrue(s.Approved) && isTrue(s.ChecksPass)
}

func (s CommitStatus) ready() bool {
	return s.Pushed() && s.PullRequestExists() && s.Mergeable()
}

// StackStatus is the status of every position in a stack, oldest first
type StackStatus struct {
	Commits []CommitStatus
	// Held are commits at or above a don't-push marker
	Held []git.Commit
	// Behind is the number of target ref commits missing from the stack
	Behind    int
	TargetRef string
	// RemoteTarget is the remote-tracking target ref the stack is based on
	RemoteTarget string
}

// Mergeable reports whether every position is pushed, approved and passing checks
func (s *StackStatus) Mergeable() bool {
	return len(s.Commits) > 0 && s.MergeableIndex() == len(s.Commits)-1
}

// MergeableIndex returns the last position of the longest ready prefix, or -1
func (s *StackStatus) MergeableIndex() int {
	last := -1
	for i, c := range s.Commits {
		if !c.ready() {
			break
		}
		last = i
	}
	return last
}

// Status fetches and reports the remote state of every commit in the stack
func (e *Engine) Status(ctx context.Context, localObject string) (*StackStatus, error) {
	if err := e.fetch(ctx); err != nil {
		return nil, err
	}
	return e.status(ctx, localObject)
}

// status computes the stack status from already fetched state
func (e *Engine) status(ctx context.Context, localObject string) (*StackStatus, error) {
	stack, err := e.ReadStack(ctx, localObject)
	if err != nil {
		return nil, err
	}
	behind, err := e.behindCount(ctx, localObject)
	if err != nil {
		return nil, err
	}
	pushable, held := e.splitDontPush(stack)

	branches, err := e.git.GetRemoteBranches(ctx)
	if err != nil {
		return nil, err
	}
	remote := make(map[string]git.Commit, len(branches))
	for _, b := range branches {
		remote[b.Name] = b.Commit
	}

	var ids []string
	for _, commit := range pushable {
		if commit.ID != "" {
			ids = append(ids, commit.ID)
		}
	}
	prs := map[string]github.PullRequest{}
	if len(ids) > 0 {
		open, err := e.host.GetPullRequests(ctx, ids)
		if err != nil {
			return nil, err
		}
		if prs, err = e.indexPullRequests(withIDs(pushable), open); err != nil {
			return nil, err
		}
	}

	status := &StackStatus{
		Held:         held,
		Behind:       behind,
		TargetRef:    e.cfg.TargetRef,
		RemoteTarget: e.remoteTarget(),
	}
	stackCheck := behind == 0
	for _, commit := range pushable {
		cs := CommitStatus{Commit: commit}
		if commit.ID != "" {
			if tip, ok := remote[e.branchFor(commit)]; ok {
				cs.RemoteCommit = &tip
			}
			if pr, ok := prs[commit.ID]; ok {
				cs.PullRequest = &pr
				cs.ChecksPass = pr.ChecksPass
				cs.Approved = pr.Approved
			}
		}
		stackCheck = stackCheck && cs.ready()
		cs.StackCheck = stackCheck
		status.Commits = append(status.Commits, cs)
	}
	return status, nil
}

func withIDs(stack []git.Commit) []git.Commit {
	out := make([]git.Commit, 0, len(stack))
	for _, commit := range stack {
		if commit.ID != "" {
			out = append(out, commit)
		}
	}
	return out
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

const (
	statusYes     = "✅"
	statusNo      = "❌"
	statusPending = "⌛"
)

func bit(ok bool) string {
	if ok {
		return statusYes
	}
	return statusNo
}

func triState(b *bool) string {
	if b == nil {
		return statusPending
	}
	return bit(*b)
}

// RenderStatus renders one line per position, oldest first:
// [pushed][pr-exists][checks][approved][stack-check] <permalink> : <subject>
func RenderStatus(status *StackStatus) string {
	var b strings.Builder
	for _, c := range status.Commits {
		checks := statusPending
		if c.PullRequestExists() {
			checks = triState(c.ChecksPass)
		}
		fmt.Fprintf(&b, "[%s][%s][%s][%s][%s] ",
			bit(c.Pushed()), bit(c.PullRequestExists()), checks, bit(isTrue(c.Approved)), bit(c.StackCheck))
		if c.PullRequestExists() && c.PullRequest.Permalink != "" {
			b.WriteString(c.PullRequest.Permalink)
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, ": %s\n", c.Commit.ShortMessage)
	}
	for _, c := range status.Held {
		fmt.Fprintf(&b, "[ local only ] : %s\n", c.ShortMessage)
	}
	if status.Behind > 0 {
		fmt.Fprintf(&b, "\nYour stack is %d commit(s) behind %s and cannot be merged.\n", status.Behind, status.RemoteTarget)
		fmt.Fprintf(&b, "Rebase and push again:\n    git rebase %s\n    prstack push\n", status.RemoteTarget)
	}
	return b.String()
}
