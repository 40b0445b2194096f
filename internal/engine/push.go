package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	prerrors "prstack.dev/prstack/internal/errors"
	"prstack.dev/prstack/internal/git"
	"prstack.dev/prstack/internal/github"
	"prstack.dev/prstack/internal/tui"
)

// draftPattern marks commits whose pull requests are opened as drafts
var draftPattern = regexp.MustCompile(`(?i)^(wip|draft)\b`)

// PushOptions controls Push
type PushOptions struct {
	// DryRun computes the ref updates and pull request changes without applying them
	DryRun bool
}

// PushResult describes what Push did, or would do on a dry run
type PushResult struct {
	RefSpecs []git.RefSpec
	// Rerouted pull requests were temporarily based on the target ref
	Rerouted []github.PullRequest
	Created  []github.PullRequest
	Updated  []github.PullRequest
	// PullRequests are the stack's pull requests after the push, oldest first
	PullRequests []github.PullRequest
	// Held are commits at or above a don't-push marker
	Held []git.Commit
}

// pushPlan is the set of mutations needed to bring the remote in line with the stack
type pushPlan struct {
	stack    []git.Commit
	existing map[string]github.PullRequest
	desired  []github.PullRequest
	reroutes []github.PullRequest
	refSpecs []git.RefSpec
	history  map[string]*branchHistory
}

// Push publishes the stack: one remote branch and one pull request per
// commit, each pull request based on the branch of the commit below it.
func (e *Engine) Push(ctx context.Context, localObject string, opts PushOptions) (*PushResult, error) {
	if localObject == "" {
		localObject = DefaultLocalObject
	}
	if err := e.fetch(ctx); err != nil {
		return nil, err
	}

	stack, err := e.ReadStack(ctx, localObject)
	if err != nil {
		return nil, err
	}
	if len(stack) == 0 {
		return nil, prerrors.NewWarning(prerrors.ErrEmptyStack, "no commits between %s and %s", e.remoteTarget(), localObject)
	}

	if missing := missingIDIndex(stack); missing >= 0 {
		if opts.DryRun {
			return nil, prerrors.NewWarning(prerrors.ErrMissingCommitIDs,
				"%d commit(s) have no commit id; run push without --dry-run to add them", len(stack)-missing)
		}
		rewritten, err := e.EnsureCommitIDs(ctx, stack, localObject)
		if err != nil {
			return nil, err
		}
		if rewritten == nil {
			if stack, err = e.ReadStack(ctx, localObject); err != nil {
				return nil, err
			}
		}
	}

	pushable, held := e.splitDontPush(stack)
	result := &PushResult{Held: held}
	if len(held) > 0 {
		e.splog.Tip("%d commit(s) from %q up are not pushed", len(held), held[0].ShortMessage)
	}
	if len(pushable) == 0 {
		return result, prerrors.NewWarning(prerrors.ErrEmptyStack, "nothing to push below %q", held[0].ShortMessage)
	}

	plan, err := e.planPush(ctx, pushable)
	if err != nil {
		return nil, err
	}
	result.RefSpecs = plan.refSpecs
	result.Rerouted = plan.reroutes

	if opts.DryRun {
		e.reportPlan(plan, result)
		return result, nil
	}

	// Retarget moved pull requests before any branch moves so that no
	// base..head range becomes empty while the push is in flight.
	for _, pr := range plan.reroutes {
		pr.BaseRefName = e.cfg.TargetRef
		e.splog.Debug("retargeting #%d to %s", pr.Number, pr.BaseRefName)
		if err := e.host.UpdatePullRequest(ctx, pr); err != nil {
			return nil, err
		}
		plan.existing[pr.CommitID] = pr
	}

	if len(plan.refSpecs) > 0 {
		e.splog.Debug("pushing %d ref(s)", len(plan.refSpecs))
		if err := e.git.Push(ctx, plan.refSpecs); err != nil {
			return nil, err
		}
	}

	prs := make([]github.PullRequest, len(plan.desired))
	for i, desired := range plan.desired {
		current, ok := plan.existing[desired.CommitID]
		switch {
		case !ok:
			created, err := e.host.CreatePullRequest(ctx, desired)
			if err != nil {
				return nil, err
			}
			result.Created = append(result.Created, created)
			prs[i] = created
		case needsUpdate(current, desired):
			if err := e.host.UpdatePullRequest(ctx, desired); err != nil {
				return nil, err
			}
			result.Updated = append(result.Updated, desired)
			prs[i] = desired
		default:
			prs[i] = current
		}
	}

	// Pull request numbers are only known once every one exists, so the
	// stack listing is written in a second pass.
	repo := e.host.Repository()
	for i := range prs {
		body := e.renderBody(repo, plan.stack, i, prs, plan.history)
		if prs[i].Body == body {
			continue
		}
		prs[i].Body = body
		if err := e.host.UpdatePullRequest(ctx, prs[i]); err != nil {
			return nil, err
		}
	}

	result.PullRequests = prs
	e.reportPushed(result)
	return result, nil
}

// planPush compares the stack with the remote branches and open pull requests
func (e *Engine) planPush(ctx context.Context, stack []git.Commit) (*pushPlan, error) {
	branches, err := e.git.GetRemoteBranches(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(stack))
	for _, commit := range stack {
		ids = append(ids, commit.ID)
	}
	open, err := e.host.GetPullRequests(ctx, ids)
	if err != nil {
		return nil, err
	}
	existing, err := e.indexPullRequests(stack, open)
	if err != nil {
		return nil, err
	}

	plan := &pushPlan{
		stack:    stack,
		existing: existing,
		history:  e.revisionHistory(branches),
	}

	var outOfDate []git.Commit
	for _, commit := range stack {
		h := plan.history[commit.ID]
		if h == nil || h.current == nil || h.current.Commit.Hash != commit.Hash {
			outOfDate = append(outOfDate, commit)
		}
	}
	for _, commit := range outOfDate {
		plan.refSpecs = append(plan.refSpecs, git.NewBranchRefSpec(commit.Hash, e.branchFor(commit)).ForcePush())
	}
	plan.refSpecs = append(plan.refSpecs, e.revisionSnapshots(outOfDate, plan.history)...)

	base := e.cfg.TargetRef
	for _, commit := range stack {
		desired := github.PullRequest{
			CommitID:    commit.ID,
			HeadRefName: e.branchFor(commit),
			BaseRefName: base,
			Title:       commit.ShortMessage,
			Body:        git.Body(commit.FullMessage),
			IsDraft:     draftPattern.MatchString(commit.ShortMessage),
		}
		if current, ok := existing[commit.ID]; ok {
			desired.ID = current.ID
			desired.Number = current.Number
			desired.Body = current.Body
			desired.ChecksPass = current.ChecksPass
			desired.Approved = current.Approved
			desired.CheckConclusionStates = current.CheckConclusionStates
			desired.Permalink = current.Permalink
			if current.BaseRefName != desired.BaseRefName && current.BaseRefName != e.cfg.TargetRef {
				plan.reroutes = append(plan.reroutes, current)
			}
		}
		plan.desired = append(plan.desired, desired)
		base = desired.HeadRefName
	}
	return plan, nil
}

// indexPullRequests maps commit ids to their open pull request. A commit id
// with more than one open pull request is fatal.
func (e *Engine) indexPullRequests(stack []git.Commit, open []github.PullRequest) (map[string]github.PullRequest, error) {
	heads := make(map[string]string, len(stack))
	for _, commit := range stack {
		heads[commit.ID] = e.branchFor(commit)
	}

	byID := make(map[string][]github.PullRequest)
	for _, pr := range open {
		if head, ok := heads[pr.CommitID]; ok && pr.HeadRefName == head {
			byID[pr.CommitID] = append(byID[pr.CommitID], pr)
		}
	}

	index := make(map[string]github.PullRequest, len(byID))
	var duplicates []string
	for _, commit := range stack {
		prs := byID[commit.ID]
		switch len(prs) {
		case 0:
		case 1:
			index[commit.ID] = prs[0]
		default:
			numbers := make([]string, 0, len(prs))
			for _, pr := range prs {
				numbers = append(numbers, fmt.Sprintf("#%d", pr.Number))
			}
			duplicates = append(duplicates, fmt.Sprintf("%s (%q): %s", commit.ID, commit.ShortMessage, strings.Join(numbers, ", ")))
		}
	}
	if len(duplicates) > 0 {
		return nil, prerrors.NewPreconditionError(prerrors.ErrDuplicatePullRequests,
			"multiple open pull requests for the same commit; close all but one:\n  %s", strings.Join(duplicates, "\n  "))
	}
	return index, nil
}

func needsUpdate(current, desired github.PullRequest) bool {
	return current.Title != desired.Title ||
		current.BaseRefName != desired.BaseRefName ||
		current.IsDraft != desired.IsDraft
}

// renderBody returns the description of the pull request at index: the
// commit body and the stack listing newest first. Every entry pushed more
// than once lists compare links between its consecutive revisions.
func (e *Engine) renderBody(repo github.RepoInfo, stack []git.Commit, index int, prs []github.PullRequest, history map[string]*branchHistory) string {
	var b strings.Builder
	if body := git.Body(stack[index].FullMessage); body != "" {
		b.WriteString(body)
		b.WriteString("\n\n")
	}

	b.WriteString("---\n\n**Stack**:\n")
	for i := len(prs) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "- #%d", prs[i].Number)
		if i == index {
			b.WriteString(" ⬅")
		}
		b.WriteString("\n")
		for _, link := range e.revisionLinks(repo, stack[i], history) {
			fmt.Fprintf(&b, "  - %s\n", link)
		}
	}

	b.WriteString("\n⚠️ *Part of a stack managed by prstack. Merge with `prstack merge` rather than the web UI.*")
	return b.String()
}

// revisionLinks renders old..new compare links for a commit's snapshots,
// oldest first, ending at the current branch
func (e *Engine) revisionLinks(repo github.RepoInfo, commit git.Commit, history map[string]*branchHistory) []string {
	h := history[commit.ID]
	if h == nil || len(h.revisions) == 0 {
		return nil
	}
	type rev struct{ label, ref string }
	revs := make([]rev, 0, len(h.revisions)+1)
	for _, n := range h.revisions {
		revs = append(revs, rev{fmt.Sprintf("%02d", n), e.codec.EncodeRevision(e.cfg.TargetRef, commit.ID, n)})
	}
	revs = append(revs, rev{"Current", e.branchFor(commit)})

	links := make([]string, 0, len(revs)-1)
	for i := 0; i+1 < len(revs); i++ {
		links = append(links, fmt.Sprintf("[%s..%s](%s)", revs[i].label, revs[i+1].label, repo.CompareURL(revs[i].ref, revs[i+1].ref)))
	}
	return links
}

func (e *Engine) reportPlan(plan *pushPlan, result *PushResult) {
	if len(plan.refSpecs) == 0 {
		e.splog.Info("All branches are up to date")
	}
	for _, spec := range plan.refSpecs {
		e.splog.Info("Would push %s", spec)
	}
	for _, pr := range plan.reroutes {
		e.splog.Info("Would retarget #%d to %s", pr.Number, e.cfg.TargetRef)
	}
	for _, desired := range plan.desired {
		current, ok := plan.existing[desired.CommitID]
		switch {
		case !ok:
			e.splog.Info("Would create pull request %q (%s <- %s)", desired.Title, desired.BaseRefName, desired.HeadRefName)
			result.Created = append(result.Created, desired)
		case needsUpdate(current, desired):
			e.splog.Info("Would update #%d %q (%s <- %s)", desired.Number, desired.Title, desired.BaseRefName, desired.HeadRefName)
			result.Updated = append(result.Updated, desired)
		}
	}
}

func (e *Engine) reportPushed(result *PushResult) {
	created := make(map[string]bool, len(result.Created))
	for _, pr := range result.Created {
		created[pr.CommitID] = true
	}
	for i := len(result.PullRequests) - 1; i >= 0; i-- {
		pr := result.PullRequests[i]
		verb := " "
		if created[pr.CommitID] {
			verb = tui.ColorGreen("+")
		}
		e.splog.Info("%s %s %s %s", verb, tui.ColorCyan(fmt.Sprintf("#%d", pr.Number)), pr.Title, tui.ColorDim(pr.Permalink))
	}
}
