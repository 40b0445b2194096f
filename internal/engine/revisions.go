package engine

import (
	"sort"

	"prstack.dev/prstack/internal/git"
)

// branchHistory is the remote state of one commit id: its current branch,
// if pushed, and its revision snapshots in ascending order
type branchHistory struct {
	current   *git.RemoteBranch
	revisions []int
}

// nextRevision returns the number for the next snapshot
func (h *branchHistory) nextRevision() int {
	if len(h.revisions) == 0 {
		return 1
	}
	return h.revisions[len(h.revisions)-1] + 1
}

// revisionHistory indexes the remote branches encoded for the target ref by commit id
func (e *Engine) revisionHistory(branches []git.RemoteBranch) map[string]*branchHistory {
	history := make(map[string]*branchHistory)
	for i := range branches {
		parts, ok := e.codec.Decode(branches[i].Name)
		if !ok || parts.TargetRef != e.cfg.TargetRef {
			continue
		}
		h, ok := history[parts.CommitID]
		if !ok {
			h = &branchHistory{}
			history[parts.CommitID] = h
		}
		if parts.IsRevision() {
			h.revisions = append(h.revisions, parts.Revision)
		} else {
			h.current = &branches[i]
		}
	}
	for _, h := range history {
		sort.Ints(h.revisions)
	}
	return history
}

// revisionSnapshots returns the refspecs that copy the current remote tip of
// every out-of-date branch to a new numbered snapshot, and records the new
// snapshot in history
func (e *Engine) revisionSnapshots(outOfDate []git.Commit, history map[string]*branchHistory) []git.RefSpec {
	var specs []git.RefSpec
	for _, commit := range outOfDate {
		h, ok := history[commit.ID]
		if !ok || h.current == nil {
			continue
		}
		n := h.nextRevision()
		name := e.codec.EncodeRevision(e.cfg.TargetRef, commit.ID, n)
		specs = append(specs, git.NewBranchRefSpec(h.current.Commit.Hash, name))
		h.revisions = append(h.revisions, n)
	}
	return specs
}
