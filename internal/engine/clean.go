package engine

import (
	"context"
	"sort"

	"prstack.dev/prstack/internal/git"
	"prstack.dev/prstack/internal/tui"
)

// CleanOptions controls CleanOrphans
type CleanOptions struct {
	// Force deletes the orphaned branches; otherwise they are only reported
	Force bool
}

// CleanOrphans finds remote stack branches that do not belong to an open
// pull request, including revision snapshots of closed ones, and with
// Force deletes them in a single push. The orphaned names are returned sorted.
func (e *Engine) CleanOrphans(ctx context.Context, opts CleanOptions) ([]string, error) {
	if err := e.fetch(ctx); err != nil {
		return nil, err
	}

	open, err := e.host.GetPullRequests(ctx, nil)
	if err != nil {
		return nil, err
	}
	heads := make(map[string]bool, len(open))
	for _, pr := range open {
		heads[pr.HeadRefName] = true
	}

	branches, err := e.git.GetRemoteBranches(ctx)
	if err != nil {
		return nil, err
	}
	var orphans []string
	for _, b := range branches {
		parts, ok := e.codec.Decode(b.Name)
		if !ok || heads[e.codec.Canonical(parts)] {
			continue
		}
		orphans = append(orphans, b.Name)
	}
	sort.Strings(orphans)

	if len(orphans) == 0 {
		e.splog.Info("No orphaned branches")
		return nil, nil
	}
	for _, name := range orphans {
		e.splog.Info("%s", tui.ColorYellow(name))
	}
	if !opts.Force {
		e.splog.Tip("Run with --force to delete %d orphaned branch(es)", len(orphans))
		return orphans, nil
	}

	specs := make([]git.RefSpec, 0, len(orphans))
	for _, name := range orphans {
		specs = append(specs, git.NewDeleteRefSpec(name))
	}
	if err := e.git.Push(ctx, specs); err != nil {
		return nil, err
	}
	e.splog.Info("Deleted %d orphaned branch(es)", len(orphans))
	return orphans, nil
}
