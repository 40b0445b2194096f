package engine

import (
	"context"
	"time"

	prerrors "prstack.dev/prstack/internal/errors"
)

// AutoMerge polls until every commit in the stack is approved with passing
// checks, then merges the whole stack. It returns early with a warning when
// the stack falls behind the target ref, and with ctx.Err() when cancelled.
func (e *Engine) AutoMerge(ctx context.Context, localObject string) (*MergeResult, error) {
	for {
		if err := e.fetch(ctx); err != nil {
			return nil, err
		}
		status, err := e.status(ctx, localObject)
		if err != nil {
			return nil, err
		}
		if status.Behind > 0 {
			return nil, prerrors.NewWarning(prerrors.ErrBehindTarget,
				"stack is %d commit(s) behind %s; rebase before merging", status.Behind, status.RemoteTarget)
		}
		if len(status.Commits) == 0 {
			return nil, prerrors.NewWarning(prerrors.ErrEmptyStack, "stack is empty; nothing to merge")
		}
		if status.Mergeable() {
			return e.merge(ctx, status)
		}

		e.splog.Page(RenderStatus(status))
		e.splog.Info("Waiting %s for the stack to become mergeable...", e.cfg.PollInterval)

		timer := time.NewTimer(e.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
