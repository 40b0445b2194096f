package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"prstack.dev/prstack/internal/engine"
	"prstack.dev/prstack/internal/runtime"
	"prstack.dev/prstack/internal/tui"
)

func newMergeCmd(opts *runtime.Options) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "merge [local-object]",
		Short: "Merge the longest ready prefix of the stack into the target branch",
		Long: `Merge every commit from the bottom of the stack up to the last one that is
pushed, approved and passing checks. Only the head of that prefix is
pushed: the target branch is fast-forwarded to it, and the host closes
its pull request once the commit lands there. The pull requests below it
are closed by prstack and their branches deleted.

When a terminal is attached, the status is shown first and exactly the
prefix it reports is merged after confirmation.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx *runtime.Context) error {
				if !yes && tui.IsTTY() {
					status, err := ctx.Engine.Status(ctx, localObject(args))
					if err != nil {
						return err
					}
					ctx.Splog.Page(engine.RenderStatus(status))
					if status.Behind > 0 || status.MergeableIndex() < 0 {
						// Merge reports why nothing can be merged
						_, err := ctx.Engine.Merge(ctx, localObject(args))
						return err
					}
					top := status.Commits[status.MergeableIndex()]
					ok, err := tui.PromptConfirm(fmt.Sprintf("Merge through %q into %s?", top.Commit.ShortMessage, status.RemoteTarget), false)
					if err != nil {
						return err
					}
					if !ok {
						ctx.Splog.Info("Merge canceled")
						return nil
					}
					_, err = ctx.Engine.MergeStatus(ctx, status)
					return err
				}
				_, err := ctx.Engine.Merge(ctx, localObject(args))
				return err
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")

	return cmd
}
