package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"prstack.dev/prstack/internal/runtime"
)

func newAutoMergeCmd(opts *runtime.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "auto-merge [local-object]",
		Short: "Wait until the whole stack is ready, then merge it",
		Long: `Poll the stack until every commit is approved with passing checks, then
merge it. Stops early if the stack falls behind the target branch.
Interrupt with Ctrl-C to stop waiting.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx *runtime.Context) error {
				sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
				defer stop()

				_, err := ctx.Engine.AutoMerge(sigCtx, localObject(args))
				if err != nil && sigCtx.Err() != nil && ctx.Err() == nil {
					ctx.Splog.Info("Stopped waiting")
					return nil
				}
				return err
			})
		},
	}
}
