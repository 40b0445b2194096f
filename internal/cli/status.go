package cli

import (
	"github.com/spf13/cobra"

	"prstack.dev/prstack/internal/engine"
	"prstack.dev/prstack/internal/runtime"
)

func newStatusCmd(opts *runtime.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "status [local-object]",
		Short: "Show the push, review and check state of every commit in the stack",
		Long: `Show one line per commit in the stack, oldest first:

  [pushed][pull request][checks][approved][stack] <link> : subject

The last column is ✅ when the commit and every commit below it are ready
to merge.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx *runtime.Context) error {
				status, err := ctx.Engine.Status(ctx, localObject(args))
				if err != nil {
					return err
				}
				ctx.Splog.Page(engine.RenderStatus(status))
				return nil
			})
		},
	}
}
