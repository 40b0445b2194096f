package cli

import (
	"github.com/spf13/cobra"

	"prstack.dev/prstack/internal/engine"
	"prstack.dev/prstack/internal/runtime"
)

func newPushCmd(opts *runtime.Options) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "push [local-object]",
		Short: "Push every commit in the stack and open or update one pull request per commit",
		Long: `Push every commit between the target branch and local-object (default HEAD)
to its own remote branch, and open or update one pull request per commit.

Commits without a commit-id trailer are given one first, which rewrites
the stack. Pull requests are chained: each one is based on the branch of
the commit below it, and the bottom one on the target branch.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx *runtime.Context) error {
				_, err := ctx.Engine.Push(ctx, localObject(args), engine.PushOptions{DryRun: dryRun})
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the branch and pull request changes without applying them")

	return cmd
}
