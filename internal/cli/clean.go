package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"prstack.dev/prstack/internal/engine"
	"prstack.dev/prstack/internal/runtime"
	"prstack.dev/prstack/internal/tui"
)

func newCleanCmd(opts *runtime.Options) *cobra.Command {
	var (
		force bool
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Find remote prstack branches that no longer belong to an open pull request",
		Long: `List remote branches under the prstack prefix, revision snapshots included,
whose pull request is closed or missing. With --force they are deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, func(ctx *runtime.Context) error {
				if force && !yes && tui.IsTTY() {
					orphans, err := ctx.Engine.CleanOrphans(ctx, engine.CleanOptions{})
					if err != nil || len(orphans) == 0 {
						return err
					}
					ok, err := tui.PromptConfirm(fmt.Sprintf("Delete %d branch(es) from %s?", len(orphans), ctx.Config.RemoteName), false)
					if err != nil {
						return err
					}
					if !ok {
						ctx.Splog.Info("Clean canceled")
						return nil
					}
				}
				_, err := ctx.Engine.CleanOrphans(ctx, engine.CleanOptions{Force: force})
				return err
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete the orphaned branches")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")

	return cmd
}
