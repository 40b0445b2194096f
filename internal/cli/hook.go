package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"prstack.dev/prstack/internal/config"
	"prstack.dev/prstack/internal/engine"
	"prstack.dev/prstack/internal/git"
	"prstack.dev/prstack/internal/runtime"
	"prstack.dev/prstack/internal/tui"
)

func newInstallHookCmd(opts *runtime.Options) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "install-hook",
		Short: "Install a commit-msg hook that gives new commits a commit-id trailer",
		Long: `Install a commit-msg hook that adds a commit-id trailer to every new commit.
With the hook in place push never needs to rewrite history to assign ids.

An existing commit-msg hook that was not installed by prstack is kept
unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := repoRoot(opts)
			if err != nil {
				return err
			}
			binary, err := os.Executable()
			if err != nil {
				return fmt.Errorf("failed to locate prstack binary: %w", err)
			}

			path, err := git.InstallCommitMsgHook(cmd.Context(), root, binary, force)
			if err != nil {
				return err
			}
			splog, err := tui.NewSplogWithOptions(tui.SplogOptions{Writer: cmd.OutOrStdout()})
			if err != nil {
				return err
			}
			splog.Info("Installed %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace an existing commit-msg hook")

	return cmd
}

func newHookCmd(opts *runtime.Options) *cobra.Command {
	hookCmd := &cobra.Command{
		Use:    "hook",
		Short:  "Entry points for git hooks",
		Hidden: true,
	}

	hookCmd.AddCommand(&cobra.Command{
		Use:   git.CommitMsgHook + " <message-file>",
		Short: "Add a commit-id trailer to a commit message file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			length := config.DefaultCommitIDLength
			if root, err := repoRoot(opts); err == nil {
				if cfg, err := config.Load(root, opts.Overrides); err == nil {
					length = cfg.CommitIDLength
				}
			}
			_, err := git.StampMessageFile(args[0], engine.NewCommitID(length))
			return err
		},
	})

	return hookCmd
}

// repoRoot finds the repository without building a full runtime context,
// which would require GitHub credentials
func repoRoot(opts *runtime.Options) (string, error) {
	dir := opts.WorkingDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}
	return git.FindRepoRoot(filepath.Clean(dir))
}
