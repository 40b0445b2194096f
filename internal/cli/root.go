// Package cli implements the prstack command tree.
package cli

import (
	"github.com/spf13/cobra"

	"prstack.dev/prstack/internal/runtime"
)

// BuildInfo identifies the binary
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	return newRootCmd(BuildInfo{Version: version, Commit: commit, Date: date}, &runtime.Options{})
}

func newRootCmd(info BuildInfo, opts *runtime.Options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "prstack",
		Short: "prstack keeps a stack of local commits in sync with a chain of GitHub pull requests",
		Long: `prstack keeps a stack of local commits in sync with a chain of GitHub pull requests.

Every commit between the target branch and HEAD becomes one pull request,
based on the pull request of the commit below it. Commits are identified
by a commit-id trailer, so amending or reordering them updates the
existing pull requests instead of opening new ones.`,
		Version:       info.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.Overrides.Remote, "remote", "", "Remote to push to and fetch from (default origin)")
	flags.StringVar(&opts.Overrides.Target, "target", "", "Branch the stack merges into (default main)")
	flags.StringVar(&opts.Overrides.Prefix, "prefix", "", "Prefix of the remote branches prstack manages (default prstack)")
	flags.StringVar(&opts.Overrides.Backend, "backend", "", "Git backend: cli or gogit")
	flags.BoolVarP(&opts.Overrides.Verbose, "verbose", "v", false, "Print debug output")
	flags.BoolVar(&opts.Overrides.NoColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newPushCmd(opts),
		newStatusCmd(opts),
		newMergeCmd(opts),
		newAutoMergeCmd(opts),
		newCleanCmd(opts),
		newInstallHookCmd(opts),
		newHookCmd(opts),
		newVersionCmd(info),
	)

	return rootCmd
}
