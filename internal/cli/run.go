package cli

import (
	"github.com/spf13/cobra"

	prerrors "prstack.dev/prstack/internal/errors"
	"prstack.dev/prstack/internal/runtime"
)

// run builds a runtime context for cmd and calls fn with it. Warnings are
// reported and swallowed so the command exits successfully.
func run(cmd *cobra.Command, opts *runtime.Options, fn func(ctx *runtime.Context) error) error {
	o := *opts
	if o.Out == nil {
		o.Out = cmd.OutOrStdout()
	}

	ctx, err := runtime.NewContext(cmd.Context(), o)
	if err != nil {
		return err
	}
	defer func() { _ = ctx.Close() }()

	err = fn(ctx)
	if prerrors.IsWarning(err) {
		ctx.Splog.Warn("%s", err.Error())
		return nil
	}
	if err != nil {
		ctx.Splog.Debug("%s failed: %v", cmd.Name(), err)
	}
	return err
}

// localObject returns the optional [local-object] argument
func localObject(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
