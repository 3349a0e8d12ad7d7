package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

// Execute runs the socomo CLI with the given arguments and returns an error
// if the command fails. Logs go to logOut; with --verbose (-v) at debug
// level, info otherwise.
//
// A canceled ctx (e.g. on SIGINT) stops the running analysis; the returned
// error then wraps context.Canceled.
func Execute(ctx context.Context, args []string, logOut io.Writer) error {
	var verbose bool

	c := New(logOut, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := LogInfo
		if verbose {
			level = LogDebug
		}
		c.SetLogLevel(level)
		return nil
	}

	return root.ExecuteContext(ctx)
}
