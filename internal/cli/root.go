package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/wafermap/pkg/buildinfo"
)

// SetVersion sets the version information displayed by --version.
// Empty values keep the ldflags defaults.
func SetVersion(v, c, d string) {
	if v != "" {
		buildinfo.Version = v
	}
	if c != "" {
		buildinfo.Commit = c
	}
	if d != "" {
		buildinfo.Date = d
	}
}

// Execute runs the wafermap CLI and returns an error if any command fails.
//
// Logging goes to stderr at info level, or debug level with --verbose (-v).
// The logger is attached to the context and accessible to all commands via
// loggerFromContext.
func Execute(ctx context.Context) error {
	return newRootCommand(New(os.Stderr, LogInfo)).ExecuteContext(ctx)
}

// newRootCommand adds the persistent --verbose flag to c's root command.
func newRootCommand(c *CLI) *cobra.Command {
	var verbose bool
	root := c.RootCommand()
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	preRun := root.PersistentPreRun
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := LogInfo
		if verbose {
			level = LogDebug
		}
		c.SetLogLevel(level)
		if preRun != nil {
			preRun(cmd, args)
		}
	}
	return root
}
