// Package cli wires the tracklog command tree: the generate pipeline,
// version reporting, and structured error output with exit codes.
package cli

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raveheart1/tracklog/internal/errors"
)

var configFlag string

var rootCmd = &cobra.Command{
	Use:   "tracklog",
	Short: "Generate a categorized release changelog from git history and your issue tracker",
	Long: `tracklog correlates git commit history with your issue tracker, code
host, and chat platform to produce a categorized release changelog.

It extracts ticket keys from commit messages, fetches ticket metadata
(once per key, concurrently, with caching), matches commit authors to
chat identities, groups tickets into category sessions, and renders the
result through a template. The changelog can optionally be posted to a
chat channel and attached to a code-host release.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Path to the config file")
}

// Execute runs the root command and maps failures to exit codes.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return reportError(err)
	}
	return ExitSuccess
}

// reportError prints a structured error and picks its exit code.
func reportError(err error) int {
	var exitErr *ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.Code
	}

	if cliErr := errors.AsCLIError(err); cliErr != nil {
		errors.PrintError(cliErr)
		switch cliErr.Category {
		case errors.Argument:
			return ExitInvalidArguments
		case errors.Configuration:
			return ExitConfigError
		case errors.Upstream:
			return ExitUpstreamError
		default:
			return ExitFailure
		}
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return ExitFailure
}
