package cli

import "fmt"

// Exit codes for the tracklog CLI.
// These codes support programmatic composition and CI/CD integration.
const (
	// ExitSuccess indicates successful command execution
	ExitSuccess = 0

	// ExitFailure indicates a general runtime failure
	ExitFailure = 1

	// ExitConfigError indicates invalid or missing configuration
	ExitConfigError = 2

	// ExitInvalidArguments indicates invalid command arguments
	ExitInvalidArguments = 3

	// ExitUpstreamError indicates a third-party service failure that
	// prevented the run from completing
	ExitUpstreamError = 4
)

// ExitError carries an explicit exit code out of a command whose error
// has already been reported.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// NewExitError returns an error carrying the given exit code.
func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}
