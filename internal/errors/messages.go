package errors

import "fmt"

// Common error messages for the tracklog CLI.
// These templates ensure consistent, actionable error messages.

// MissingRange creates an error for a run with no commit range.
func MissingRange() *CLIError {
	return NewArgumentErrorWithUsage(
		"no commit range defined for the changelog",
		"tracklog generate --range <from>...<to>",
		"Pass --range or --date on the command line",
		"Or set source_control.default_range in .tracklog/config.yml",
	)
}

// JiraNotConfigured creates an error for missing tracker credentials.
func JiraNotConfigured() *CLIError {
	return NewConfigError(
		"jira integration is not configured",
		"Set jira.host, jira.username and jira.token in .tracklog/config.yml",
		"Or export TRACKLOG_JIRA__HOST, TRACKLOG_JIRA__USERNAME and TRACKLOG_JIRA__TOKEN",
	)
}

// SlackNotConfigured creates an error for a --slack run without chat credentials.
func SlackNotConfigured() *CLIError {
	return NewConfigError(
		"slack integration is not configured",
		"Set slack.token and slack.channel in .tracklog/config.yml",
		"Or drop the --slack flag",
	)
}

// GitlabNotConfigured creates an error for a --gitlab-release run without code-host credentials.
func GitlabNotConfigured() *CLIError {
	return NewConfigError(
		"gitlab integration is not configured",
		"Set gitlab.host, gitlab.user and gitlab.token in .tracklog/config.yml",
		"Or drop the --gitlab-release flag",
	)
}

// UnreadableWorkspace creates an error for a workspace that is not a git repository.
func UnreadableWorkspace(dir string, err error) *CLIError {
	return NewRuntimeError(
		fmt.Sprintf("cannot read git history in %s: %v", dir, err),
		"Run tracklog inside a git repository, or pass the workspace path as an argument",
	)
}
