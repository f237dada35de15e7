package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/raveheart1/tracklog/internal/changelog"
	"github.com/raveheart1/tracklog/internal/config"
	"github.com/raveheart1/tracklog/internal/errors"
	"github.com/raveheart1/tracklog/internal/git"
	"github.com/raveheart1/tracklog/internal/gitlab"
	"github.com/raveheart1/tracklog/internal/jira"
	"github.com/raveheart1/tracklog/internal/output"
	"github.com/raveheart1/tracklog/internal/progress"
	"github.com/raveheart1/tracklog/internal/slack"
)

var (
	generateRangeFlag   string
	generateDateFlag    string
	generateReleaseFlag string
	generateSlackFlag   bool
	generateGitlabFlag  bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [workspace]",
	Short: "Generate the changelog for a commit range",
	Long: `Generate the changelog for a commit range.

The workspace argument is the git repository to read; it defaults to the
current directory. The commit range comes from --range/--date, falling
back to source_control.default_range in the config.

Examples:
  tracklog generate --range origin/prod...origin/stage
  tracklog generate --date 2026-08-01...2026-08-31 ~/src/app
  tracklog generate --range v1.2.0...v1.3.0 --release v1.3.0 --slack`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&generateRangeFlag, "range", "r", "", "Commit range as <from>...<to>")
	generateCmd.Flags().StringVarP(&generateDateFlag, "date", "d", "", "Date range as <after>[...<before>]")
	generateCmd.Flags().StringVar(&generateReleaseFlag, "release", "", "Release name for these changes (defaults to the latest tag)")
	generateCmd.Flags().Lookup("release").NoOptDefVal = "latest-tag"
	generateCmd.Flags().BoolVar(&generateSlackFlag, "slack", false, "Post the changelog to the configured slack channel")
	generateCmd.Flags().BoolVar(&generateGitlabFlag, "gitlab-release", false, "Create a gitlab release carrying the changelog")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	workspace, err := resolveWorkspace(args)
	if err != nil {
		return err
	}

	cfg, err := config.LoadWithOptions(config.LoadOptions{ProjectConfigPath: configFlag})
	if err != nil {
		return errors.Wrap(err, errors.Configuration)
	}

	rng, err := resolveRange(cfg)
	if err != nil {
		return err
	}

	jiraClient := jira.NewClient(jira.Config{
		Host:     cfg.Jira.Host,
		Username: cfg.Jira.Username,
		Token:    cfg.Jira.Token,
		BaseURL:  cfg.Jira.BaseURL,
	})
	if !jiraClient.Enabled() {
		return errors.JiraNotConfigured()
	}
	slackClient := slack.NewClient(slack.Config{
		Token:     cfg.Slack.Token,
		Channel:   cfg.Slack.Channel,
		Username:  cfg.Slack.Username,
		IconEmoji: cfg.Slack.IconEmoji,
		IconURL:   cfg.Slack.IconURL,
	})
	if generateSlackFlag && !slackClient.Enabled() {
		return errors.SlackNotConfigured()
	}
	gitlabClient := gitlab.NewClient(gitlab.Config{
		Host:  cfg.Gitlab.Host,
		User:  cfg.Gitlab.User,
		Token: cfg.Gitlab.Token,
	})
	if generateGitlabFlag && !gitlabClient.Enabled() {
		return errors.GitlabNotConfigured()
	}

	pattern, err := cfg.CompileTicketPattern()
	if err != nil {
		return errors.Wrap(err, errors.Configuration)
	}
	typeMap, err := cfg.TypeMap()
	if err != nil {
		return errors.Wrap(err, errors.Configuration)
	}

	commits, err := git.CommitLogs(workspace, rng)
	if err != nil {
		return errors.UnreadableWorkspace(workspace, err)
	}

	spin := startSpinner(fmt.Sprintf(" Resolving tickets for %d commits...", len(commits)))
	correlator := &changelog.Correlator{
		Tickets:  jira.NewResolver(jiraClient, cfg.MaxConcurrentFetches),
		Pattern:  pattern,
		TypeMap:  typeMap,
		Warnings: cmd.ErrOrStderr(),
	}
	if slackClient.Enabled() {
		correlator.Identities = slackClient
	}
	err = correlator.Enrich(ctx, commits)
	stopSpinner(spin)
	if err != nil {
		return errors.Wrap(err, errors.Upstream)
	}

	meta := collectMeta(cmd, cfg, workspace)
	mrs := collectMergeRequests(ctx, cmd, gitlabClient, workspace, meta)

	ds := changelog.Aggregate(commits, mrs, cfg.Jira.ApprovalStatuses, cfg.CategoryLabels())
	meta.Release = resolveReleaseName(meta)

	var rendered strings.Builder
	if err := changelog.Render(&rendered, ds, meta, cfg.Template); err != nil {
		return errors.Wrap(err, errors.Configuration)
	}

	output.PrintSeparator(cmd.ErrOrStderr())
	fmt.Fprintln(cmd.OutOrStdout(), rendered.String())

	if generateSlackFlag {
		output.PrintPhaseHeader(cmd.ErrOrStderr(), 1, 1, "Posting changelog to "+slackClient.Channel())
		if err := slackClient.PostMessage(ctx, rendered.String(), ""); err != nil {
			return errors.Wrap(err, errors.Upstream)
		}
		output.PrintSuccess(cmd.ErrOrStderr(), "Posted to "+slackClient.Channel())
	}

	if generateGitlabFlag {
		if meta.Release == "" {
			return errors.NewArgumentError(
				"cannot create a gitlab release without a release name",
				"Tag the release first, or pass --release <name>",
			)
		}
		if err := gitlabClient.CreateRelease(ctx, meta.ProjectName, meta.Release, rendered.String()); err != nil {
			return errors.Wrap(err, errors.Upstream)
		}
		output.PrintSuccess(cmd.ErrOrStderr(), "Created release "+meta.Release)
	}

	return nil
}

// resolveWorkspace picks the git workspace from the positional argument
// or falls back to the working directory.
func resolveWorkspace(args []string) (string, error) {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrap(err, errors.Argument)
	}
	return abs, nil
}

// resolveRange builds the commit range from flags, falling back to the
// configured default range. An empty result is an argument error: the
// run aborts before any network call.
func resolveRange(cfg *config.Configuration) (git.Range, error) {
	var rng git.Range

	if generateRangeFlag != "" {
		from, to := splitRangeArg(generateRangeFlag)
		rng.From, rng.To = from, to
	}
	if generateDateFlag != "" {
		after, before := splitRangeArg(generateDateFlag)
		var err error
		if rng.After, err = parseDate(after); err != nil {
			return rng, errors.NewArgumentError(fmt.Sprintf("invalid --date value %q: %v", after, err))
		}
		if before != "" {
			if rng.Before, err = parseDate(before); err != nil {
				return rng, errors.NewArgumentError(fmt.Sprintf("invalid --date value %q: %v", before, err))
			}
		}
	}

	if rng.IsZero() {
		def := cfg.SourceControl.DefaultRange
		if def.IsZero() {
			return rng, errors.MissingRange()
		}
		rng.From, rng.To = def.From, def.To
		var err error
		if def.After != "" {
			if rng.After, err = parseDate(def.After); err != nil {
				return rng, errors.NewConfigError(fmt.Sprintf("invalid default_range.after %q: %v", def.After, err))
			}
		}
		if def.Before != "" {
			if rng.Before, err = parseDate(def.Before); err != nil {
				return rng, errors.NewConfigError(fmt.Sprintf("invalid default_range.before %q: %v", def.Before, err))
			}
		}
	}

	return rng, nil
}

// splitRangeArg splits "a...b" into its two sides; a bare value is the
// first side.
func splitRangeArg(s string) (string, string) {
	parts := strings.SplitN(s, "...", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

// parseDate accepts RFC 3339 timestamps or bare YYYY-MM-DD dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// collectMeta gathers the release metadata surrounding the dataset.
// Every field degrades to empty on failure; metadata never aborts a
// run that already has commits.
func collectMeta(cmd *cobra.Command, cfg *config.Configuration, workspace string) changelog.Meta {
	meta := changelog.Meta{
		JiraBaseURL: cfg.Jira.BaseURL,
		GitlabHost:  cfg.Gitlab.Host,
		GitlabUser:  cfg.Gitlab.User,
	}
	if meta.JiraBaseURL == "" {
		meta.JiraBaseURL = cfg.Jira.Host
	}

	warn := func(what string, err error) {
		output.PrintWarning(cmd.ErrOrStderr(), fmt.Sprintf("could not determine %s: %v", what, err))
	}

	var err error
	if meta.ProjectName, err = git.ProjectName(workspace); err != nil {
		warn("project name", err)
	}
	if meta.LatestTag, err = git.LatestTag(workspace); err != nil {
		warn("latest tag", err)
	}
	if meta.PreviousTag, err = git.PreviousTag(workspace); err != nil {
		warn("previous tag", err)
	}
	if meta.RemoteURL, err = git.RemoteURL(workspace); err != nil {
		warn("remote URL", err)
	}
	return meta
}

// collectMergeRequests fetches the merge requests merged since the
// latest tag. Failures are warnings: the changelog renders without the
// merge request section rather than aborting.
func collectMergeRequests(ctx context.Context, cmd *cobra.Command, client *gitlab.Client, workspace string, meta changelog.Meta) []changelog.MergeRequest {
	if !client.Enabled() || meta.LatestTag == "" {
		return nil
	}

	since, err := git.TagTimestamp(workspace, meta.LatestTag)
	if err != nil {
		output.PrintWarning(cmd.ErrOrStderr(), fmt.Sprintf("could not resolve tag %s: %v", meta.LatestTag, err))
		return nil
	}

	mrs, err := client.MergeRequests(ctx, meta.ProjectName, since, time.Time{})
	if err != nil {
		output.PrintWarning(cmd.ErrOrStderr(), fmt.Sprintf("could not load merge requests: %v", err))
		return nil
	}
	return mrs
}

// resolveReleaseName applies the --release flag: a bare flag selects
// the latest tag, mirroring the tracker's release naming default.
func resolveReleaseName(meta changelog.Meta) string {
	switch generateReleaseFlag {
	case "":
		return ""
	case "latest-tag":
		return meta.LatestTag
	default:
		return generateReleaseFlag
	}
}

// startSpinner starts a stderr spinner when attached to a terminal.
// Returns nil otherwise.
func startSpinner(suffix string) *spinner.Spinner {
	caps := progress.DetectTerminalCapabilities()
	if !caps.IsTTY {
		return nil
	}
	syms := progress.SelectSymbols(caps)
	s := spinner.New(spinner.CharSets[syms.SpinnerSet], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = suffix
	s.Start()
	return s
}

func stopSpinner(s *spinner.Spinner) {
	if s != nil {
		s.Stop()
	}
}
