package config

import (
	"fmt"
	"regexp"

	"github.com/raveheart1/tracklog/internal/changelog"
)

// Configuration is the full tracklog configuration tree.
type Configuration struct {
	Jira          JiraConfig          `koanf:"jira"`
	Gitlab        GitlabConfig        `koanf:"gitlab"`
	Slack         SlackConfig         `koanf:"slack"`
	SourceControl SourceControlConfig `koanf:"source_control"`

	// Categories defines the session taxonomy: canonical labels in
	// render order, each owning the tracker-native type names that map
	// to it. A tracker type may belong to at most one category.
	Categories []CategoryConfig `koanf:"categories" validate:"dive"`

	// Template overrides the built-in changelog template.
	Template string `koanf:"template"`

	// MaxConcurrentFetches bounds simultaneous tracker calls.
	MaxConcurrentFetches int `koanf:"max_concurrent_fetches" validate:"min=0,max=64"`
}

// JiraConfig configures the issue-tracker integration.
type JiraConfig struct {
	Host     string `koanf:"host"`
	Username string `koanf:"username"`
	Token    string `koanf:"token"`
	// BaseURL is the web base for ticket links; defaults to Host.
	BaseURL string `koanf:"base_url"`
	// TicketPattern matches ticket keys in commit messages. Capture
	// group one isolates the key from surrounding punctuation.
	TicketPattern string `koanf:"ticket_pattern"`
	// ApprovalStatuses are the status names meaning a ticket is
	// finalized, matched exactly and case-sensitively.
	ApprovalStatuses []string `koanf:"approval_statuses"`
}

// GitlabConfig configures the code-host integration.
type GitlabConfig struct {
	Host  string `koanf:"host"`
	User  string `koanf:"user"`
	Token string `koanf:"token"`
}

// SlackConfig configures the chat-platform integration.
type SlackConfig struct {
	Token     string `koanf:"token"`
	Channel   string `koanf:"channel"`
	Username  string `koanf:"username"`
	IconEmoji string `koanf:"icon_emoji"`
	IconURL   string `koanf:"icon_url"`
}

// SourceControlConfig configures history reading.
type SourceControlConfig struct {
	// DefaultRange is used when no --range/--date flags are given.
	DefaultRange RangeConfig `koanf:"default_range"`
}

// RangeConfig mirrors git.Range with dates as RFC 3339 / YYYY-MM-DD
// strings, as they appear in config files and on the command line.
type RangeConfig struct {
	From   string `koanf:"from"`
	To     string `koanf:"to"`
	After  string `koanf:"after"`
	Before string `koanf:"before"`
}

// IsZero reports whether no range bound is configured.
func (r RangeConfig) IsZero() bool {
	return r.From == "" && r.To == "" && r.After == "" && r.Before == ""
}

// CategoryConfig binds one canonical category label to the
// tracker-native issue type names it covers.
type CategoryConfig struct {
	Label string   `koanf:"label" validate:"required"`
	Types []string `koanf:"types"`
}

// CategoryLabels returns the canonical labels in configured order.
func (c *Configuration) CategoryLabels() []string {
	labels := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		labels[i] = cat.Label
	}
	return labels
}

// TypeMap builds the tracker-native type → canonical label lookup.
// A tracker type mapped to two categories is a configuration error,
// caught here at load time rather than silently dropped later.
func (c *Configuration) TypeMap() (map[string]string, error) {
	m := make(map[string]string)
	for _, cat := range c.Categories {
		for _, t := range cat.Types {
			if existing, ok := m[t]; ok && existing != cat.Label {
				return nil, fmt.Errorf("issue type %q mapped to both %q and %q", t, existing, cat.Label)
			}
			m[t] = cat.Label
		}
	}
	return m, nil
}

// CompileTicketPattern compiles the configured key pattern, falling
// back to the built-in default when unset.
func (c *Configuration) CompileTicketPattern() (*regexp.Regexp, error) {
	pattern := c.Jira.TicketPattern
	if pattern == "" {
		pattern = changelog.DefaultTicketPattern
	}
	re, err := changelog.CompileTicketPattern(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid jira.ticket_pattern: %w", err)
	}
	return re, nil
}
