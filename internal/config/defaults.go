package config

// GetDefaults returns the default configuration values as koanf keys.
func GetDefaults() map[string]any {
	return map[string]any{
		"jira.ticket_pattern":    "", // empty selects changelog.DefaultTicketPattern
		"jira.approval_statuses": []string{"Done", "Closed", "Accepted"},
		"slack.username":         "Changelog Bot",
		"slack.icon_emoji":       ":clipboard:",
		"max_concurrent_fetches": 5,
	}
}

// DefaultCategories is the built-in session taxonomy, applied when the
// config defines no categories of its own.
func DefaultCategories() []CategoryConfig {
	return []CategoryConfig{
		{Label: "Breaking Change", Types: []string{"Breaking Change"}},
		{Label: "Feature", Types: []string{"Story", "New Feature"}},
		{Label: "Enhancement", Types: []string{"Task", "Improvement"}},
		{Label: "Bug Fixes", Types: []string{"Bug"}},
		{Label: "Internal", Types: []string{"Technical Debt", "Sub-task"}},
		{Label: "Documentation", Types: []string{"Documentation"}},
	}
}
