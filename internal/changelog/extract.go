package changelog

import "regexp"

// DefaultTicketPattern matches project-prefixed ticket keys such as
// PROJ-123, including keys wrapped in brackets or other punctuation.
// Capture group one isolates the key text itself.
const DefaultTicketPattern = `((?:[A-Z][A-Z0-9]+)-\d+)`

// CompileTicketPattern compiles a ticket key pattern case-insensitively.
func CompileTicketPattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

// ExtractKeys returns the ticket keys found in text, in the order they
// first appear, with repeated keys collapsed to one entry. When the
// pattern has a capture group, the group's text is the key; otherwise
// the whole match is. No match yields an empty slice, never an error.
func ExtractKeys(text string, pattern *regexp.Regexp) []string {
	if text == "" || pattern == nil {
		return nil
	}

	matches := pattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		key := m[0]
		if len(m) > 1 && m[1] != "" {
			key = m[1]
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}
