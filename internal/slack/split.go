package slack

import "strings"

// MessageSizeLimit is the platform's maximum message length.
const MessageSizeLimit = 4000

// continuation marks where a single over-long line was cut.
const continuation = "..."

// SplitMessage cuts text into chunks that fit the given size limit,
// dividing on newline boundaries where possible. Lines keep their own
// terminators, so newline-boundary chunks concatenate back to the
// original text. A single line longer than the limit is cut mid-line,
// with continuation markers on both sides of each cut. Text within the
// limit comes back as one chunk.
func SplitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	cutAt := limit - len(continuation)
	var messages []string
	var block string

	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue // trailing element of newline-terminated text
		}
		if len(block)+len(line) <= limit {
			block += line
			continue
		}

		if block != "" {
			messages = append(messages, block)
			block = line
			if len(block) <= limit {
				continue
			}
			block = ""
			// fall through: the line alone exceeds the limit
		}

		// Cut the over-long line into marked pieces.
		for len(line) > 0 {
			last := strings.TrimSpace(line[:min(cutAt, len(line))])
			line = strings.TrimSpace(line[min(cutAt, len(line)):])
			if len(line) > 0 {
				last += continuation
				line = continuation + line
			}
			messages = append(messages, last)
		}
	}

	if block != "" {
		messages = append(messages, block)
	}
	return messages
}
