package prompts

import (
	"strings"

	"github.com/SaiNageswarS/repo-advisor/memory"
)

const DefaultContextWindow = 5

// AssembleContext renders the last window turns of history followed by the new
// message. Each turn becomes a "role: content" line and the message is the
// trailing line. A cold session (no history) gets the message verbatim.
func AssembleContext(history []memory.Turn, message string, window int) string {
	if window <= 0 || len(history) == 0 {
		return message
	}

	if len(history) > window {
		history = history[len(history)-window:]
	}

	var b strings.Builder
	for _, turn := range history {
		b.WriteString(turn.Role)
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteByte('\n')
	}
	b.WriteString(message)

	return b.String()
}
