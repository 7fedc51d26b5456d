package bot

import (
	"strings"

	"github.com/robalyx/retract/pkg/utils"
)

const (
	// SlashCommandName is the name of the admin slash command.
	SlashCommandName = "deletions"
	// SlashCommandOption holds the command line of the slash command.
	SlashCommandOption = "command"

	maxContentLength = 2000
)

// ParseCommand returns the admin command line of a prefixed message.
// The prefix must be followed by whitespace or the end of the message.
func ParseCommand(prefix, content string) (string, bool) {
	content = strings.TrimSpace(content)

	rest, ok := strings.CutPrefix(content, prefix)
	if !ok || prefix == "" {
		return "", false
	}

	if rest != "" && !strings.HasPrefix(rest, " ") && !strings.HasPrefix(rest, "\n") {
		return "", false
	}

	return strings.TrimSpace(rest), true
}

// FitContent shortens content to the message length limit.
func FitContent(content string) string {
	if content == "" {
		return "✅"
	}

	return utils.TruncateWithEllipsis(content, maxContentLength)
}
