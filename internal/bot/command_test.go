package bot_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/robalyx/retract/internal/bot"
	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		line    string
		ok      bool
	}{
		{name: "bare prefix", content: "!deletions", line: "", ok: true},
		{name: "command", content: "!deletions list-pending 5", line: "list-pending 5", ok: true},
		{name: "surrounding space", content: "  !deletions   stats  ", line: "stats", ok: true},
		{name: "newline separator", content: "!deletions\nhelp", line: "help", ok: true},
		{name: "longer word", content: "!deletionsx stats"},
		{name: "not prefixed", content: "what about !deletions"},
		{name: "plain chat", content: "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			line, ok := bot.ParseCommand("!deletions", tt.content)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.line, line)
		})
	}

	_, ok := bot.ParseCommand("", "anything")
	assert.False(t, ok, "empty prefix never matches")
}

func TestFitContent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "✅", bot.FitContent(""))
	assert.Equal(t, "short", bot.FitContent("short"))

	long := bot.FitContent(strings.Repeat("é", 2500))
	assert.Equal(t, 2000, utf8.RuneCountInString(long))
	assert.True(t, strings.HasSuffix(long, "..."))
}
