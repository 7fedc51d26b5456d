package types

import (
	"time"
)

// MaxSnippetLength is the maximum number of characters of deleted content kept in a record.
const MaxSnippetLength = 100

// DeletionRecord represents a single deletion issued by a user.
// Records are immutable once created.
type DeletionRecord struct {
	ID                  int64     `bun:",pk,autoincrement" json:"-"`
	UserID              string    `bun:",notnull"          json:"userId"`
	MessageID           string    `bun:",notnull"          json:"messageId"`
	ChannelID           string    `bun:",notnull"          json:"channelId"`
	ContentSnippet      string    `bun:",type:text"        json:"contentSnippet"`
	Timestamp           time.Time `bun:",notnull"          json:"timestamp"`
	TimeSinceCreationMs int64     `bun:",notnull"          json:"timeSinceCreation"`
	IsOwner             bool      `bun:",notnull"          json:"isOwner"`
	Rapid               bool      `bun:",notnull"          json:"-"` // Mirrors membership in the rapid list
}

// NewDeletionRecord creates a record with the content truncated to MaxSnippetLength.
func NewDeletionRecord(
	userID, messageID, channelID, content string, timeSinceCreationMs int64, isOwner bool, now time.Time,
) *DeletionRecord {
	return &DeletionRecord{
		UserID:              userID,
		MessageID:           messageID,
		ChannelID:           channelID,
		ContentSnippet:      truncateRunes(content, MaxSnippetLength),
		Timestamp:           now,
		TimeSinceCreationMs: timeSinceCreationMs,
		IsOwner:             isOwner,
	}
}

// UserStats summarizes the deletion behavior of a single user.
type UserStats struct {
	UserID            string            `json:"userId"`
	TotalDeletions    int               `json:"totalDeletions"`
	RapidDeletions    int               `json:"rapidDeletions"`
	DeletionsLastHour int               `json:"deletionsLastHour"`
	DeletionsLastDay  int               `json:"deletionsLastDay"`
	IsBlocked         bool              `json:"isBlocked"`
	RecentDeletions   []*DeletionRecord `json:"recentDeletions"`
}

// SuspicionResult is the outcome of evaluating a user's deletion behavior.
type SuspicionResult struct {
	Suspicious bool     `json:"suspicious"`
	Reasons    []string `json:"reasons"`
}

// DeletedMessage describes a deletion notification from the chat platform.
type DeletedMessage struct {
	MessageID string
	ChannelID string
	GuildID   string
	AuthorID  string    // Empty when the platform did not have the message cached
	Content   string    // Empty when the platform did not have the message cached
	Addressed bool      // The message was sent to the agent (direct message or mention)
	CreatedAt time.Time // When the original message was posted
	DeletedAt time.Time
}

// TimeSinceCreation returns how long the message existed before deletion.
func (m *DeletedMessage) TimeSinceCreation() time.Duration {
	if m.CreatedAt.IsZero() || m.DeletedAt.Before(m.CreatedAt) {
		return 0
	}

	return m.DeletedAt.Sub(m.CreatedAt)
}

// truncateRunes shortens s to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n])
}
