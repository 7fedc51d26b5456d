// Package platform defines the chat transcript capability the moderation pipeline acts on.
package platform

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a message or channel does not exist.
var ErrNotFound = errors.New("not found")

// Message is a message in the chat transcript.
type Message struct {
	ID        string
	ChannelID string
	AuthorID  string
	Content   string
	CreatedAt time.Time
}

// Channel is a chat channel.
type Channel struct {
	ID      string
	GuildID string
	Name    string
}

// Transcript mutates the live chat transcript.
// Every method may fail with a network or permission error.
type Transcript interface {
	FetchMessage(ctx context.Context, channelID, messageID string) (*Message, error)
	EditMessage(ctx context.Context, channelID, messageID, content string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	SendMessage(ctx context.Context, channelID, content string) (*Message, error)
	FetchChannel(ctx context.Context, channelID string) (*Channel, error)
}
