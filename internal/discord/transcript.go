// Package discord adapts the Discord REST API to the platform transcript.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/retract/internal/platform"
	"go.uber.org/zap"
)

// MessageAPI is the part of rest.Rest the transcript uses.
type MessageAPI interface {
	GetMessage(channelID snowflake.ID, messageID snowflake.ID, opts ...rest.RequestOpt) (*discord.Message, error)
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
	UpdateMessage(channelID snowflake.ID, messageID snowflake.ID, messageUpdate discord.MessageUpdate, opts ...rest.RequestOpt) (*discord.Message, error)
	DeleteMessage(channelID snowflake.ID, messageID snowflake.ID, opts ...rest.RequestOpt) error
	GetChannel(channelID snowflake.ID, opts ...rest.RequestOpt) (discord.Channel, error)
}

// Transcript implements platform.Transcript on top of the Discord REST API.
type Transcript struct {
	api    MessageAPI
	logger *zap.Logger
}

// NewTranscript creates a Transcript.
func NewTranscript(api MessageAPI, logger *zap.Logger) *Transcript {
	return &Transcript{
		api:    api,
		logger: logger.Named("discord_transcript"),
	}
}

// FetchMessage implements platform.Transcript.
func (t *Transcript) FetchMessage(ctx context.Context, channelID, messageID string) (*platform.Message, error) {
	cid, mid, err := parseIDs(channelID, messageID)
	if err != nil {
		return nil, err
	}

	msg, err := t.api.GetMessage(cid, mid, rest.WithCtx(ctx))
	if err != nil {
		return nil, t.wrap("fetch message", err)
	}

	return ToMessage(msg), nil
}

// EditMessage implements platform.Transcript.
func (t *Transcript) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	cid, mid, err := parseIDs(channelID, messageID)
	if err != nil {
		return err
	}

	update := discord.NewMessageUpdateBuilder().SetContent(content).Build()

	if _, err := t.api.UpdateMessage(cid, mid, update, rest.WithCtx(ctx)); err != nil {
		return t.wrap("edit message", err)
	}

	return nil
}

// DeleteMessage implements platform.Transcript.
func (t *Transcript) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	cid, mid, err := parseIDs(channelID, messageID)
	if err != nil {
		return err
	}

	if err := t.api.DeleteMessage(cid, mid, rest.WithCtx(ctx)); err != nil {
		return t.wrap("delete message", err)
	}

	return nil
}

// SendMessage implements platform.Transcript.
func (t *Transcript) SendMessage(ctx context.Context, channelID, content string) (*platform.Message, error) {
	cid, err := snowflake.Parse(channelID)
	if err != nil {
		return nil, fmt.Errorf("invalid channel ID %q: %w", channelID, err)
	}

	create := discord.NewMessageCreateBuilder().SetContent(content).Build()

	msg, err := t.api.CreateMessage(cid, create, rest.WithCtx(ctx))
	if err != nil {
		return nil, t.wrap("send message", err)
	}

	return ToMessage(msg), nil
}

// FetchChannel implements platform.Transcript.
func (t *Transcript) FetchChannel(ctx context.Context, channelID string) (*platform.Channel, error) {
	cid, err := snowflake.Parse(channelID)
	if err != nil {
		return nil, fmt.Errorf("invalid channel ID %q: %w", channelID, err)
	}

	channel, err := t.api.GetChannel(cid, rest.WithCtx(ctx))
	if err != nil {
		return nil, t.wrap("fetch channel", err)
	}

	result := &platform.Channel{
		ID:   channel.ID().String(),
		Name: channel.Name(),
	}

	if guildChannel, ok := channel.(discord.GuildChannel); ok {
		result.GuildID = guildChannel.GuildID().String()
	}

	return result, nil
}

// wrap maps 404 responses to platform.ErrNotFound.
func (t *Transcript) wrap(op string, err error) error {
	var restErr *rest.Error
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("failed to %s: %w", op, platform.ErrNotFound)
	}

	t.logger.Debug("Discord request failed", zap.String("op", op), zap.Error(err))

	return fmt.Errorf("failed to %s: %w", op, err)
}

// ToMessage converts a Discord message.
func ToMessage(msg *discord.Message) *platform.Message {
	return &platform.Message{
		ID:        msg.ID.String(),
		ChannelID: msg.ChannelID.String(),
		AuthorID:  msg.Author.ID.String(),
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}

func parseIDs(channelID, messageID string) (snowflake.ID, snowflake.ID, error) {
	cid, err := snowflake.Parse(channelID)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid channel ID %q: %w", channelID, err)
	}

	mid, err := snowflake.Parse(messageID)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid message ID %q: %w", messageID, err)
	}

	return cid, mid, nil
}

var _ platform.Transcript = (*Transcript)(nil)
