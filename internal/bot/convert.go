package bot

import (
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/retract/internal/deletion"
	"github.com/robalyx/retract/internal/types"
)

// ToUserMessage converts the message a reply answers.
func ToUserMessage(msg *discord.Message) deletion.UserMessage {
	info := types.UserInfo{
		ID:       msg.Author.ID.String(),
		Username: msg.Author.Username,
	}

	if msg.Author.GlobalName != nil {
		info.DisplayName = *msg.Author.GlobalName
	}

	return deletion.UserMessage{
		ID:        msg.ID.String(),
		ChannelID: msg.ChannelID.String(),
		Content:   msg.Content,
		Author:    info,
	}
}

// ToBotMessage converts one of our replies. Attachments on the question or an
// image in the reply are recorded as metadata.
func ToBotMessage(reply *discord.Message, question *discord.Message) types.BotMessage {
	var metadata types.MessageMetadata

	for _, attachment := range question.Attachments {
		metadata.HasAttachments = true
		metadata.AttachmentTypes = append(metadata.AttachmentTypes, attachmentType(attachment))
	}

	for _, attachment := range reply.Attachments {
		if strings.HasPrefix(attachmentType(attachment), "image/") {
			metadata.IsImageRequest = true
			break
		}
	}

	if reply.Interaction != nil {
		metadata.FunctionName = reply.Interaction.Name
	}

	return types.BotMessage{
		ID:        reply.ID.String(),
		ChannelID: reply.ChannelID.String(),
		Content:   reply.Content,
		Metadata:  metadata,
	}
}

func attachmentType(a discord.Attachment) string {
	if a.ContentType != nil && *a.ContentType != "" {
		return *a.ContentType
	}

	return "application/octet-stream"
}

// ToDeletedMessage builds a deletion notification. cached is the zero message
// when the platform did not have the message cached; the creation time is
// always derived from the snowflake.
func ToDeletedMessage(
	messageID, channelID snowflake.ID, guildID *snowflake.ID, cached discord.Message, selfID snowflake.ID, deletedAt time.Time,
) *types.DeletedMessage {
	deleted := &types.DeletedMessage{
		MessageID: messageID.String(),
		ChannelID: channelID.String(),
		CreatedAt: messageID.Time(),
		DeletedAt: deletedAt,
	}

	if guildID != nil {
		deleted.GuildID = guildID.String()
	}

	if cached.ID == messageID {
		deleted.AuthorID = cached.Author.ID.String()
		deleted.Content = cached.Content
		deleted.Addressed = !cached.Author.Bot && cached.Author.ID != selfID &&
			(guildID == nil || mentions(cached, selfID))
	}

	return deleted
}

func mentions(msg discord.Message, userID snowflake.ID) bool {
	for _, user := range msg.Mentions {
		if user.ID == userID {
			return true
		}
	}

	return msg.ReferencedMessage != nil && msg.ReferencedMessage.Author.ID == userID
}
