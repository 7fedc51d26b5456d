package types

import "time"

// UserInfo identifies the author of a user message.
type UserInfo struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
}

// Name returns the display name if set, otherwise the username.
func (u UserInfo) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}

	return u.Username
}

// RelationshipDeletion is an entry in a relationship's deletion history.
type RelationshipDeletion struct {
	DeletedAt         time.Time     `json:"deletedAt"`
	TimeSinceCreation time.Duration `json:"timeSinceCreation"`
}

// MessageRelationship associates a user's message with the agent's reply to it.
type MessageRelationship struct {
	UserMessageID   string                 `json:"userMessageId"`
	BotMessageID    string                 `json:"botMessageId"`
	UserID          string                 `json:"userId"`
	ChannelID       string                 `json:"channelId"`
	UserInfo        UserInfo               `json:"userInfo"`
	Content         string                 `json:"content"`
	ContextSnapshot *ExtractedContext      `json:"contextSnapshot"`
	DeletionHistory []RelationshipDeletion `json:"deletionHistory"`
	CreatedAt       time.Time              `json:"createdAt"`
}

// BotMessage is the agent's reply that a relationship points at.
type BotMessage struct {
	ID        string
	ChannelID string
	Content   string
	Metadata  MessageMetadata
}
