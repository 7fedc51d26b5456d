package types

import "github.com/robalyx/retract/internal/types/enum"

// MessageMetadata carries platform facts about a message that pattern matching cannot see.
type MessageMetadata struct {
	HasAttachments  bool     `json:"hasAttachments,omitempty"`
	AttachmentTypes []string `json:"attachmentTypes,omitempty"`
	FunctionName    string   `json:"functionName,omitempty"` // Set when the agent answered with a tool call
	IsImageRequest  bool     `json:"isImageRequest,omitempty"`
}

// ExtractedContext is the semantic summary of a message used for templates and review display.
type ExtractedContext struct {
	Summary      string           `json:"summary"`
	Type         enum.ContextType `json:"type"`
	Theme        enum.Theme       `json:"theme"`
	Intent       enum.Intent      `json:"intent"`
	FunctionType string           `json:"functionType,omitempty"`
	ImageContext string           `json:"imageContext,omitempty"`
	Complexity   float64          `json:"complexity"`
	Sentiment    enum.Sentiment   `json:"sentiment"`
	Entities     []string         `json:"entities"`
	Keywords     []string         `json:"keywords"`
}

// DefaultContext returns the conservative context used when extraction cannot run.
func DefaultContext() *ExtractedContext {
	return &ExtractedContext{
		Summary:   "a message",
		Type:      enum.ContextTypeConversation,
		Theme:     enum.ThemeGeneral,
		Intent:    enum.IntentGeneral,
		Sentiment: enum.SentimentNeutral,
		Entities:  []string{},
		Keywords:  []string{},
	}
}
