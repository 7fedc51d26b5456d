package enum

// ContextType is the coarse classification of a message's content.
//
//go:generate go tool enumer -type=ContextType -trimprefix=ContextType -transform=snake -json
type ContextType int

const (
	ContextTypeQuestion ContextType = iota
	ContextTypeImageRequest
	ContextTypeFunctionCall
	ContextTypeCommand
	ContextTypeConversation
)

// Sentiment is the keyword-derived tone of a message.
//
//go:generate go tool enumer -type=Sentiment -trimprefix=Sentiment -transform=snake -json
type Sentiment int

const (
	SentimentNeutral Sentiment = iota
	SentimentPositive
	SentimentNegative
)

// Theme is the dominant topic of a message.
type Theme string

const (
	ThemeTechnical Theme = "technical"
	ThemeCreative  Theme = "creative"
	ThemeHelp      Theme = "help"
	ThemeCasual    Theme = "casual"
	ThemeBusiness  Theme = "business"
	ThemeGeneral   Theme = "general"
)

// Intent is what the author appears to want from the agent.
type Intent string

const (
	IntentSeekingInformation  Intent = "seeking_information"
	IntentRequestingCreation  Intent = "requesting_creation"
	IntentRequestingHelp      Intent = "requesting_help"
	IntentExpressingGratitude Intent = "expressing_gratitude"
	IntentGreeting            Intent = "greeting"
	IntentGeneral             Intent = "general"
)
