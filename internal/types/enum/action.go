package enum

// Action represents what the executor does with the agent's reply to a deleted message.
//
//go:generate go tool enumer -type=Action -trimprefix=Action -transform=upper -json -sql
type Action int

const (
	// ActionUpdate rewrites the reply in place with a contextual note.
	ActionUpdate Action = iota
	// ActionDelete removes the reply.
	ActionDelete
	// ActionEscalate removes the reply silently and logs the event for operator review.
	ActionEscalate
	// ActionIgnore leaves the transcript untouched.
	ActionIgnore
)
