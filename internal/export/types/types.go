package types

import "time"

// ExportRecord represents a review record in an export file.
type ExportRecord struct {
	MessageID      string    `json:"messageId"`
	User           string    `json:"user"` // User ID, or its hash when anonymized
	Status         string    `json:"status"`
	ContextType    string    `json:"type"`
	Theme          string    `json:"theme"`
	Action         string    `json:"action"`
	Reason         string    `json:"reason"`
	ReprocessCount int       `json:"reprocessCount"`
	DeletedAt      time.Time `json:"createdAt"`
}

// Columns is the column order shared by tabular formats.
var Columns = []string{
	"message_id", "user", "status", "type", "theme", "action", "reason", "reprocess_count", "created_at",
}
