package types

import (
	"time"

	"github.com/robalyx/retract/internal/types/enum"
)

// ReviewHistoryEntry is one status transition of a review record.
type ReviewHistoryEntry struct {
	ID             string            `json:"id"`
	PreviousStatus enum.ReviewStatus `json:"previousStatus"`
	Status         enum.ReviewStatus `json:"status"`
	ReviewerID     string            `json:"reviewerId"`
	Timestamp      time.Time         `json:"timestamp"`
	Notes          string            `json:"notes,omitempty"`
}

// DeletedMessageReviewRecord is the durable audit entry for a retained deletion.
type DeletedMessageReviewRecord struct {
	MessageID           string               `bun:",pk"                json:"messageId"`
	UserID              string               `bun:",notnull"           json:"userId"`
	Username            string               `bun:",notnull"           json:"username"`
	ChannelID           string               `bun:",notnull"           json:"channelId"`
	FullContent         string               `bun:",type:text"         json:"fullContent"`
	EnhancedContext     *ExtractedContext    `bun:",type:jsonb"        json:"enhancedContext"`
	Status              enum.ReviewStatus    `bun:",notnull,type:varchar" json:"status"`
	ReviewHistory       []ReviewHistoryEntry `bun:",type:jsonb"        json:"reviewHistory"`
	CanReprocess        bool                 `bun:",notnull"           json:"canReprocess"`
	ReprocessCount      int                  `bun:",notnull"           json:"reprocessCount"`
	BotResponseID       string               `bun:",nullzero"          json:"botResponseId,omitempty"`
	AppliedAction       enum.Action          `bun:",notnull,type:varchar" json:"appliedAction"`
	ReasonCode          string               `bun:",notnull"           json:"reasonCode"`
	TimeSinceCreationMs int64                `bun:",notnull"           json:"timeSinceCreation"`
	IsOwner             bool                 `bun:",notnull"           json:"isOwner"`
	IsRapid             bool                 `bun:",notnull"           json:"isRapid"`
	IsBulk              bool                 `bun:",notnull"           json:"isBulk"`
	DeletedAt           time.Time            `bun:",notnull"           json:"deletedAt"`
	LastReprocessedAt   *time.Time           `bun:",nullzero"          json:"lastReprocessedAt,omitempty"`
}

// ReviewFilter selects review records. Zero values match everything.
type ReviewFilter struct {
	UserID    string
	Status    *enum.ReviewStatus
	RapidOnly bool
	Since     time.Time
	Limit     int
}

// Matches reports whether the record satisfies the filter, ignoring Limit.
func (f *ReviewFilter) Matches(r *DeletedMessageReviewRecord) bool {
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}

	if f.Status != nil && r.Status != *f.Status {
		return false
	}

	if f.RapidOnly && !r.IsRapid {
		return false
	}

	if !f.Since.IsZero() && r.DeletedAt.Before(f.Since) {
		return false
	}

	return true
}

// ReprocessOptions tweaks a reprocessing run.
type ReprocessOptions struct {
	ForceBulk  bool
	ForceRapid bool
	DryRun     bool // Decide but do not touch the transcript
}

// ReprocessResult is the outcome of reprocessing one record.
type ReprocessResult struct {
	MessageID string           `json:"messageId"`
	Strategy  *Strategy        `json:"strategy,omitempty"`
	Execution *ExecutionResult `json:"execution,omitempty"`
	Error     string           `json:"error,omitempty"`
}
