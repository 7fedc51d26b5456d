package types

import (
	"time"

	"github.com/robalyx/retract/internal/types/enum"
)

// TemplateKey selects the formatter used for transcript text.
type TemplateKey string

const (
	TemplateOwnerPrivilege   TemplateKey = "owner_privilege"
	TemplateRapidDeletion    TemplateKey = "rapid_deletion"
	TemplateMultipleCleanup  TemplateKey = "multiple_cleanup"
	TemplateFrequentDeleter  TemplateKey = "frequent_deleter"
	TemplateContextualSingle TemplateKey = "contextual_single"
	TemplateReviewFlagged    TemplateKey = "review_flagged"
)

// Reason codes attached to strategies and processing results.
const (
	ReasonOwnerPrivilege       = "owner_privilege"
	ReasonRapidDeletion        = "rapid_deletion"
	ReasonBulkDeletion         = "bulk_deletion"
	ReasonFrequentDeleter      = "frequent_deleter"
	ReasonContextualSingle     = "contextual_single"
	ReasonDefaultContextUpdate = "default_context_update"
	ReasonNoRelationship       = "no_relationship"
	ReasonUserBlocked          = "user_blocked"
)

// DeletionContext is everything the strategy engine needs to decide on a deletion.
type DeletionContext struct {
	UserID            string        `json:"userId"`
	MessageID         string        `json:"messageId"`
	ChannelID         string        `json:"channelId"`
	IsOwner           bool          `json:"isOwner"`
	IsRapidDeletion   bool          `json:"isRapidDeletion"`
	IsBulkDeletion    bool          `json:"isBulkDeletion"`
	IsFrequentDeleter bool          `json:"isFrequentDeleter"`
	TotalDeletions    int           `json:"totalDeletions"`
	RecentDeletions   int           `json:"recentDeletions"` // Prior deletions inside the bulk window
	TimeSinceCreation time.Duration `json:"timeSinceCreation"`
}

// Strategy is the decision for a single deletion event. It is never persisted.
type Strategy struct {
	Action        enum.Action `json:"action"`
	TemplateKey   TemplateKey `json:"templateKey,omitempty"`
	ReasonCode    string      `json:"reasonCode"`
	CreateSummary bool        `json:"createSummary,omitempty"`
}

// ExecutionResult is the outcome of applying a strategy to the transcript.
type ExecutionResult struct {
	Success          bool        `json:"success"`
	Action           enum.Action `json:"action"`
	Details          string      `json:"details,omitempty"`
	Error            string      `json:"error,omitempty"`
	RemovedMessages  int         `json:"removedMessages,omitempty"`
	SummaryMessageID string      `json:"summaryMessageId,omitempty"`
}

// ProcessingResult is returned for every deletion notification.
type ProcessingResult struct {
	Action    enum.Action      `json:"action"`
	Reason    string           `json:"reason"`
	Strategy  *Strategy        `json:"strategy,omitempty"`
	Context   *DeletionContext `json:"context,omitempty"`
	Execution *ExecutionResult `json:"execution,omitempty"`
}

// IgnoredResult builds a no-op processing result.
func IgnoredResult(reason string) *ProcessingResult {
	return &ProcessingResult{Action: enum.ActionIgnore, Reason: reason}
}
