package types

import "time"

// BlockedUsersDocument is the persisted layout of the blocked user set.
type BlockedUsersDocument struct {
	BlockedUserIDs []string  `json:"blockedUserIds"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

// DeletionHistoryDocument is the persisted layout of all deletion histories.
type DeletionHistoryDocument struct {
	Deletions      map[string][]*DeletionRecord `json:"deletions"`
	RapidDeletions map[string][]*DeletionRecord `json:"rapidDeletions"`
	LastUpdated    time.Time                    `json:"lastUpdated"`
}

// ReviewDocument is the persisted layout of all review records.
type ReviewDocument struct {
	DeletedMessages map[string]*DeletedMessageReviewRecord `json:"deletedMessages"`
	LastUpdated     time.Time                              `json:"lastUpdated"`
}

// NewBlockedUsersDocument returns an empty blocked users document.
func NewBlockedUsersDocument() *BlockedUsersDocument {
	return &BlockedUsersDocument{BlockedUserIDs: []string{}}
}

// NewDeletionHistoryDocument returns an empty deletion history document.
func NewDeletionHistoryDocument() *DeletionHistoryDocument {
	return &DeletionHistoryDocument{
		Deletions:      make(map[string][]*DeletionRecord),
		RapidDeletions: make(map[string][]*DeletionRecord),
	}
}

// NewReviewDocument returns an empty review document.
func NewReviewDocument() *ReviewDocument {
	return &ReviewDocument{DeletedMessages: make(map[string]*DeletedMessageReviewRecord)}
}
