package types

import "time"

// BlockedUser is a row of the blocked user set in the database backend.
type BlockedUser struct {
	UserID    string    `bun:",pk"      json:"userId"`
	BlockedAt time.Time `bun:",notnull" json:"blockedAt"`
}

// DocumentMeta tracks when each persisted document was last replaced in the database backend.
type DocumentMeta struct {
	Name        string    `bun:",pk"      json:"name"`
	LastUpdated time.Time `bun:",notnull" json:"lastUpdated"`
}
