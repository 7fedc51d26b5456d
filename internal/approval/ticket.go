// Package approval routes automatic block requests to a privileged reviewer.
package approval

import (
	"context"
	"sync"
	"time"
)

// Request types.
const (
	TypeBlockUser = "block_user"
)

// Request describes what the reviewer is asked to approve.
type Request struct {
	Type     string            `json:"type"`
	UserID   string            `json:"userId"`
	Username string            `json:"username,omitempty"`
	Context  string            `json:"context"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Decision is the outcome of an approval request.
type Decision struct {
	Approved   bool      `json:"approved"`
	ReviewerID string    `json:"reviewerId,omitempty"`
	Expired    bool      `json:"expired,omitempty"`
	DecidedAt  time.Time `json:"decidedAt"`
}

// Ticket is a pending approval request. It resolves exactly once.
type Ticket struct {
	ID        string
	Request   Request
	CreatedAt time.Time
	ExpiresAt time.Time

	once     sync.Once
	done     chan struct{}
	decision Decision
}

// NewTicket creates an unresolved ticket.
func NewTicket(id string, req Request, createdAt, expiresAt time.Time) *Ticket {
	return &Ticket{
		ID:        id,
		Request:   req,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
		done:      make(chan struct{}),
	}
}

// Resolve sets the decision. Only the first call has an effect; it reports
// whether this call resolved the ticket.
func (t *Ticket) Resolve(d Decision) bool {
	resolved := false

	t.once.Do(func() {
		t.decision = d
		resolved = true

		close(t.done)
	})

	return resolved
}

// Done is closed once the ticket is resolved.
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the ticket is resolved or ctx is done.
func (t *Ticket) Wait(ctx context.Context) (Decision, error) {
	select {
	case <-t.done:
		return t.decision, nil
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	}
}
