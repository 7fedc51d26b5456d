package platformtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robalyx/retract/internal/approval"
)

// Approver is an approval.Approver that records requests and lets tests decide them.
type Approver struct {
	mu      sync.Mutex
	tickets []*approval.Ticket
	auto    *bool
	err     error
}

// NewApprover creates an Approver that leaves tickets pending.
func NewApprover() *Approver {
	return &Approver{}
}

// AutoDecide resolves every following ticket immediately with approved.
func (a *Approver) AutoDecide(approved bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.auto = &approved
}

// Fail makes every following request return err.
func (a *Approver) Fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// RequestApproval implements approval.Approver.
func (a *Approver) RequestApproval(_ context.Context, req approval.Request) (*approval.Ticket, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.err != nil {
		return nil, a.err
	}

	now := time.Now()
	ticket := approval.NewTicket(fmt.Sprintf("ticket-%d", len(a.tickets)+1), req, now, now.Add(time.Hour))
	a.tickets = append(a.tickets, ticket)

	if a.auto != nil {
		ticket.Resolve(approval.Decision{Approved: *a.auto, ReviewerID: "test", DecidedAt: now})
	}

	return ticket, nil
}

// Tickets returns every issued ticket.
func (a *Approver) Tickets() []*approval.Ticket {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]*approval.Ticket(nil), a.tickets...)
}

// DecideAll resolves every pending ticket with approved.
func (a *Approver) DecideAll(approved bool) {
	for _, ticket := range a.Tickets() {
		ticket.Resolve(approval.Decision{Approved: approved, ReviewerID: "test", DecidedAt: time.Now()})
	}
}

var _ approval.Approver = (*Approver)(nil)
