package approval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

var (
	// ErrTicketNotFound indicates the ticket expired, was already resolved, or never existed.
	ErrTicketNotFound = errors.New("approval ticket not found")
	// ErrClosed indicates the manager no longer accepts requests.
	ErrClosed = errors.New("approval manager closed")
)

// Approver issues approval requests.
type Approver interface {
	RequestApproval(ctx context.Context, req Request) (*Ticket, error)
}

// Notifier delivers a new ticket to the reviewer.
type Notifier interface {
	NotifyApproval(ctx context.Context, ticket *Ticket) error
}

// Manager issues tickets, persists them in a PendingStore and resolves them
// when a reviewer answers or the ticket expires.
type Manager struct {
	store    PendingStore
	notifier Notifier
	ttl      time.Duration
	tickets  *xsync.MapOf[string, *pendingTicket]
	logger   *zap.Logger
	now      func() time.Time

	mu     sync.Mutex
	closed bool
}

type pendingTicket struct {
	ticket *Ticket
	timer  *time.Timer
}

// NewManager creates a Manager. A nil notifier only logs new tickets.
func NewManager(store PendingStore, notifier Notifier, ttl time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		store:    store,
		notifier: notifier,
		ttl:      ttl,
		tickets:  xsync.NewMapOf[string, *pendingTicket](),
		logger:   logger.Named("approval"),
		now:      time.Now,
	}
}

// SetNotifier replaces the notifier. It must be called before requests are issued.
func (m *Manager) SetNotifier(notifier Notifier) {
	m.notifier = notifier
}

// RequestApproval implements Approver.
func (m *Manager) RequestApproval(ctx context.Context, req Request) (*Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	now := m.now()
	ticket := NewTicket(uuid.NewString(), req, now, now.Add(m.ttl))

	if err := m.store.Put(ctx, ticket.ID, req, m.ttl); err != nil {
		return nil, fmt.Errorf("failed to persist approval ticket: %w", err)
	}

	id := ticket.ID
	m.tickets.Store(id, &pendingTicket{
		ticket: ticket,
		timer:  time.AfterFunc(m.ttl, func() { m.expire(id) }),
	})

	m.logger.Info("Approval requested",
		zap.String("ticketID", id),
		zap.String("type", req.Type),
		zap.String("userID", req.UserID))

	if m.notifier != nil {
		if err := m.notifier.NotifyApproval(ctx, ticket); err != nil {
			m.logger.Error("Failed to notify reviewer", zap.String("ticketID", id), zap.Error(err))
		}
	}

	return ticket, nil
}

// Resolve records the reviewer's answer for a ticket.
func (m *Manager) Resolve(ctx context.Context, id string, approved bool, reviewerID string) (*Ticket, error) {
	if _, ok, err := m.store.Take(ctx, id); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTicketNotFound, id)
	}

	pending, ok := m.tickets.LoadAndDelete(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTicketNotFound, id)
	}

	pending.timer.Stop()
	pending.ticket.Resolve(Decision{Approved: approved, ReviewerID: reviewerID, DecidedAt: m.now()})

	m.logger.Info("Approval resolved",
		zap.String("ticketID", id),
		zap.Bool("approved", approved),
		zap.String("reviewerID", reviewerID))

	return pending.ticket, nil
}

// Pending returns the number of unresolved tickets.
func (m *Manager) Pending() int {
	return m.tickets.Size()
}

// Close denies every unresolved ticket and rejects new requests.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.tickets.Range(func(id string, pending *pendingTicket) bool {
		if _, ok := m.tickets.LoadAndDelete(id); ok {
			pending.timer.Stop()
			pending.ticket.Resolve(Decision{Expired: true, DecidedAt: m.now()})
		}

		return true
	})
}

func (m *Manager) expire(id string) {
	pending, ok := m.tickets.LoadAndDelete(id)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, _, err := m.store.Take(ctx, id); err != nil {
		m.logger.Warn("Failed to remove expired approval ticket", zap.String("ticketID", id), zap.Error(err))
	}

	pending.ticket.Resolve(Decision{Expired: true, DecidedAt: m.now()})
	m.logger.Info("Approval expired", zap.String("ticketID", id))
}

var _ Approver = (*Manager)(nil)
