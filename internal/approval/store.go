package approval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
)

const keyPrefix = "approval:"

// PendingStore holds pending requests until they are resolved or expire.
type PendingStore interface {
	// Put stores a pending request for ttl.
	Put(ctx context.Context, id string, req Request, ttl time.Duration) error
	// Take atomically removes a pending request. It returns false if the
	// request does not exist or has already been taken.
	Take(ctx context.Context, id string) (Request, bool, error)
}

// RedisStore keeps pending requests in Redis with a TTL.
type RedisStore struct {
	client rueidis.Client
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(client rueidis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Put implements PendingStore.
func (s *RedisStore) Put(ctx context.Context, id string, req Request, ttl time.Duration) error {
	data, err := sonic.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal approval request: %w", err)
	}

	cmd := s.client.B().Set().Key(keyPrefix + id).Value(rueidis.BinaryString(data)).Nx().Ex(ttl).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateTicket, id)
		}

		return fmt.Errorf("failed to store approval request: %w", err)
	}

	return nil
}

// Take implements PendingStore using GETDEL so only one resolver wins.
func (s *RedisStore) Take(ctx context.Context, id string) (Request, bool, error) {
	data, err := s.client.Do(ctx, s.client.B().Getdel().Key(keyPrefix+id).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return Request{}, false, nil
		}

		return Request{}, false, fmt.Errorf("failed to take approval request: %w", err)
	}

	var req Request
	if err := sonic.Unmarshal(data, &req); err != nil {
		return Request{}, false, fmt.Errorf("failed to unmarshal approval request: %w", err)
	}

	return req, true, nil
}

type memoryEntry struct {
	req       Request
	expiresAt time.Time
}

// MemoryStore keeps pending requests in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

// Put implements PendingStore.
func (s *MemoryStore) Put(_ context.Context, id string, req Request, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTicket, id)
	}

	s.entries[id] = memoryEntry{req: req, expiresAt: s.now().Add(ttl)}

	return nil
}

// Take implements PendingStore.
func (s *MemoryStore) Take(_ context.Context, id string) (Request, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return Request{}, false, nil
	}

	delete(s.entries, id)

	if !s.now().Before(entry.expiresAt) {
		return Request{}, false, nil
	}

	return entry.req, true, nil
}

// ErrDuplicateTicket indicates a ticket id was stored twice.
var ErrDuplicateTicket = errors.New("duplicate approval ticket")
