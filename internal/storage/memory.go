package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/robalyx/retract/internal/types"
)

// Memory is an in-process Backend. Documents are deep-copied on every load and save.
type Memory struct {
	mu      sync.Mutex
	blocked []byte
	history []byte
	reviews []byte
	saveErr error
	loadErr error
	saves   int
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{}
}

// FailSaves makes every following save return err. Pass nil to restore normal behavior.
func (m *Memory) FailSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// FailLoads makes every following load return err. Pass nil to restore normal behavior.
func (m *Memory) FailLoads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// Saves returns the number of successful saves.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *Memory) LoadBlocked(_ context.Context) (*types.BlockedUsersDocument, error) {
	doc := types.NewBlockedUsersDocument()
	return doc, m.load(&m.blocked, doc)
}

func (m *Memory) SaveBlocked(_ context.Context, doc *types.BlockedUsersDocument) error {
	return m.save(&m.blocked, doc)
}

func (m *Memory) LoadHistory(_ context.Context) (*types.DeletionHistoryDocument, error) {
	doc := types.NewDeletionHistoryDocument()
	return doc, m.load(&m.history, doc)
}

func (m *Memory) SaveHistory(_ context.Context, doc *types.DeletionHistoryDocument) error {
	return m.save(&m.history, doc)
}

func (m *Memory) LoadReviews(_ context.Context) (*types.ReviewDocument, error) {
	doc := types.NewReviewDocument()
	return doc, m.load(&m.reviews, doc)
}

func (m *Memory) SaveReviews(_ context.Context, doc *types.ReviewDocument) error {
	return m.save(&m.reviews, doc)
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) load(src *[]byte, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loadErr != nil {
		return m.loadErr
	}

	if *src == nil {
		return nil
	}

	return sonic.Unmarshal(*src, v)
}

func (m *Memory) save(dst *[]byte, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, m.saveErr)
	}

	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	*dst = data
	m.saves++

	return nil
}
