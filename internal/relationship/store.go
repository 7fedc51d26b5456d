// Package relationship tracks which agent reply answers which user message and
// resolves deletions of those messages.
package relationship

import (
	"context"
	"sync"
	"time"

	"github.com/robalyx/retract/internal/executor"
	"github.com/robalyx/retract/internal/extractor"
	"github.com/robalyx/retract/internal/strategy"
	"github.com/robalyx/retract/internal/types"
	"github.com/robalyx/retract/internal/types/enum"
	"go.uber.org/zap"
)

// StatsSource provides lifetime deletion counts.
type StatsSource interface {
	GetStats(userID string) types.UserStats
}

type editedReply struct {
	ref executor.MessageRef
	at  time.Time
}

// Store owns the live relationships and the per-user bulk windows.
type Store struct {
	mu            sync.Mutex
	relationships map[string]*types.MessageRelationship // keyed by user message ID
	windows       map[string][]time.Time                // deletion timestamps per user
	edited        map[string][]editedReply              // replies edited in place per user

	ownerID   string
	stats     StatsSource
	extractor *extractor.Extractor
	engine    *strategy.Engine
	executor  *executor.Executor
	logger    *zap.Logger
	now       func() time.Time
}

// Options configures a Store.
type Options struct {
	OwnerID   string
	Stats     StatsSource
	Extractor *extractor.Extractor
	Engine    *strategy.Engine
	Executor  *executor.Executor
	Now       func() time.Time
}

// NewStore creates an empty Store.
func NewStore(opts Options, logger *zap.Logger) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Store{
		relationships: make(map[string]*types.MessageRelationship),
		windows:       make(map[string][]time.Time),
		edited:        make(map[string][]editedReply),
		ownerID:       opts.OwnerID,
		stats:         opts.Stats,
		extractor:     opts.Extractor,
		engine:        opts.Engine,
		executor:      opts.Executor,
		logger:        logger.Named("relationship_store"),
		now:           now,
	}
}

// StoreRelationship records that bot answered the user message. An existing
// relationship for the same user message is replaced. A nil snapshot is
// extracted when the message is deleted.
func (s *Store) StoreRelationship(
	userMessageID, userContent string, bot types.BotMessage, user types.UserInfo, snapshot *types.ExtractedContext,
) *types.MessageRelationship {
	channelID := bot.ChannelID

	rel := &types.MessageRelationship{
		UserMessageID:   userMessageID,
		BotMessageID:    bot.ID,
		UserID:          user.ID,
		ChannelID:       channelID,
		UserInfo:        user,
		Content:         userContent,
		ContextSnapshot: snapshot,
		DeletionHistory: []types.RelationshipDeletion{},
		CreatedAt:       s.now(),
	}

	s.mu.Lock()
	_, replaced := s.relationships[userMessageID]
	s.relationships[userMessageID] = rel
	s.mu.Unlock()

	s.logger.Debug("Stored relationship",
		zap.String("userMessageID", userMessageID),
		zap.String("botMessageID", bot.ID),
		zap.String("userID", user.ID),
		zap.Bool("replaced", replaced))

	return rel
}

// Get returns a copy of the relationship for a user message.
func (s *Store) Get(userMessageID string) (types.MessageRelationship, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rel, ok := s.relationships[userMessageID]
	if !ok {
		return types.MessageRelationship{}, false
	}

	return *rel, true
}

// Len returns the number of live relationships.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.relationships)
}

// Resolution is the relationship and decision produced for a deletion.
type Resolution struct {
	Relationship *types.MessageRelationship
	Context      types.DeletionContext
	Strategy     types.Strategy
	Additional   []executor.MessageRef
}

// ProcessDeletion resolves a deleted user message: it decides a strategy,
// executes it and removes the relationship.
func (s *Store) ProcessDeletion(ctx context.Context, deleted *types.DeletedMessage) *types.ProcessingResult {
	resolution, ok := s.Resolve(deleted)
	if !ok {
		return types.IgnoredResult(types.ReasonNoRelationship)
	}

	execution := s.executor.Execute(ctx, resolution.Strategy, executor.Target{
		Relationship: resolution.Relationship,
		Context:      resolution.Context,
		Additional:   resolution.Additional,
	})

	if resolution.Strategy.Action == enum.ActionUpdate && execution.Success {
		s.rememberEdit(resolution.Relationship)
	}

	return &types.ProcessingResult{
		Action:    resolution.Strategy.Action,
		Reason:    resolution.Strategy.ReasonCode,
		Strategy:  &resolution.Strategy,
		Context:   &resolution.Context,
		Execution: &execution,
	}
}

// Resolve removes the relationship of a deleted message and decides its
// strategy without touching the transcript.
func (s *Store) Resolve(deleted *types.DeletedMessage) (*Resolution, bool) {
	now := s.now()
	elapsed := deleted.TimeSinceCreation()
	thresholds := s.engine.Thresholds()

	s.mu.Lock()

	rel, ok := s.relationships[deleted.MessageID]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}

	delete(s.relationships, deleted.MessageID)

	rel.DeletionHistory = append(rel.DeletionHistory, types.RelationshipDeletion{
		DeletedAt:         now,
		TimeSinceCreation: elapsed,
	})

	cutoff := now.Add(-thresholds.BulkWindow)
	window := pruneTimes(s.windows[rel.UserID], cutoff)
	prior := len(window)
	s.windows[rel.UserID] = append(window, now)

	s.mu.Unlock()

	if rel.ContextSnapshot == nil {
		if s.extractor != nil {
			rel.ContextSnapshot = s.extractor.Extract(rel.Content, types.MessageMetadata{})
		} else {
			rel.ContextSnapshot = types.DefaultContext()
		}
	}

	total := prior + 1
	if s.stats != nil {
		total = max(s.stats.GetStats(rel.UserID).TotalDeletions, 1)
	}

	dc := s.engine.Classify(strategy.Signals{
		UserID:         rel.UserID,
		MessageID:      deleted.MessageID,
		ChannelID:      rel.ChannelID,
		IsOwner:        s.ownerID != "" && rel.UserID == s.ownerID,
		Elapsed:        elapsed,
		TotalDeletions: total,
		PriorInWindow:  prior,
	})
	decision := s.engine.Determine(dc)

	resolution := &Resolution{Relationship: rel, Context: dc, Strategy: decision}
	if decision.CreateSummary {
		resolution.Additional = s.takeEdits(rel.UserID, cutoff)
	}

	s.logger.Info("Resolved deletion",
		zap.String("userID", rel.UserID),
		zap.String("messageID", deleted.MessageID),
		zap.String("action", decision.Action.String()),
		zap.String("reason", decision.ReasonCode),
		zap.Int("priorInWindow", prior),
		zap.Int("totalDeletions", total))

	return resolution, true
}

// Cleanup removes relationships older than maxAge and stale window entries.
// It returns the number of relationships removed.
func (s *Store) Cleanup(maxAge time.Duration) int {
	now := s.now()
	cutoff := now.Add(-maxAge)
	windowCutoff := now.Add(-s.engine.Thresholds().BulkWindow)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0

	for id, rel := range s.relationships {
		if rel.CreatedAt.Before(cutoff) {
			delete(s.relationships, id)
			removed++
		}
	}

	for userID, times := range s.windows {
		if kept := pruneTimes(times, windowCutoff); len(kept) == 0 {
			delete(s.windows, userID)
		} else {
			s.windows[userID] = kept
		}
	}

	for userID, edits := range s.edited {
		if kept := pruneEdits(edits, windowCutoff); len(kept) == 0 {
			delete(s.edited, userID)
		} else {
			s.edited[userID] = kept
		}
	}

	if removed > 0 {
		s.logger.Info("Removed stale relationships", zap.Int("removed", removed), zap.Duration("maxAge", maxAge))
	}

	return removed
}

func (s *Store) rememberEdit(rel *types.MessageRelationship) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.edited[rel.UserID] = append(s.edited[rel.UserID], editedReply{
		ref: executor.MessageRef{ChannelID: rel.ChannelID, MessageID: rel.BotMessageID},
		at:  s.now(),
	})
}

// takeEdits returns and forgets the user's edited replies after cutoff.
func (s *Store) takeEdits(userID string, cutoff time.Time) []executor.MessageRef {
	s.mu.Lock()
	defer s.mu.Unlock()

	edits := pruneEdits(s.edited[userID], cutoff)
	delete(s.edited, userID)

	refs := make([]executor.MessageRef, len(edits))
	for i, e := range edits {
		refs[i] = e.ref
	}

	return refs
}

func pruneTimes(times []time.Time, cutoff time.Time) []time.Time {
	kept := times[:0:0]

	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	return kept
}

func pruneEdits(edits []editedReply, cutoff time.Time) []editedReply {
	kept := edits[:0:0]

	for _, e := range edits {
		if e.at.After(cutoff) {
			kept = append(kept, e)
		}
	}

	return kept
}
