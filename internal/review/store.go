// Package review keeps the audit trail of retained deletions and lets the
// operator review, replay and act on them.
package review

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robalyx/retract/internal/executor"
	"github.com/robalyx/retract/internal/metrics"
	"github.com/robalyx/retract/internal/setup/config"
	"github.com/robalyx/retract/internal/storage"
	"github.com/robalyx/retract/internal/strategy"
	"github.com/robalyx/retract/internal/types"
	"github.com/robalyx/retract/internal/types/enum"
	"go.uber.org/zap"
)

var (
	// ErrUnauthorized is returned when the caller is not the owner.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRecordNotFound is returned for an unknown message ID.
	ErrRecordNotFound = errors.New("review record not found")
	// ErrInvalidStatus is returned for a status outside the review lifecycle.
	ErrInvalidStatus = errors.New("invalid review status")
	// ErrNotReprocessable is returned when reprocessing was disabled for a record.
	ErrNotReprocessable = errors.New("record cannot be reprocessed")
)

// Blocker blocks users on a manual ban.
type Blocker interface {
	BlockUser(ctx context.Context, userID, reason string) (bool, error)
}

// StatsSource provides lifetime deletion counts for reprocessing.
type StatsSource interface {
	GetStats(userID string) types.UserStats
}

// Options configures a Store.
type Options struct {
	OwnerID  string
	Backend  storage.Backend
	Engine   *strategy.Engine
	Executor *executor.Executor
	Blocker  Blocker
	Stats    StatsSource
	Metrics  *metrics.Collector
	Review   config.Review
	Now      func() time.Time
}

// Store owns every review record. Operator operations require the caller to be the owner.
type Store struct {
	mu      sync.RWMutex
	records map[string]*types.DeletedMessageReviewRecord
	saveMu  sync.Mutex

	ownerID  string
	backend  storage.Backend
	engine   *strategy.Engine
	executor *executor.Executor
	blocker  Blocker
	stats    StatsSource
	metrics  *metrics.Collector
	bulk     config.Review
	logger   *zap.Logger
	now      func() time.Time
}

// NewStore creates a Store and loads persisted records. A load failure is
// logged and the store starts empty.
func NewStore(ctx context.Context, opts Options, logger *zap.Logger) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Store{
		records:  make(map[string]*types.DeletedMessageReviewRecord),
		ownerID:  opts.OwnerID,
		backend:  opts.Backend,
		engine:   opts.Engine,
		executor: opts.Executor,
		blocker:  opts.Blocker,
		stats:    opts.Stats,
		metrics:  opts.Metrics,
		bulk:     opts.Review,
		logger:   logger.Named("review_store"),
		now:      now,
	}

	if s.backend != nil {
		doc, err := s.backend.LoadReviews(ctx)
		if err != nil {
			s.logger.Warn("Failed to load review records, starting empty", zap.Error(err))
			s.metrics.RecordError("review_store")
		} else {
			for id, record := range doc.DeletedMessages {
				if record != nil {
					s.records[id] = record
				}
			}
		}
	}

	return s
}

// Authorize returns ErrUnauthorized unless callerID is the owner.
func (s *Store) Authorize(callerID string) error {
	if s.ownerID == "" || callerID != s.ownerID {
		return fmt.Errorf("%w: caller %s", ErrUnauthorized, callerID)
	}

	return nil
}

// Add retains a new record with status pending_review. It is called by the
// deletion pipeline and is not owner-gated. An existing record for the same
// message is replaced.
func (s *Store) Add(ctx context.Context, record *types.DeletedMessageReviewRecord) error {
	record.Status = enum.ReviewStatusPendingReview
	record.CanReprocess = true

	if record.ReviewHistory == nil {
		record.ReviewHistory = []types.ReviewHistoryEntry{}
	}

	s.mu.Lock()
	s.records[record.MessageID] = record
	s.mu.Unlock()

	s.metrics.RecordReview(enum.ReviewStatusPendingReview)

	return s.save(ctx)
}

// Get returns a copy of the record for messageID.
func (s *Store) Get(callerID, messageID string) (*types.DeletedMessageReviewRecord, error) {
	if err := s.Authorize(callerID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[messageID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, messageID)
	}

	return cloneRecord(record), nil
}

// ListPending returns pending records, newest first. A status in the filter
// overrides the pending default.
func (s *Store) ListPending(callerID string, filter types.ReviewFilter) ([]*types.DeletedMessageReviewRecord, error) {
	if filter.Status == nil {
		pending := enum.ReviewStatusPendingReview
		filter.Status = &pending
	}

	return s.List(callerID, filter)
}

// List returns records matching filter, newest first.
func (s *Store) List(callerID string, filter types.ReviewFilter) ([]*types.DeletedMessageReviewRecord, error) {
	if err := s.Authorize(callerID); err != nil {
		return nil, err
	}

	return s.list(filter), nil
}

func (s *Store) list(filter types.ReviewFilter) []*types.DeletedMessageReviewRecord {
	s.mu.RLock()

	result := make([]*types.DeletedMessageReviewRecord, 0)
	for _, record := range s.records {
		if filter.Matches(record) {
			result = append(result, cloneRecord(record))
		}
	}

	s.mu.RUnlock()

	slices.SortFunc(result, func(a, b *types.DeletedMessageReviewRecord) int {
		if c := b.DeletedAt.Compare(a.DeletedAt); c != 0 {
			return c
		}

		if a.MessageID < b.MessageID {
			return -1
		}

		if a.MessageID > b.MessageID {
			return 1
		}

		return 0
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}

	return result
}

// Counts returns the number of records per status.
func (s *Store) Counts() map[enum.ReviewStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[enum.ReviewStatus]int)
	for _, record := range s.records {
		counts[record.Status]++
	}

	return counts
}

// UpdateStatus moves a record to a new status, appends the transition to its
// history and applies the matching transcript action. The returned execution
// result is nil when the status needs no action.
func (s *Store) UpdateStatus(
	ctx context.Context, callerID, messageID, status, notes string, allowReprocess bool,
) (*types.DeletedMessageReviewRecord, *types.ExecutionResult, error) {
	if err := s.Authorize(callerID); err != nil {
		return nil, nil, err
	}

	newStatus, err := enum.ReviewStatusString(status)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	s.mu.Lock()

	record, ok := s.records[messageID]
	if !ok {
		s.mu.Unlock()
		return nil, nil, fmt.Errorf("%w: %s", ErrRecordNotFound, messageID)
	}

	record.ReviewHistory = append(record.ReviewHistory, types.ReviewHistoryEntry{
		ID:             uuid.NewString(),
		PreviousStatus: record.Status,
		Status:         newStatus,
		ReviewerID:     callerID,
		Timestamp:      s.now(),
		Notes:          notes,
	})
	record.Status = newStatus
	record.CanReprocess = allowReprocess
	snapshot := cloneRecord(record)

	s.mu.Unlock()

	s.metrics.RecordReview(newStatus)
	s.logger.Info("Review status updated",
		zap.String("messageID", messageID),
		zap.String("status", newStatus.String()),
		zap.String("reviewerID", callerID))

	saveErr := s.save(ctx)
	execution := s.applyReviewAction(ctx, snapshot)

	if saveErr != nil {
		return snapshot, execution, saveErr
	}

	return snapshot, execution, nil
}

// applyReviewAction maps a review status to its transcript action.
func (s *Store) applyReviewAction(ctx context.Context, record *types.DeletedMessageReviewRecord) *types.ExecutionResult {
	if record.Status == enum.ReviewStatusPendingReview {
		return nil
	}

	if record.Status == enum.ReviewStatusBanned && s.blocker != nil {
		if _, err := s.blocker.BlockUser(ctx, record.UserID, "banned during review of "+record.MessageID); err != nil {
			s.logger.Error("Failed to persist ban", zap.String("userID", record.UserID), zap.Error(err))
		}
	}

	if record.BotResponseID == "" || s.executor == nil {
		return &types.ExecutionResult{Success: true, Action: enum.ActionIgnore, Details: "no reply to act on"}
	}

	rel := relationshipFor(record)
	target := executor.Target{Relationship: rel, Context: types.DeletionContext{TotalDeletions: 1}}

	var result types.ExecutionResult

	switch record.Status {
	case enum.ReviewStatusApproved:
		result = s.executor.Execute(ctx, types.Strategy{
			Action:      enum.ActionUpdate,
			TemplateKey: types.TemplateContextualSingle,
			ReasonCode:  "review_approved",
		}, target)
	case enum.ReviewStatusFlagged:
		s.logger.Warn("Deletion flagged during review",
			zap.String("messageID", record.MessageID),
			zap.String("userID", record.UserID),
			zap.String("channelID", record.ChannelID))

		result = s.executor.Flag(ctx, rel)
	case enum.ReviewStatusIgnored, enum.ReviewStatusBanned:
		result = s.executor.Execute(ctx, types.Strategy{
			Action:     enum.ActionDelete,
			ReasonCode: "review_" + record.Status.String(),
		}, target)
	case enum.ReviewStatusPendingReview:
		return nil
	}

	return &result
}

// Reprocess reruns the strategy engine and executor for a record. Options can
// force the bulk and rapid signals. A dry run only decides.
func (s *Store) Reprocess(
	ctx context.Context, callerID, messageID string, opts types.ReprocessOptions,
) (*types.ReprocessResult, error) {
	if err := s.Authorize(callerID); err != nil {
		return nil, err
	}

	return s.reprocess(ctx, messageID, opts)
}

func (s *Store) reprocess(ctx context.Context, messageID string, opts types.ReprocessOptions) (*types.ReprocessResult, error) {
	start := s.now()

	s.mu.RLock()
	stored, ok := s.records[messageID]
	var record *types.DeletedMessageReviewRecord
	if ok {
		record = cloneRecord(stored)
	}
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, messageID)
	}

	if !record.CanReprocess {
		return nil, fmt.Errorf("%w: %s", ErrNotReprocessable, messageID)
	}

	total := 1
	if s.stats != nil {
		total = max(s.stats.GetStats(record.UserID).TotalDeletions, 1)
	}

	prior := 0
	if opts.ForceBulk {
		prior = s.engine.Thresholds().BulkMinCount
	}

	dc := s.engine.Classify(strategy.Signals{
		UserID:         record.UserID,
		MessageID:      record.MessageID,
		ChannelID:      record.ChannelID,
		IsOwner:        record.IsOwner,
		Elapsed:        time.Duration(record.TimeSinceCreationMs) * time.Millisecond,
		TotalDeletions: total,
		PriorInWindow:  prior,
	})

	if opts.ForceRapid {
		dc.IsRapidDeletion = true
	}

	decision := s.engine.Determine(dc)
	result := &types.ReprocessResult{MessageID: messageID, Strategy: &decision}

	if !opts.DryRun {
		if record.BotResponseID != "" && s.executor != nil {
			execution := s.executor.Execute(ctx, decision, executor.Target{
				Relationship: relationshipFor(record),
				Context:      dc,
			})
			result.Execution = &execution

			if !execution.Success {
				result.Error = execution.Error
			}
		}

		now := s.now()

		s.mu.Lock()
		if current, ok := s.records[messageID]; ok {
			current.ReprocessCount++
			current.LastReprocessedAt = &now
			current.AppliedAction = decision.Action
			current.ReasonCode = decision.ReasonCode
		}
		s.mu.Unlock()

		if err := s.save(ctx); err != nil {
			result.Error = err.Error()
		}
	}

	s.metrics.RecordReprocess(result.Error == "", s.now().Sub(start))
	s.logger.Info("Reprocessed review record",
		zap.String("messageID", messageID),
		zap.String("action", decision.Action.String()),
		zap.String("reason", decision.ReasonCode),
		zap.Bool("dryRun", opts.DryRun))

	return result, nil
}

// Cleanup removes records deleted more than retentionDays ago.
func (s *Store) Cleanup(ctx context.Context, retentionDays int) (int, error) {
	cutoff := s.now().Add(-time.Duration(retentionDays) * 24 * time.Hour)

	s.mu.Lock()
	removed := 0

	for id, record := range s.records {
		if record.DeletedAt.Before(cutoff) {
			delete(s.records, id)
			removed++
		}
	}
	s.mu.Unlock()

	if removed == 0 {
		return 0, nil
	}

	s.logger.Info("Removed expired review records", zap.Int("removed", removed))

	return removed, s.save(ctx)
}

func (s *Store) save(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	doc := types.NewReviewDocument()
	doc.LastUpdated = s.now()

	s.mu.RLock()
	for id, record := range s.records {
		doc.DeletedMessages[id] = cloneRecord(record)
	}
	s.mu.RUnlock()

	if err := s.backend.SaveReviews(ctx, doc); err != nil {
		s.logger.Error("Failed to persist review records", zap.Error(err))
		s.metrics.RecordError("review_store")

		return fmt.Errorf("failed to save review records: %w", err)
	}

	return nil
}

func relationshipFor(record *types.DeletedMessageReviewRecord) *types.MessageRelationship {
	return &types.MessageRelationship{
		UserMessageID:   record.MessageID,
		BotMessageID:    record.BotResponseID,
		UserID:          record.UserID,
		ChannelID:       record.ChannelID,
		UserInfo:        types.UserInfo{ID: record.UserID, Username: record.Username},
		Content:         record.FullContent,
		ContextSnapshot: record.EnhancedContext,
	}
}

func cloneRecord(r *types.DeletedMessageReviewRecord) *types.DeletedMessageReviewRecord {
	c := *r
	c.ReviewHistory = slices.Clone(r.ReviewHistory)

	if r.EnhancedContext != nil {
		ctx := *r.EnhancedContext
		ctx.Entities = slices.Clone(r.EnhancedContext.Entities)
		ctx.Keywords = slices.Clone(r.EnhancedContext.Keywords)
		c.EnhancedContext = &ctx
	}

	if r.LastReprocessedAt != nil {
		t := *r.LastReprocessedAt
		c.LastReprocessedAt = &t
	}

	return &c
}
