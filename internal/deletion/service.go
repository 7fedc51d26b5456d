// Package deletion wires the moderation components into the per-event
// pipeline run for every deleted user message.
package deletion

import (
	"context"
	"time"

	"github.com/robalyx/retract/internal/behavior"
	"github.com/robalyx/retract/internal/executor"
	"github.com/robalyx/retract/internal/extractor"
	"github.com/robalyx/retract/internal/metrics"
	"github.com/robalyx/retract/internal/relationship"
	"github.com/robalyx/retract/internal/review"
	"github.com/robalyx/retract/internal/types"
	"github.com/robalyx/retract/internal/types/enum"
	"github.com/robalyx/retract/pkg/utils"
	"go.uber.org/zap"
)

// UserMessage is a message a user addressed to the agent.
type UserMessage struct {
	ID        string
	ChannelID string
	Content   string
	Author    types.UserInfo
}

// Options configures a Service.
type Options struct {
	OwnerID       string
	Tracker       *behavior.Tracker
	Relationships *relationship.Store
	Reviews       *review.Store
	Extractor     *extractor.Extractor
	Executor      *executor.Executor
	Metrics       *metrics.Collector
	AuditMode     enum.AuditMode
	Now           func() time.Time
}

// Service runs the deletion pipeline. Events of the same user are handled
// one at a time; events of different users run in parallel.
type Service struct {
	ownerID       string
	tracker       *behavior.Tracker
	relationships *relationship.Store
	reviews       *review.Store
	extractor     *extractor.Extractor
	executor      *executor.Executor
	metrics       *metrics.Collector
	auditMode     enum.AuditMode
	users         *utils.KeyedMutex
	logger        *zap.Logger
	now           func() time.Time
}

// NewService creates a Service.
func NewService(opts Options, logger *zap.Logger) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		ownerID:       opts.OwnerID,
		tracker:       opts.Tracker,
		relationships: opts.Relationships,
		reviews:       opts.Reviews,
		extractor:     opts.Extractor,
		executor:      opts.Executor,
		metrics:       opts.Metrics,
		auditMode:     opts.AuditMode,
		users:         utils.NewKeyedMutex(),
		logger:        logger.Named("deletion_service"),
		now:           now,
	}
}

// TrackReply records that the agent answered msg with bot. When the reply
// carries metadata the context is extracted right away since it is lost
// after the reply is sent; otherwise extraction waits for a deletion.
func (s *Service) TrackReply(msg UserMessage, bot types.BotMessage) *types.MessageRelationship {
	var snapshot *types.ExtractedContext
	if s.extractor != nil && hasMetadata(bot.Metadata) {
		snapshot = s.extractor.Extract(msg.Content, bot.Metadata)
	}

	if bot.ChannelID == "" {
		bot.ChannelID = msg.ChannelID
	}

	return s.relationships.StoreRelationship(msg.ID, msg.Content, bot, msg.Author, snapshot)
}

// HandleDeletion processes one deletion notification. It never fails: every
// problem is logged and reflected in the returned result.
func (s *Service) HandleDeletion(ctx context.Context, deleted *types.DeletedMessage) (result *types.ProcessingResult) {
	start := time.Now()
	contextType := metrics.TypeUntracked

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered from panic while handling deletion",
				zap.String("messageID", deleted.MessageID),
				zap.Any("panic", r),
				zap.Stack("stack"))
			s.metrics.RecordError("deletion_service")

			result = types.IgnoredResult("internal_error")
		}

		s.metrics.RecordDeletion(result.Action, result.Reason, contextType, time.Since(start))
	}()

	if deleted.DeletedAt.IsZero() {
		deleted.DeletedAt = s.now()
	}

	rel, ok := s.relationships.Get(deleted.MessageID)
	if !ok {
		s.recordUntracked(ctx, deleted)
		return types.IgnoredResult(types.ReasonNoRelationship)
	}

	unlock := s.users.Lock(rel.UserID)
	defer unlock()

	// A concurrent notification for the same message may have resolved it.
	if _, ok := s.relationships.Get(deleted.MessageID); !ok {
		return types.IgnoredResult(types.ReasonNoRelationship)
	}

	content := deleted.Content
	if content == "" {
		content = rel.Content
	}

	if snapshot := s.snapshot(rel, content); snapshot != nil {
		contextType = snapshot.Type.String()
	}

	isOwner := s.ownerID != "" && rel.UserID == s.ownerID
	elapsed := deleted.TimeSinceCreation()

	suspicion, err := s.tracker.RecordDeletion(ctx,
		rel.UserID, deleted.MessageID, rel.ChannelID, content, elapsed.Milliseconds(), isOwner)
	if err != nil {
		s.logger.Error("Deletion recorded in memory only", zap.String("userID", rel.UserID), zap.Error(err))
	}

	if s.tracker.IsBlocked(rel.UserID) && !isOwner {
		result = s.handleBlocked(ctx, deleted)
	} else {
		result = s.relationships.ProcessDeletion(ctx, deleted)
	}

	if s.shouldRetain(result, suspicion) {
		s.retain(ctx, rel, deleted, content, result)
	}

	s.logger.Info("Processed deletion",
		zap.String("userID", rel.UserID),
		zap.String("messageID", deleted.MessageID),
		zap.String("action", result.Action.String()),
		zap.String("reason", result.Reason),
		zap.Bool("suspicious", suspicion.Suspicious),
		zap.Duration("duration", time.Since(start)))

	return result
}

// recordUntracked counts the deletion of a message sent to the agent that
// never got a reply, so windowed counts cover every deletion the agent saw.
func (s *Service) recordUntracked(ctx context.Context, deleted *types.DeletedMessage) {
	if deleted.AuthorID == "" || !deleted.Addressed {
		return
	}

	unlock := s.users.Lock(deleted.AuthorID)
	defer unlock()

	isOwner := s.ownerID != "" && deleted.AuthorID == s.ownerID

	if _, err := s.tracker.RecordDeletion(ctx, deleted.AuthorID, deleted.MessageID, deleted.ChannelID,
		deleted.Content, deleted.TimeSinceCreation().Milliseconds(), isOwner); err != nil {
		s.logger.Error("Deletion recorded in memory only", zap.String("userID", deleted.AuthorID), zap.Error(err))
	}
}

// snapshot returns the relationship's context, extracting it the same way the
// relationship store does when the reply carried no metadata.
func (s *Service) snapshot(rel types.MessageRelationship, content string) *types.ExtractedContext {
	if rel.ContextSnapshot != nil || s.extractor == nil {
		return rel.ContextSnapshot
	}

	if rel.Content != "" {
		content = rel.Content
	}

	return s.extractor.Extract(content, types.MessageMetadata{})
}

// handleBlocked removes the reply to a blocked user without any notice.
func (s *Service) handleBlocked(ctx context.Context, deleted *types.DeletedMessage) *types.ProcessingResult {
	resolution, ok := s.relationships.Resolve(deleted)
	if !ok {
		return types.IgnoredResult(types.ReasonNoRelationship)
	}

	decision := types.Strategy{Action: enum.ActionDelete, ReasonCode: types.ReasonUserBlocked}
	execution := s.executor.Execute(ctx, decision, executor.Target{
		Relationship: resolution.Relationship,
		Context:      resolution.Context,
	})

	return &types.ProcessingResult{
		Action:    decision.Action,
		Reason:    decision.ReasonCode,
		Strategy:  &decision,
		Context:   &resolution.Context,
		Execution: &execution,
	}
}

func (s *Service) shouldRetain(result *types.ProcessingResult, suspicion types.SuspicionResult) bool {
	if s.reviews == nil || result.Context == nil {
		return false
	}

	switch s.auditMode {
	case enum.AuditModeAll:
		return true
	case enum.AuditModeSuspicious:
		return suspicion.Suspicious || result.Action == enum.ActionEscalate || result.Reason == types.ReasonUserBlocked
	case enum.AuditModeOff:
		return false
	}

	return false
}

func (s *Service) retain(
	ctx context.Context, rel types.MessageRelationship, deleted *types.DeletedMessage, content string,
	result *types.ProcessingResult,
) {
	snapshot := s.snapshot(rel, content)

	record := &types.DeletedMessageReviewRecord{
		MessageID:           deleted.MessageID,
		UserID:              rel.UserID,
		Username:            rel.UserInfo.Name(),
		ChannelID:           rel.ChannelID,
		FullContent:         content,
		EnhancedContext:     snapshot,
		BotResponseID:       rel.BotMessageID,
		AppliedAction:       result.Action,
		ReasonCode:          result.Reason,
		TimeSinceCreationMs: result.Context.TimeSinceCreation.Milliseconds(),
		IsOwner:             result.Context.IsOwner,
		IsRapid:             result.Context.IsRapidDeletion,
		IsBulk:              result.Context.IsBulkDeletion,
		DeletedAt:           deleted.DeletedAt,
	}

	if err := s.reviews.Add(ctx, record); err != nil {
		s.logger.Error("Failed to retain review record",
			zap.String("messageID", deleted.MessageID),
			zap.Error(err))
	}
}

func hasMetadata(m types.MessageMetadata) bool {
	return m.HasAttachments || m.FunctionName != "" || m.IsImageRequest || len(m.AttachmentTypes) > 0
}
