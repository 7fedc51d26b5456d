// Package executor applies deletion strategies to the live chat transcript.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robalyx/retract/internal/metrics"
	"github.com/robalyx/retract/internal/platform"
	"github.com/robalyx/retract/internal/types"
	"github.com/robalyx/retract/internal/types/enum"
	"github.com/robalyx/retract/pkg/utils"
	"go.uber.org/zap"
)

const (
	// MaxMessageLength is the longest message the chat platform accepts.
	MaxMessageLength = 2000
	// DefaultTimeout bounds each transcript call when no timeout is configured.
	DefaultTimeout = 10 * time.Second
)

// MessageRef points at a message in the transcript.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// Target is what a strategy is applied to.
type Target struct {
	Relationship *types.MessageRelationship
	Context      types.DeletionContext
	// Additional agent replies removed together with a bulk cleanup.
	Additional []MessageRef
}

// Executor performs transcript mutations. It never returns an error: failures
// are captured in the execution result.
type Executor struct {
	transcript platform.Transcript
	timeout    time.Duration
	metrics    *metrics.Collector
	logger     *zap.Logger
}

// New creates an Executor. A non-positive timeout uses DefaultTimeout.
func New(transcript platform.Transcript, timeout time.Duration, collector *metrics.Collector, logger *zap.Logger) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Executor{
		transcript: transcript,
		timeout:    timeout,
		metrics:    collector,
		logger:     logger.Named("action_executor"),
	}
}

// Execute applies the strategy to the target.
func (e *Executor) Execute(ctx context.Context, strategy types.Strategy, target Target) (result types.ExecutionResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Executor panicked", zap.Any("panic", r), zap.String("action", strategy.Action.String()))
			result = failure(strategy.Action, fmt.Errorf("internal error: %v", r))
		}

		e.metrics.RecordExecution(strategy.Action, result.Success, time.Since(start))
	}()

	rel := target.Relationship
	if rel == nil && strategy.Action != enum.ActionIgnore {
		return failure(strategy.Action, errors.New("no relationship to act on"))
	}

	switch strategy.Action {
	case enum.ActionUpdate:
		return e.update(ctx, strategy, target)
	case enum.ActionDelete:
		return e.remove(ctx, strategy, target)
	case enum.ActionEscalate:
		return e.escalate(ctx, strategy, target)
	case enum.ActionIgnore:
		return types.ExecutionResult{Success: true, Action: enum.ActionIgnore, Details: "no transcript change"}
	default:
		return failure(strategy.Action, fmt.Errorf("unsupported action %s", strategy.Action))
	}
}

func (e *Executor) update(ctx context.Context, strategy types.Strategy, target Target) types.ExecutionResult {
	rel := target.Relationship

	note, err := Format(strategy.TemplateKey, NewTemplateData(rel, target.Context.TotalDeletions))
	if err != nil {
		return failure(enum.ActionUpdate, err)
	}

	current, err := e.fetch(ctx, rel.ChannelID, rel.BotMessageID)
	if err != nil {
		e.logger.Warn("Failed to fetch reply",
			zap.String("channelID", rel.ChannelID),
			zap.String("botMessageID", rel.BotMessageID),
			zap.Error(err))

		return failure(enum.ActionUpdate, err)
	}

	if strings.HasPrefix(current.Content, note) {
		return types.ExecutionResult{Success: true, Action: enum.ActionUpdate, Details: "reply already annotated"}
	}

	if err := e.edit(ctx, rel.ChannelID, rel.BotMessageID, annotate(note, current.Content)); err != nil {
		e.logger.Warn("Failed to edit reply",
			zap.String("channelID", rel.ChannelID),
			zap.String("botMessageID", rel.BotMessageID),
			zap.Error(err))

		return failure(enum.ActionUpdate, err)
	}

	return types.ExecutionResult{
		Success: true,
		Action:  enum.ActionUpdate,
		Details: "reply edited with " + string(strategy.TemplateKey),
	}
}

func (e *Executor) remove(ctx context.Context, strategy types.Strategy, target Target) types.ExecutionResult {
	rel := target.Relationship
	result := types.ExecutionResult{Action: enum.ActionDelete}

	removed, err := e.delete(ctx, rel.ChannelID, rel.BotMessageID)
	if err != nil {
		e.logger.Warn("Failed to delete reply",
			zap.String("channelID", rel.ChannelID),
			zap.String("botMessageID", rel.BotMessageID),
			zap.Error(err))

		result.Error = err.Error()
	} else {
		result.Success = true
		if removed {
			result.RemovedMessages++
		} else {
			result.Details = "reply already removed"
		}
	}

	if !strategy.CreateSummary {
		return result
	}

	for _, ref := range target.Additional {
		ok, err := e.delete(ctx, ref.ChannelID, ref.MessageID)
		if err != nil {
			e.logger.Warn("Failed to delete earlier reply during cleanup",
				zap.String("channelID", ref.ChannelID),
				zap.String("botMessageID", ref.MessageID),
				zap.Error(err))

			continue
		}

		if ok {
			result.RemovedMessages++
		}
	}

	if result.RemovedMessages == 0 {
		return result
	}

	data := NewTemplateData(rel, result.RemovedMessages)

	summary, err := Format(strategy.TemplateKey, data)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	msg, err := e.send(ctx, rel.ChannelID, summary)
	if err != nil {
		e.logger.Warn("Failed to send cleanup summary", zap.String("channelID", rel.ChannelID), zap.Error(err))
		result.Details = "summary not sent: " + err.Error()

		return result
	}

	result.SummaryMessageID = msg.ID
	result.Details = fmt.Sprintf("removed %d replies with summary", result.RemovedMessages)

	return result
}

func (e *Executor) escalate(ctx context.Context, strategy types.Strategy, target Target) types.ExecutionResult {
	rel := target.Relationship
	dc := target.Context

	e.logger.Warn("Deletion escalated for operator review",
		zap.String("escalation", strategy.ReasonCode),
		zap.String("userID", rel.UserID),
		zap.String("username", rel.UserInfo.Name()),
		zap.String("messageID", rel.UserMessageID),
		zap.String("channelID", rel.ChannelID),
		zap.Int("totalDeletions", dc.TotalDeletions),
		zap.Duration("timeSinceCreation", dc.TimeSinceCreation))

	result := types.ExecutionResult{Action: enum.ActionEscalate}

	removed, err := e.delete(ctx, rel.ChannelID, rel.BotMessageID)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.Details = "escalated"

	if removed {
		result.RemovedMessages = 1
	}

	return result
}

// Flag keeps the reply and prefixes it with a review notice.
func (e *Executor) Flag(ctx context.Context, rel *types.MessageRelationship) types.ExecutionResult {
	start := time.Now()
	result := e.flag(ctx, rel)
	e.metrics.RecordExecution(enum.ActionUpdate, result.Success, time.Since(start))

	return result
}

func (e *Executor) flag(ctx context.Context, rel *types.MessageRelationship) types.ExecutionResult {
	msg, err := e.fetch(ctx, rel.ChannelID, rel.BotMessageID)
	if err != nil {
		return failure(enum.ActionUpdate, err)
	}

	notice := reviewFlagged(TemplateData{})
	if strings.HasPrefix(msg.Content, notice) {
		return types.ExecutionResult{Success: true, Action: enum.ActionUpdate, Details: "reply already flagged"}
	}

	data := NewTemplateData(rel, 0)
	data.Original = msg.Content

	if err := e.edit(ctx, rel.ChannelID, rel.BotMessageID, reviewFlagged(data)); err != nil {
		return failure(enum.ActionUpdate, err)
	}

	return types.ExecutionResult{Success: true, Action: enum.ActionUpdate, Details: "reply flagged for review"}
}

func (e *Executor) fetch(ctx context.Context, channelID, messageID string) (*platform.Message, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	return e.transcript.FetchMessage(callCtx, channelID, messageID)
}

// annotate puts the note above the reply. The note survives truncation.
func annotate(note, original string) string {
	if original == "" {
		return note
	}

	return note + "\n\n" + original
}

// edit replaces a message's content, truncated to MaxMessageLength.
func (e *Executor) edit(ctx context.Context, channelID, messageID, content string) error {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	return e.transcript.EditMessage(callCtx, channelID, messageID, utils.TruncateWithEllipsis(content, MaxMessageLength))
}

// delete removes a message. It reports false without error when the message is already gone.
func (e *Executor) delete(ctx context.Context, channelID, messageID string) (bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.transcript.DeleteMessage(callCtx, channelID, messageID); err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

func (e *Executor) send(ctx context.Context, channelID, content string) (*platform.Message, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	return e.transcript.SendMessage(callCtx, channelID, utils.TruncateWithEllipsis(content, MaxMessageLength))
}

func failure(action enum.Action, err error) types.ExecutionResult {
	return types.ExecutionResult{Success: false, Action: action, Error: err.Error()}
}
