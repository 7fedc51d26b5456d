// Package strategy decides how the reply to a deleted message is handled.
package strategy

import (
	"time"

	"github.com/robalyx/retract/internal/setup/config"
	"github.com/robalyx/retract/internal/types"
	"github.com/robalyx/retract/internal/types/enum"
)

// Signals are the raw behavioral facts about one deletion.
type Signals struct {
	UserID         string
	MessageID      string
	ChannelID      string
	IsOwner        bool
	Elapsed        time.Duration // Time between posting and deletion
	TotalDeletions int           // Lifetime deletions including this one
	PriorInWindow  int           // Earlier deletions by the user inside the bulk window
}

// Engine is the deletion decision policy. It holds no mutable state.
type Engine struct {
	thresholds config.Thresholds
}

// NewEngine creates an Engine using the given thresholds.
func NewEngine(thresholds config.Thresholds) *Engine {
	return &Engine{thresholds: thresholds}
}

// Thresholds returns the thresholds the engine decides with.
func (e *Engine) Thresholds() config.Thresholds {
	return e.thresholds
}

// Classify turns raw signals into a DeletionContext.
func (e *Engine) Classify(s Signals) types.DeletionContext {
	return types.DeletionContext{
		UserID:            s.UserID,
		MessageID:         s.MessageID,
		ChannelID:         s.ChannelID,
		IsOwner:           s.IsOwner,
		IsRapidDeletion:   e.thresholds.IsRapid(s.Elapsed),
		IsBulkDeletion:    s.PriorInWindow >= e.thresholds.BulkMinCount,
		IsFrequentDeleter: s.TotalDeletions >= e.thresholds.FrequentThreshold,
		TotalDeletions:    s.TotalDeletions,
		RecentDeletions:   s.PriorInWindow,
		TimeSinceCreation: s.Elapsed,
	}
}

// Determine returns the strategy for a deletion. Rules are evaluated in order
// and the first match wins; the owner check always comes first.
func (e *Engine) Determine(dc types.DeletionContext) types.Strategy {
	switch {
	case dc.IsOwner:
		return types.Strategy{
			Action:      enum.ActionUpdate,
			TemplateKey: types.TemplateOwnerPrivilege,
			ReasonCode:  types.ReasonOwnerPrivilege,
		}
	case dc.IsRapidDeletion:
		return types.Strategy{
			Action:      enum.ActionDelete,
			TemplateKey: types.TemplateRapidDeletion,
			ReasonCode:  types.ReasonRapidDeletion,
		}
	case dc.IsBulkDeletion:
		return types.Strategy{
			Action:        enum.ActionDelete,
			TemplateKey:   types.TemplateMultipleCleanup,
			ReasonCode:    types.ReasonBulkDeletion,
			CreateSummary: true,
		}
	case dc.IsFrequentDeleter:
		return types.Strategy{
			Action:      enum.ActionEscalate,
			TemplateKey: types.TemplateFrequentDeleter,
			ReasonCode:  types.ReasonFrequentDeleter,
		}
	case dc.TotalDeletions <= e.thresholds.ContextualMax:
		return types.Strategy{
			Action:      enum.ActionUpdate,
			TemplateKey: types.TemplateContextualSingle,
			ReasonCode:  types.ReasonContextualSingle,
		}
	default:
		return types.Strategy{
			Action:      enum.ActionUpdate,
			TemplateKey: types.TemplateContextualSingle,
			ReasonCode:  types.ReasonDefaultContextUpdate,
		}
	}
}
