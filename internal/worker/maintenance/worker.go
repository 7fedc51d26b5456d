// Package maintenance runs the periodic retention and garbage collection pass.
package maintenance

import (
	"context"
	"time"

	"github.com/robalyx/retract/internal/setup/config"
	"github.com/robalyx/retract/internal/worker/core"
	"go.uber.org/zap"
)

// RetentionCleaner removes records older than a number of days.
type RetentionCleaner interface {
	Cleanup(ctx context.Context, retentionDays int) (int, error)
}

// RelationshipCleaner removes relationships older than a maximum age.
type RelationshipCleaner interface {
	Cleanup(maxAge time.Duration) int
}

// CachePurger drops expired cache entries.
type CachePurger interface {
	PurgeExpired() int
}

// Options configures a Worker. Nil components are skipped.
type Options struct {
	History       RetentionCleaner
	Relationships RelationshipCleaner
	Reviews       RetentionCleaner
	Cache         CachePurger
	Moderation    config.ModerationConfig
	Reporter      *core.StatusReporter
}

// Result counts what one pass removed.
type Result struct {
	DeletionRecords int
	Relationships   int
	ReviewRecords   int
	CacheEntries    int
	Interrupted     bool
}

// Worker handles all maintenance operations.
type Worker struct {
	history         RetentionCleaner
	relationships   RelationshipCleaner
	reviews         RetentionCleaner
	cache           CachePurger
	reporter        *core.StatusReporter
	logger          *zap.Logger
	interval        time.Duration
	retentionDays   int
	reviewRetention int
	relationshipAge time.Duration
}

// New creates a new maintenance worker.
func New(opts Options, logger *zap.Logger) *Worker {
	m := opts.Moderation

	return &Worker{
		history:         opts.History,
		relationships:   opts.Relationships,
		reviews:         opts.Reviews,
		cache:           opts.Cache,
		reporter:        opts.Reporter,
		logger:          logger.Named("maintenance_worker"),
		interval:        time.Duration(m.CleanupInterval) * time.Minute,
		retentionDays:   m.RetentionDays,
		reviewRetention: m.Review.RetentionDays,
		relationshipAge: time.Duration(m.RelationshipMaxAge) * time.Minute,
	}
}

// SetInterval overrides the configured interval between passes.
func (w *Worker) SetInterval(d time.Duration) {
	w.interval = d
}

// Start runs a pass immediately and then on every interval until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	if w.reporter != nil {
		w.logger.Info("Maintenance worker started", zap.String("workerID", w.reporter.GetWorkerID()))
		go w.reporter.Run(ctx)
	} else {
		w.logger.Info("Maintenance worker started")
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.RunOnce(ctx)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			w.logger.Info("Maintenance worker stopped")
			return
		}
	}
}

// RunOnce performs a single pass. Each step works on independent records, so
// stopping between steps leaves consistent state.
func (w *Worker) RunOnce(ctx context.Context) Result {
	var result Result

	w.setHealthy(true)

	steps := []struct {
		name     string
		progress int
		run      func()
	}{
		{"Cleaning deletion history", 25, func() {
			if w.history != nil {
				result.DeletionRecords = w.runRetention(ctx, "deletion history", w.history, w.retentionDays)
			}
		}},
		{"Collecting relationships", 50, func() {
			if w.relationships != nil {
				result.Relationships = w.relationships.Cleanup(w.relationshipAge)
			}
		}},
		{"Cleaning review records", 75, func() {
			if w.reviews != nil {
				result.ReviewRecords = w.runRetention(ctx, "review records", w.reviews, w.reviewRetention)
			}
		}},
		{"Purging context cache", 95, func() {
			if w.cache != nil {
				result.CacheEntries = w.cache.PurgeExpired()
			}
		}},
	}

	for _, step := range steps {
		if ctx.Err() != nil {
			result.Interrupted = true
			w.logger.Info("Maintenance pass interrupted", zap.String("nextStep", step.name))

			return result
		}

		w.updateStatus(step.name, step.progress)
		step.run()
	}

	w.updateStatus("Completed", 100)
	w.logger.Info("Maintenance pass completed",
		zap.Int("deletionRecords", result.DeletionRecords),
		zap.Int("relationships", result.Relationships),
		zap.Int("reviewRecords", result.ReviewRecords),
		zap.Int("cacheEntries", result.CacheEntries))

	return result
}

func (w *Worker) runRetention(ctx context.Context, name string, cleaner RetentionCleaner, days int) int {
	removed, err := cleaner.Cleanup(ctx, days)
	if err != nil {
		w.logger.Error("Error cleaning "+name, zap.Error(err))
		w.setHealthy(false)
	}

	return removed
}

func (w *Worker) updateStatus(task string, progress int) {
	if w.reporter != nil {
		w.reporter.UpdateStatus(task, progress)
	}
}

func (w *Worker) setHealthy(healthy bool) {
	if w.reporter != nil {
		w.reporter.SetHealthy(healthy)
	}
}
