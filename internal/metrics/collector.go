// Package metrics accumulates counters and timings for the moderation pipeline.
package metrics

import (
	"maps"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robalyx/retract/internal/types/enum"
	"go.uber.org/zap"
)

// maxMemorySamples is the number of memory samples kept for snapshots.
const maxMemorySamples = 60

// Timer names recorded by the pipeline.
const (
	TimerDeletion   = "deletion"
	TimerExtraction = "extraction"
	TimerExecution  = "execution"
	TimerAdmin      = "admin"
	TimerReprocess  = "reprocess"
)

// TypeUntracked labels deletions of messages without an extracted context.
const TypeUntracked = "untracked"

// TimerStats summarizes the durations recorded under one name.
type TimerStats struct {
	Count int64         `json:"count"`
	Total time.Duration `json:"total"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
}

// Avg returns the mean duration.
func (t TimerStats) Avg() time.Duration {
	if t.Count == 0 {
		return 0
	}

	return t.Total / time.Duration(t.Count)
}

// MemorySample is one reading of the Go runtime memory statistics.
type MemorySample struct {
	Timestamp  time.Time `json:"timestamp"`
	HeapAlloc  uint64    `json:"heapAlloc"`
	Sys        uint64    `json:"sys"`
	Goroutines int       `json:"goroutines"`
}

// DeletionStats counts processed deletion events.
type DeletionStats struct {
	Total    int64            `json:"total"`
	ByAction map[string]int64 `json:"byAction"`
	ByReason map[string]int64 `json:"byReason"`
	ByType   map[string]int64 `json:"byType"`
}

// ExtractionStats counts context extractions.
type ExtractionStats struct {
	Total       int64            `json:"total"`
	ByType      map[string]int64 `json:"byType"`
	CacheHits   int64            `json:"cacheHits"`
	CacheMisses int64            `json:"cacheMisses"`
}

// ReviewStats counts review activity and executor outcomes.
type ReviewStats struct {
	ByStatus        map[string]int64 `json:"byStatus"`
	Reprocessed     int64            `json:"reprocessed"`
	ReprocessFailed int64            `json:"reprocessFailed"`
	ExecutorSuccess int64            `json:"executorSuccess"`
	ExecutorFailure int64            `json:"executorFailure"`
}

// AdminStats counts admin commands.
type AdminStats struct {
	Total     int64            `json:"total"`
	Denied    int64            `json:"denied"`
	ByCommand map[string]int64 `json:"byCommand"`
	ByCaller  map[string]int64 `json:"byCaller"`
}

// Snapshot is a point-in-time copy of every metric.
type Snapshot struct {
	Timestamp   time.Time             `json:"timestamp"`
	Uptime      time.Duration         `json:"uptime"`
	Deletions   DeletionStats         `json:"deletions"`
	Extractions ExtractionStats       `json:"extractions"`
	Reviews     ReviewStats           `json:"reviews"`
	Admin       AdminStats            `json:"admin"`
	Errors      map[string]int64      `json:"errors"`
	Timers      map[string]TimerStats `json:"timers"`
	Memory      []MemorySample        `json:"memory"`
}

// Collector records pipeline metrics. All methods are safe on a nil Collector.
type Collector struct {
	mu        sync.Mutex
	startedAt time.Time
	now       func() time.Time

	deletions   DeletionStats
	extractions ExtractionStats
	reviews     ReviewStats
	admin       AdminStats
	errors      map[string]int64
	timers      map[string]TimerStats
	memory      []MemorySample

	prom   *promVectors
	logger *zap.Logger
}

// NewCollector creates an empty Collector.
func NewCollector(logger *zap.Logger) *Collector {
	c := &Collector{
		startedAt: time.Now(),
		now:       time.Now,
		prom:      newPromVectors(),
		logger:    logger.Named("metrics"),
	}
	c.resetLocked()

	return c
}

// Registry returns the Prometheus registry holding the exported metrics.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return prometheus.NewRegistry()
	}

	return c.prom.registry
}

// RecordDeletion counts a processed deletion event. contextType is the
// extracted content type of the deleted message, or TypeUntracked.
func (c *Collector) RecordDeletion(action enum.Action, reason, contextType string, duration time.Duration) {
	c.record("deletion", func() {
		c.deletions.Total++
		c.deletions.ByAction[action.String()]++
		c.deletions.ByReason[reason]++
		c.deletions.ByType[contextType]++
		c.addTimerLocked(TimerDeletion, duration)
		c.prom.deletions.WithLabelValues(action.String(), reason, contextType).Inc()
	})
}

// RecordExtraction counts a context extraction and whether it came from the cache.
func (c *Collector) RecordExtraction(contextType enum.ContextType, cacheHit bool, duration time.Duration) {
	c.record("extraction", func() {
		c.extractions.Total++
		c.extractions.ByType[contextType.String()]++

		cache := "miss"
		if cacheHit {
			c.extractions.CacheHits++
			cache = "hit"
		} else {
			c.extractions.CacheMisses++
		}

		c.addTimerLocked(TimerExtraction, duration)
		c.prom.extractions.WithLabelValues(contextType.String(), cache).Inc()
	})
}

// RecordExecution counts an executor outcome.
func (c *Collector) RecordExecution(action enum.Action, success bool, duration time.Duration) {
	c.record("execution", func() {
		if success {
			c.reviews.ExecutorSuccess++
		} else {
			c.reviews.ExecutorFailure++
		}

		c.addTimerLocked(TimerExecution, duration)
		c.prom.executions.WithLabelValues(action.String(), result(success)).Inc()
	})
}

// RecordReview counts a review record reaching status.
func (c *Collector) RecordReview(status enum.ReviewStatus) {
	c.record("review", func() {
		c.reviews.ByStatus[status.String()]++
		c.prom.reviews.WithLabelValues(status.String()).Inc()
	})
}

// RecordReprocess counts a reprocessing run.
func (c *Collector) RecordReprocess(success bool, duration time.Duration) {
	c.record("reprocess", func() {
		if success {
			c.reviews.Reprocessed++
		} else {
			c.reviews.ReprocessFailed++
		}

		c.addTimerLocked(TimerReprocess, duration)
		c.prom.reprocessed.WithLabelValues(result(success)).Inc()
	})
}

// RecordAdminCommand counts an admin command by command and caller.
func (c *Collector) RecordAdminCommand(command, callerID string, authorized bool, duration time.Duration) {
	c.record("admin", func() {
		c.admin.Total++
		c.admin.ByCommand[command]++
		c.admin.ByCaller[callerID]++

		if !authorized {
			c.admin.Denied++
		}

		c.addTimerLocked(TimerAdmin, duration)

		outcome := "ok"
		if !authorized {
			outcome = "denied"
		}

		c.prom.admin.WithLabelValues(command, outcome).Inc()
	})
}

// RecordError counts an error reported by a component.
func (c *Collector) RecordError(component string) {
	c.record("error", func() {
		c.errors[component]++
		c.prom.errors.WithLabelValues(component).Inc()
	})
}

// RecordTiming records a duration under an arbitrary name.
func (c *Collector) RecordTiming(name string, duration time.Duration) {
	c.record("timing", func() {
		c.addTimerLocked(name, duration)
	})
}

// SampleMemory records the current runtime memory statistics.
func (c *Collector) SampleMemory() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	c.record("memory", func() {
		c.memory = append(c.memory, MemorySample{
			Timestamp:  c.now(),
			HeapAlloc:  stats.HeapAlloc,
			Sys:        stats.Sys,
			Goroutines: runtime.NumGoroutine(),
		})

		if len(c.memory) > maxMemorySamples {
			c.memory = c.memory[len(c.memory)-maxMemorySamples:]
		}

		c.prom.memory.Set(float64(stats.HeapAlloc))
	})
}

// Snapshot returns a copy of every metric.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	return Snapshot{
		Timestamp: now,
		Uptime:    now.Sub(c.startedAt),
		Deletions: DeletionStats{
			Total:    c.deletions.Total,
			ByAction: maps.Clone(c.deletions.ByAction),
			ByReason: maps.Clone(c.deletions.ByReason),
			ByType:   maps.Clone(c.deletions.ByType),
		},
		Extractions: ExtractionStats{
			Total:       c.extractions.Total,
			ByType:      maps.Clone(c.extractions.ByType),
			CacheHits:   c.extractions.CacheHits,
			CacheMisses: c.extractions.CacheMisses,
		},
		Reviews: ReviewStats{
			ByStatus:        maps.Clone(c.reviews.ByStatus),
			Reprocessed:     c.reviews.Reprocessed,
			ReprocessFailed: c.reviews.ReprocessFailed,
			ExecutorSuccess: c.reviews.ExecutorSuccess,
			ExecutorFailure: c.reviews.ExecutorFailure,
		},
		Admin: AdminStats{
			Total:     c.admin.Total,
			Denied:    c.admin.Denied,
			ByCommand: maps.Clone(c.admin.ByCommand),
			ByCaller:  maps.Clone(c.admin.ByCaller),
		},
		Errors: maps.Clone(c.errors),
		Timers: maps.Clone(c.timers),
		Memory: append([]MemorySample(nil), c.memory...),
	}
}

// Reset clears the in-process counters. Prometheus counters are left untouched.
func (c *Collector) Reset() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.startedAt = c.now()
	c.resetLocked()
}

func (c *Collector) resetLocked() {
	c.deletions = DeletionStats{
		ByAction: make(map[string]int64),
		ByReason: make(map[string]int64),
		ByType:   make(map[string]int64),
	}
	c.extractions = ExtractionStats{ByType: make(map[string]int64)}
	c.reviews = ReviewStats{ByStatus: make(map[string]int64)}
	c.admin = AdminStats{ByCommand: make(map[string]int64), ByCaller: make(map[string]int64)}
	c.errors = make(map[string]int64)
	c.timers = make(map[string]TimerStats)
	c.memory = nil
}

func (c *Collector) addTimerLocked(name string, duration time.Duration) {
	stats := c.timers[name]
	if stats.Count == 0 || duration < stats.Min {
		stats.Min = duration
	}

	if duration > stats.Max {
		stats.Max = duration
	}

	stats.Count++
	stats.Total += duration
	c.timers[name] = stats

	c.prom.durations.WithLabelValues(name).Observe(duration.Seconds())
}

// record runs fn under the lock. A panic while recording is logged and swallowed.
func (c *Collector) record(kind string, fn func()) {
	if c == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Failed to record metric", zap.String("kind", kind), zap.Any("panic", r))
		}
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	fn()
}
