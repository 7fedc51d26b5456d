package metrics

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Health status values.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusCritical = "critical"
)

const (
	degradedSuccessRate = 0.9
	criticalSuccessRate = 0.5
	highErrorRate       = 0.1
	slowDeletion        = 2 * time.Second
	heapWarningBytes    = 512 << 20
)

// Health summarizes the collector state.
type Health struct {
	Status      string   `json:"status"`
	SuccessRate float64  `json:"successRate"`
	ErrorRate   float64  `json:"errorRate"`
	Indicators  []string `json:"indicators"`
}

// Health derives a health summary from the current snapshot.
func (c *Collector) Health() Health {
	return c.Snapshot().Health()
}

// Health derives a health summary from the snapshot.
func (s Snapshot) Health() Health {
	executed := s.Reviews.ExecutorSuccess + s.Reviews.ExecutorFailure

	h := Health{Status: StatusHealthy, SuccessRate: 1}
	if executed > 0 {
		h.SuccessRate = float64(s.Reviews.ExecutorSuccess) / float64(executed)
	}

	var errs int64
	for _, n := range s.Errors {
		errs += n
	}

	if s.Deletions.Total > 0 {
		h.ErrorRate = float64(errs) / float64(s.Deletions.Total)
	} else if errs > 0 {
		h.ErrorRate = 1
	}

	if h.SuccessRate < degradedSuccessRate {
		h.Indicators = append(h.Indicators, "low_success_rate")
	}

	if h.ErrorRate > highErrorRate {
		h.Indicators = append(h.Indicators, "high_error_rate")
	}

	if t, ok := s.Timers[TimerDeletion]; ok && t.Avg() > slowDeletion {
		h.Indicators = append(h.Indicators, "slow_processing")
	}

	if n := len(s.Memory); n > 0 && s.Memory[n-1].HeapAlloc > heapWarningBytes {
		h.Indicators = append(h.Indicators, "high_memory")
	}

	switch {
	case h.SuccessRate < criticalSuccessRate:
		h.Status = StatusCritical
	case len(h.Indicators) > 0:
		h.Status = StatusDegraded
	}

	return h
}

// Report returns a human-readable summary of the current snapshot.
func (c *Collector) Report() string {
	return c.Snapshot().Report()
}

// Report renders the snapshot as text. Map entries are sorted by key.
func (s Snapshot) Report() string {
	var b strings.Builder

	health := s.Health()

	fmt.Fprintf(&b, "Deletion moderation metrics (uptime %s)\n", s.Uptime.Truncate(time.Second))
	fmt.Fprintf(&b, "Health: %s (success %.1f%%, errors %.1f%%)\n",
		health.Status, health.SuccessRate*100, health.ErrorRate*100)

	if len(health.Indicators) > 0 {
		fmt.Fprintf(&b, "Indicators: %s\n", strings.Join(health.Indicators, ", "))
	}

	fmt.Fprintf(&b, "\nDeletions processed: %d\n", s.Deletions.Total)
	writeCounts(&b, "by action", s.Deletions.ByAction)
	writeCounts(&b, "by reason", s.Deletions.ByReason)
	writeCounts(&b, "by type", s.Deletions.ByType)

	fmt.Fprintf(&b, "\nContext extractions: %d (cache hits %d, misses %d)\n",
		s.Extractions.Total, s.Extractions.CacheHits, s.Extractions.CacheMisses)
	writeCounts(&b, "by type", s.Extractions.ByType)

	fmt.Fprintf(&b, "\nReviews: reprocessed %d, reprocess failures %d\n",
		s.Reviews.Reprocessed, s.Reviews.ReprocessFailed)
	fmt.Fprintf(&b, "Executor: %d succeeded, %d failed\n",
		s.Reviews.ExecutorSuccess, s.Reviews.ExecutorFailure)
	writeCounts(&b, "by status", s.Reviews.ByStatus)

	fmt.Fprintf(&b, "\nAdmin commands: %d (denied %d)\n", s.Admin.Total, s.Admin.Denied)
	writeCounts(&b, "by command", s.Admin.ByCommand)
	writeCounts(&b, "by caller", s.Admin.ByCaller)

	if len(s.Errors) > 0 {
		b.WriteString("\nErrors:\n")
		writeCounts(&b, "by component", s.Errors)
	}

	if len(s.Timers) > 0 {
		b.WriteString("\nTimings:\n")

		for _, name := range slices.Sorted(maps.Keys(s.Timers)) {
			t := s.Timers[name]
			fmt.Fprintf(&b, "  %s: n=%d min=%s avg=%s max=%s\n", name, t.Count, t.Min, t.Avg(), t.Max)
		}
	}

	if n := len(s.Memory); n > 0 {
		last := s.Memory[n-1]
		fmt.Fprintf(&b, "\nMemory: heap %.1f MiB, sys %.1f MiB, goroutines %d\n",
			float64(last.HeapAlloc)/(1<<20), float64(last.Sys)/(1<<20), last.Goroutines)
	}

	return b.String()
}

func writeCounts(b *strings.Builder, label string, counts map[string]int64) {
	if len(counts) == 0 {
		return
	}

	fmt.Fprintf(b, "  %s:\n", label)

	for _, key := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintf(b, "    %s: %d\n", key, counts[key])
	}
}
