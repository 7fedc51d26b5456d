package metrics_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/robalyx/retract/internal/metrics"
	"github.com/robalyx/retract/internal/types/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestCollectorCounts(t *testing.T) {
	t.Parallel()

	c := metrics.NewCollector(zap.NewNop())

	c.RecordDeletion(enum.ActionDelete, "rapid_deletion", "question", 10*time.Millisecond)
	c.RecordDeletion(enum.ActionDelete, "bulk_deletion", "image_request", 30*time.Millisecond)
	c.RecordDeletion(enum.ActionUpdate, "contextual_single", "question", 20*time.Millisecond)
	c.RecordExtraction(enum.ContextTypeQuestion, false, time.Millisecond)
	c.RecordExtraction(enum.ContextTypeQuestion, true, 0)
	c.RecordExecution(enum.ActionDelete, true, time.Millisecond)
	c.RecordExecution(enum.ActionUpdate, false, time.Millisecond)
	c.RecordReview(enum.ReviewStatusApproved)
	c.RecordReprocess(true, time.Millisecond)
	c.RecordAdminCommand("stats", "1", true, time.Millisecond)
	c.RecordAdminCommand("stats", "2", false, time.Millisecond)
	c.RecordError("executor")

	s := c.Snapshot()

	assert.Equal(t, int64(3), s.Deletions.Total)
	assert.Equal(t, int64(2), s.Deletions.ByAction["DELETE"])
	assert.Equal(t, int64(1), s.Deletions.ByReason["contextual_single"])
	assert.Equal(t, int64(2), s.Deletions.ByType["question"])
	assert.Equal(t, int64(1), s.Deletions.ByType["image_request"])
	assert.Equal(t, int64(2), s.Extractions.Total)
	assert.Equal(t, int64(1), s.Extractions.CacheHits)
	assert.Equal(t, int64(1), s.Extractions.CacheMisses)
	assert.Equal(t, int64(2), s.Extractions.ByType["question"])
	assert.Equal(t, int64(1), s.Reviews.ExecutorSuccess)
	assert.Equal(t, int64(1), s.Reviews.ExecutorFailure)
	assert.Equal(t, int64(1), s.Reviews.ByStatus["approved"])
	assert.Equal(t, int64(1), s.Reviews.Reprocessed)
	assert.Equal(t, int64(2), s.Admin.Total)
	assert.Equal(t, int64(1), s.Admin.Denied)
	assert.Equal(t, int64(2), s.Admin.ByCommand["stats"])
	assert.Equal(t, int64(1), s.Admin.ByCaller["2"])
	assert.Equal(t, int64(1), s.Errors["executor"])

	timer := s.Timers[metrics.TimerDeletion]
	assert.Equal(t, int64(3), timer.Count)
	assert.Equal(t, 10*time.Millisecond, timer.Min)
	assert.Equal(t, 30*time.Millisecond, timer.Max)
	assert.Equal(t, 20*time.Millisecond, timer.Avg())
}

func TestCollectorPrometheusMirror(t *testing.T) {
	t.Parallel()

	c := metrics.NewCollector(zap.NewNop())
	c.RecordAdminCommand("help", "1", true, 0)
	c.RecordAdminCommand("help", "1", true, 0)

	count, err := testutil.GatherAndCount(c.Registry(), "retract_admin_commands_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSnapshotIsCopy(t *testing.T) {
	t.Parallel()

	c := metrics.NewCollector(zap.NewNop())
	c.RecordDeletion(enum.ActionUpdate, "owner_privilege", "question", 0)

	s := c.Snapshot()
	s.Deletions.ByAction["UPDATE"] = 100

	assert.Equal(t, int64(1), c.Snapshot().Deletions.ByAction["UPDATE"])
}

func TestNilCollector(t *testing.T) {
	t.Parallel()

	var c *metrics.Collector

	assert.NotPanics(t, func() {
		c.RecordDeletion(enum.ActionIgnore, "no_relationship", metrics.TypeUntracked, 0)
		c.RecordError("x")
		c.SampleMemory()
		c.Reset()
		c.Run(t.Context(), time.Millisecond)
		_ = c.Snapshot()
		_ = c.Report()
	})
}

func TestCollectorConcurrent(t *testing.T) {
	t.Parallel()

	c := metrics.NewCollector(zap.NewNop())

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 50 {
				c.RecordDeletion(enum.ActionDelete, "rapid_deletion", "question", time.Millisecond)
				_ = c.Snapshot()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int64(1000), c.Snapshot().Deletions.Total)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		success    int
		failure    int
		errors     int
		wantStatus string
		indicator  string
	}{
		{name: "no activity", wantStatus: metrics.StatusHealthy},
		{name: "all succeed", success: 10, wantStatus: metrics.StatusHealthy},
		{name: "some failures", success: 8, failure: 2, wantStatus: metrics.StatusDegraded, indicator: "low_success_rate"},
		{name: "mostly failing", success: 1, failure: 9, wantStatus: metrics.StatusCritical, indicator: "low_success_rate"},
		{name: "errors", success: 10, errors: 5, wantStatus: metrics.StatusDegraded, indicator: "high_error_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := metrics.NewCollector(zap.NewNop())
			for range tt.success {
				c.RecordDeletion(enum.ActionDelete, "rapid_deletion", "question", 0)
				c.RecordExecution(enum.ActionDelete, true, 0)
			}

			for range tt.failure {
				c.RecordDeletion(enum.ActionDelete, "rapid_deletion", "question", 0)
				c.RecordExecution(enum.ActionDelete, false, 0)
			}

			for range tt.errors {
				c.RecordError("storage")
			}

			h := c.Health()
			assert.Equal(t, tt.wantStatus, h.Status)

			if tt.indicator != "" {
				assert.Contains(t, h.Indicators, tt.indicator)
			} else {
				assert.Empty(t, h.Indicators)
			}
		})
	}
}

func TestReportDeterministic(t *testing.T) {
	t.Parallel()

	c := metrics.NewCollector(zap.NewNop())
	c.RecordDeletion(enum.ActionDelete, "rapid_deletion", "question", time.Millisecond)
	c.RecordDeletion(enum.ActionUpdate, "contextual_single", "question", time.Millisecond)
	c.RecordAdminCommand("stats", "1", true, 0)

	s := c.Snapshot()
	report := s.Report()

	assert.Equal(t, report, s.Report())
	assert.Contains(t, report, "Deletions processed: 2")
	assert.Contains(t, report, "DELETE: 1")
	assert.Less(t, strings.Index(report, "DELETE: 1"), strings.Index(report, "UPDATE: 1"))
}

func TestReset(t *testing.T) {
	t.Parallel()

	c := metrics.NewCollector(zap.NewNop())
	c.RecordDeletion(enum.ActionDelete, "rapid_deletion", "question", 0)
	c.Reset()

	assert.Zero(t, c.Snapshot().Deletions.Total)
}

func TestRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := metrics.NewCollector(zap.NewNop())
	ctx, cancel := context.WithCancel(t.Context())

	done := make(chan struct{})
	go func() {
		c.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(c.Snapshot().Memory) >= 2 }, time.Second, time.Millisecond)

	cancel()
	<-done

	assert.LessOrEqual(t, len(c.Snapshot().Memory), 60)
}
