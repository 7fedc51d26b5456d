package behavior_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/robalyx/retract/internal/behavior"
	"github.com/robalyx/retract/internal/platform/platformtest"
	"github.com/robalyx/retract/internal/setup/config"
	"github.com/robalyx/retract/internal/storage"
	"github.com/robalyx/retract/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

const ownerID = "owner"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTracker(t *testing.T, backend storage.Backend, approver *platformtest.Approver, clk *clock) *behavior.Tracker {
	t.Helper()

	opts := behavior.Options{
		OwnerID:    ownerID,
		Thresholds: config.DefaultThresholds(),
		Backend:    backend,
		Now:        clk.Now,
	}
	if approver != nil {
		opts.Approver = approver
	}

	tracker := behavior.New(t.Context(), opts, zap.NewNop())
	t.Cleanup(tracker.Close)

	return tracker
}

func record(t *testing.T, tracker *behavior.Tracker, userID string, n int, elapsedMs int64) types.SuspicionResult {
	t.Helper()

	var result types.SuspicionResult

	for i := range n {
		var err error
		result, err = tracker.RecordDeletion(t.Context(), userID, fmt.Sprintf("%s-%d-%d", userID, elapsedMs, i), "c1",
			"deleted content", elapsedMs, userID == ownerID)
		require.NoError(t, err)
	}

	return result
}

func TestWindowedCounts(t *testing.T) {
	t.Parallel()

	clk := newClock()
	tracker := newTracker(t, storage.NewMemory(), nil, clk)

	record(t, tracker, "u1", 2, 60_000)
	clk.Advance(2 * time.Hour)
	record(t, tracker, "u1", 1, 60_000)
	clk.Advance(30 * time.Minute)

	stats := tracker.GetStats("u1")
	assert.Equal(t, 3, stats.TotalDeletions)
	assert.Equal(t, 1, stats.DeletionsLastHour)
	assert.Equal(t, 3, stats.DeletionsLastDay)

	clk.Advance(23 * time.Hour)
	stats = tracker.GetStats("u1")
	assert.Equal(t, 0, stats.DeletionsLastHour)
	assert.Equal(t, 1, stats.DeletionsLastDay)

	// Counts always match a recount over the records.
	now := clk.Now()
	hour, day := 0, 0

	for _, r := range tracker.Records("u1") {
		if r.Timestamp.After(now.Add(-time.Hour)) {
			hour++
		}

		if r.Timestamp.After(now.Add(-24 * time.Hour)) {
			day++
		}
	}

	assert.Equal(t, hour, stats.DeletionsLastHour)
	assert.Equal(t, day, stats.DeletionsLastDay)
}

func TestRapidDeletions(t *testing.T) {
	t.Parallel()

	tracker := newTracker(t, storage.NewMemory(), nil, newClock())

	record(t, tracker, "u1", 1, 10_000)
	record(t, tracker, "u1", 1, 29_999)
	record(t, tracker, "u1", 1, 30_000)
	record(t, tracker, "u1", 1, 45_000)

	stats := tracker.GetStats("u1")
	assert.Equal(t, 4, stats.TotalDeletions)
	assert.Equal(t, 2, stats.RapidDeletions)
}

func TestRecentDeletionsLimited(t *testing.T) {
	t.Parallel()

	tracker := newTracker(t, storage.NewMemory(), nil, newClock())
	record(t, tracker, "u1", 8, 60_000)

	stats := tracker.GetStats("u1")
	require.Len(t, stats.RecentDeletions, behavior.RecentDeletionsLimit)
	assert.Equal(t, "u1-60000-7", stats.RecentDeletions[4].MessageID)
}

func TestSuspicionRequestsApprovalAndBlocks(t *testing.T) {
	t.Parallel()

	approver := platformtest.NewApprover()
	tracker := newTracker(t, storage.NewMemory(), approver, newClock())

	result := record(t, tracker, "u1", 3, 60_000)
	assert.False(t, result.Suspicious, "three deletions are within the hourly limit")
	assert.Empty(t, approver.Tickets())

	result = record(t, tracker, "u1", 1, 60_000)
	assert.True(t, result.Suspicious)
	assert.Contains(t, result.Reasons, behavior.ReasonHourlyLimit)
	require.Len(t, approver.Tickets(), 1)
	assert.True(t, tracker.PendingApproval("u1"))

	// A pending request is not duplicated.
	record(t, tracker, "u1", 1, 60_000)
	require.Len(t, approver.Tickets(), 1)

	approver.DecideAll(true)

	require.Eventually(t, func() bool { return tracker.IsBlocked("u1") }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return !tracker.PendingApproval("u1") }, time.Second, time.Millisecond)

	// Blocked users are not asked about again.
	record(t, tracker, "u1", 1, 60_000)
	assert.Len(t, approver.Tickets(), 1)
}

func TestDeniedApprovalDoesNotBlock(t *testing.T) {
	t.Parallel()

	approver := platformtest.NewApprover()
	approver.AutoDecide(false)
	tracker := newTracker(t, storage.NewMemory(), approver, newClock())

	record(t, tracker, "u1", 4, 60_000)
	require.Len(t, approver.Tickets(), 1)

	require.Eventually(t, func() bool { return !tracker.PendingApproval("u1") }, time.Second, time.Millisecond)
	assert.False(t, tracker.IsBlocked("u1"))

	// Once the denied request is settled a new one may be issued.
	record(t, tracker, "u1", 1, 60_000)
	assert.Len(t, approver.Tickets(), 2)
}

func TestRapidLimit(t *testing.T) {
	t.Parallel()

	approver := platformtest.NewApprover()
	tracker := newTracker(t, storage.NewMemory(), approver, newClock())

	result := record(t, tracker, "u1", 4, 5_000)
	assert.True(t, result.Suspicious)
	assert.Contains(t, result.Reasons, behavior.ReasonRapidLimit)
}

func TestOwnerNeverBlocked(t *testing.T) {
	t.Parallel()

	approver := platformtest.NewApprover()
	approver.AutoDecide(true)
	tracker := newTracker(t, storage.NewMemory(), approver, newClock())

	result := record(t, tracker, ownerID, 40, 1_000)
	assert.True(t, result.Suspicious, "owner limits are still evaluated")
	assert.Empty(t, approver.Tickets())

	changed, err := tracker.BlockUser(t.Context(), ownerID, "manual")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, tracker.IsBlocked(ownerID))
}

func TestBlockIdempotent(t *testing.T) {
	t.Parallel()

	backend := storage.NewMemory()
	tracker := newTracker(t, backend, nil, newClock())
	ctx := t.Context()

	changed, err := tracker.BlockUser(ctx, "u1", "manual")
	require.NoError(t, err)
	assert.True(t, changed)

	before := tracker.BlockedUsers()

	changed, err = tracker.BlockUser(ctx, "u1", "manual")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before, tracker.BlockedUsers())

	changed, err = tracker.UnblockUser(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = tracker.UnblockUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, tracker.IsBlocked("u1"))
}

func TestCleanup(t *testing.T) {
	t.Parallel()

	clk := newClock()
	tracker := newTracker(t, storage.NewMemory(), nil, clk)

	record(t, tracker, "old", 2, 1_000)
	clk.Advance(20 * 24 * time.Hour)
	record(t, tracker, "both", 1, 60_000)
	clk.Advance(15 * 24 * time.Hour)

	removed, err := tracker.Cleanup(t.Context(), 30)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"both"}, tracker.Users())
	assert.Zero(t, tracker.GetStats("old").RapidDeletions)

	removed, err = tracker.Cleanup(t.Context(), 30)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestPersistenceRoundTrip(t *testing.T) {
	t.Parallel()

	backend := storage.NewMemory()
	clk := newClock()
	tracker := newTracker(t, backend, nil, clk)

	record(t, tracker, "u1", 3, 60_000)
	record(t, tracker, "u1", 2, 2_000)
	record(t, tracker, "u2", 1, 60_000)

	_, err := tracker.BlockUser(t.Context(), "u2", "manual")
	require.NoError(t, err)

	reloaded := newTracker(t, backend, nil, clk)

	for _, userID := range []string{"u1", "u2"} {
		want := tracker.Records(userID)
		got := reloaded.Records(userID)
		require.Len(t, got, len(want))

		for i := range want {
			assert.Equal(t, want[i].MessageID, got[i].MessageID)
			assert.True(t, want[i].Timestamp.Equal(got[i].Timestamp))
			assert.Equal(t, want[i].TimeSinceCreationMs, got[i].TimeSinceCreationMs)
			assert.Equal(t, want[i].Rapid, got[i].Rapid)
		}
	}

	assert.Equal(t, tracker.GetStats("u1").RapidDeletions, reloaded.GetStats("u1").RapidDeletions)
	assert.True(t, reloaded.IsBlocked("u2"))
}

func TestSaveFailureIsReturned(t *testing.T) {
	t.Parallel()

	backend := storage.NewMemory()
	backend.FailSaves(errors.New("disk full"))
	tracker := newTracker(t, backend, nil, newClock())

	_, err := tracker.RecordDeletion(t.Context(), "u1", "m1", "c1", "x", 60_000, false)
	require.ErrorIs(t, err, storage.ErrPersistence)
	assert.Equal(t, 1, tracker.GetStats("u1").TotalDeletions)
}

func TestLoadFailureStartsEmpty(t *testing.T) {
	t.Parallel()

	backend := storage.NewMemory()
	backend.FailLoads(errors.New("corrupt"))
	tracker := newTracker(t, backend, nil, newClock())

	assert.Empty(t, tracker.Users())
	assert.Empty(t, tracker.BlockedUsers())
}

func TestCloseStopsWaiting(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	approver := platformtest.NewApprover()
	tracker := behavior.New(t.Context(), behavior.Options{
		Thresholds: config.DefaultThresholds(),
		Approver:   approver,
		Now:        newClock().Now,
	}, zap.NewNop())

	for i := range 4 {
		_, err := tracker.RecordDeletion(t.Context(), "u1", fmt.Sprint(i), "c1", "", 60_000, false)
		require.NoError(t, err)
	}

	require.Len(t, approver.Tickets(), 1)
	tracker.Close()
	assert.False(t, tracker.IsBlocked("u1"))
}
