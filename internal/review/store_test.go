package review_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/robalyx/retract/internal/executor"
	"github.com/robalyx/retract/internal/platform"
	"github.com/robalyx/retract/internal/platform/platformtest"
	"github.com/robalyx/retract/internal/review"
	"github.com/robalyx/retract/internal/setup/config"
	"github.com/robalyx/retract/internal/storage"
	"github.com/robalyx/retract/internal/strategy"
	"github.com/robalyx/retract/internal/types"
	"github.com/robalyx/retract/internal/types/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const owner = "owner"

type fakeBlocker struct {
	mu      sync.Mutex
	blocked []string
}

func (f *fakeBlocker) BlockUser(_ context.Context, userID, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocked = append(f.blocked, userID)

	return true, nil
}

type fixture struct {
	store      *review.Store
	backend    *storage.Memory
	transcript *platformtest.Transcript
	blocker    *fakeBlocker
	now        time.Time
}

func newFixture(t *testing.T, cfg config.Review) *fixture {
	t.Helper()

	f := &fixture{
		backend:    storage.NewMemory(),
		transcript: platformtest.NewTranscript(),
		blocker:    &fakeBlocker{},
		now:        time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	f.store = f.open(t, cfg)

	return f
}

func (f *fixture) open(t *testing.T, cfg config.Review) *review.Store {
	t.Helper()

	return review.NewStore(t.Context(), review.Options{
		OwnerID:  owner,
		Backend:  f.backend,
		Engine:   strategy.NewEngine(config.DefaultThresholds()),
		Executor: executor.New(f.transcript, time.Second, nil, zap.NewNop()),
		Blocker:  f.blocker,
		Review:   cfg,
		Now:      func() time.Time { return f.now },
	}, zap.NewNop())
}

// add retains a record whose reply bot-<n> exists in the transcript.
func (f *fixture) add(t *testing.T, n int, userID string, deletedAgo time.Duration) string {
	t.Helper()

	messageID := fmt.Sprintf("msg-%d", n)
	botID := fmt.Sprintf("bot-%d", n)
	f.transcript.AddMessage(platform.Message{ID: botID, ChannelID: "c1", AuthorID: "bot", Content: "original reply"})

	require.NoError(t, f.store.Add(t.Context(), &types.DeletedMessageReviewRecord{
		MessageID:           messageID,
		UserID:              userID,
		Username:            userID,
		ChannelID:           "c1",
		FullContent:         "how do channels work?",
		EnhancedContext:     types.DefaultContext(),
		BotResponseID:       botID,
		TimeSinceCreationMs: 40_000,
		DeletedAt:           f.now.Add(-deletedAgo),
	}))

	return messageID
}

func fastReview() config.Review {
	return config.Review{BulkConcurrency: 2, BulkMaxCount: 50}
}

func TestAuthorization(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fastReview())
	id := f.add(t, 1, "u1", time.Minute)

	_, err := f.store.Get("intruder", id)
	require.ErrorIs(t, err, review.ErrUnauthorized)

	_, err = f.store.ListPending("intruder", types.ReviewFilter{})
	require.ErrorIs(t, err, review.ErrUnauthorized)

	_, _, err = f.store.UpdateStatus(t.Context(), "intruder", id, "approved", "", true)
	require.ErrorIs(t, err, review.ErrUnauthorized)

	_, err = f.store.Reprocess(t.Context(), "intruder", id, types.ReprocessOptions{})
	require.ErrorIs(t, err, review.ErrUnauthorized)

	_, err = f.store.BulkReprocess(t.Context(), "intruder", types.ReviewFilter{}, types.ReprocessOptions{}, 0)
	require.ErrorIs(t, err, review.ErrUnauthorized)

	record, err := f.store.Get(owner, id)
	require.NoError(t, err)
	assert.Equal(t, enum.ReviewStatusPendingReview, record.Status, "denied calls change nothing")
	assert.Empty(t, f.transcript.Calls())
}

func TestEmptyOwnerDeniesEveryone(t *testing.T) {
	t.Parallel()

	store := review.NewStore(t.Context(), review.Options{Engine: strategy.NewEngine(config.DefaultThresholds())}, zap.NewNop())

	_, err := store.List("", types.ReviewFilter{})
	require.ErrorIs(t, err, review.ErrUnauthorized)
}

func TestListPending(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fastReview())
	older := f.add(t, 1, "u1", 2*time.Hour)
	newer := f.add(t, 2, "u2", time.Minute)
	reviewed := f.add(t, 3, "u1", 30*time.Minute)

	_, _, err := f.store.UpdateStatus(t.Context(), owner, reviewed, "ignored", "", true)
	require.NoError(t, err)

	pending, err := f.store.ListPending(owner, types.ReviewFilter{})
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, newer, pending[0].MessageID, "newest first")
	assert.Equal(t, older, pending[1].MessageID)

	limited, err := f.store.ListPending(owner, types.ReviewFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	byUser, err := f.store.ListPending(owner, types.ReviewFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, older, byUser[0].MessageID)

	counts := f.store.Counts()
	assert.Equal(t, 2, counts[enum.ReviewStatusPendingReview])
	assert.Equal(t, 1, counts[enum.ReviewStatusIgnored])
}

func TestUpdateStatusActions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      string
		wantMessage bool
		wantBlocked bool
		check       func(t *testing.T, content string)
	}{
		{
			name:        "approved edits with context",
			status:      "approved",
			wantMessage: true,
			check: func(t *testing.T, content string) {
				t.Helper()
				assert.NotEqual(t, "original reply", content)
			},
		},
		{
			name:        "flagged keeps reply with notice",
			status:      "flagged",
			wantMessage: true,
			check: func(t *testing.T, content string) {
				t.Helper()
				assert.Contains(t, content, "Under review")
				assert.Contains(t, content, "original reply")
			},
		},
		{name: "ignored deletes reply", status: "ignored"},
		{name: "banned blocks and deletes", status: "banned", wantBlocked: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, fastReview())
			id := f.add(t, 1, "u1", time.Minute)

			record, execution, err := f.store.UpdateStatus(t.Context(), owner, id, tt.status, "checked", false)
			require.NoError(t, err)
			require.NotNil(t, execution)
			assert.True(t, execution.Success)

			assert.Equal(t, tt.status, record.Status.String())
			assert.False(t, record.CanReprocess)
			require.Len(t, record.ReviewHistory, 1)
			entry := record.ReviewHistory[0]
			assert.Equal(t, enum.ReviewStatusPendingReview, entry.PreviousStatus)
			assert.Equal(t, owner, entry.ReviewerID)
			assert.Equal(t, "checked", entry.Notes)
			assert.NotEmpty(t, entry.ID)

			msg, ok := f.transcript.Message("bot-1")
			assert.Equal(t, tt.wantMessage, ok)
			if ok && tt.check != nil {
				tt.check(t, msg.Content)
			}

			if tt.wantBlocked {
				assert.Equal(t, []string{"u1"}, f.blocker.blocked)
			} else {
				assert.Empty(t, f.blocker.blocked)
			}
		})
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fastReview())
	id := f.add(t, 1, "u1", time.Minute)

	_, _, err := f.store.UpdateStatus(t.Context(), owner, id, "deleted", "", true)
	require.ErrorIs(t, err, review.ErrInvalidStatus)
	assert.Contains(t, err.Error(), "deleted", "rejected input is echoed")

	_, _, err = f.store.UpdateStatus(t.Context(), owner, "missing", "approved", "", true)
	require.ErrorIs(t, err, review.ErrRecordNotFound)
}

func TestHistoryAccumulates(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fastReview())
	id := f.add(t, 1, "u1", time.Minute)

	_, _, err := f.store.UpdateStatus(t.Context(), owner, id, "flagged", "first look", true)
	require.NoError(t, err)
	record, _, err := f.store.UpdateStatus(t.Context(), owner, id, "approved", "fine", true)
	require.NoError(t, err)

	require.Len(t, record.ReviewHistory, 2)
	assert.Equal(t, enum.ReviewStatusFlagged, record.ReviewHistory[1].PreviousStatus)
	assert.Equal(t, enum.ReviewStatusApproved, record.ReviewHistory[1].Status)
}

func TestReprocess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		opts       types.ReprocessOptions
		wantAction enum.Action
		wantReason string
		wantCalls  bool
	}{
		{name: "plain", wantAction: enum.ActionUpdate, wantReason: types.ReasonContextualSingle, wantCalls: true},
		{name: "force rapid", opts: types.ReprocessOptions{ForceRapid: true}, wantAction: enum.ActionDelete, wantReason: types.ReasonRapidDeletion, wantCalls: true},
		{name: "force bulk", opts: types.ReprocessOptions{ForceBulk: true}, wantAction: enum.ActionDelete, wantReason: types.ReasonBulkDeletion, wantCalls: true},
		{name: "dry run", opts: types.ReprocessOptions{ForceRapid: true, DryRun: true}, wantAction: enum.ActionDelete, wantReason: types.ReasonRapidDeletion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, fastReview())
			id := f.add(t, 1, "u1", time.Minute)

			result, err := f.store.Reprocess(t.Context(), owner, id, tt.opts)
			require.NoError(t, err)
			require.NotNil(t, result.Strategy)
			assert.Equal(t, tt.wantAction, result.Strategy.Action)
			assert.Equal(t, tt.wantReason, result.Strategy.ReasonCode)
			assert.Empty(t, result.Error)

			record, err := f.store.Get(owner, id)
			require.NoError(t, err)

			if tt.wantCalls {
				require.NotNil(t, result.Execution)
				assert.True(t, result.Execution.Success)
				assert.Equal(t, 1, record.ReprocessCount)
				assert.NotNil(t, record.LastReprocessedAt)
				assert.NotEmpty(t, f.transcript.Calls())
			} else {
				assert.Nil(t, result.Execution)
				assert.Zero(t, record.ReprocessCount)
				assert.Empty(t, f.transcript.Calls())
			}
		})
	}
}

func TestReprocessRequiresPermission(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fastReview())
	id := f.add(t, 1, "u1", time.Minute)

	_, _, err := f.store.UpdateStatus(t.Context(), owner, id, "ignored", "", false)
	require.NoError(t, err)

	_, err = f.store.Reprocess(t.Context(), owner, id, types.ReprocessOptions{})
	require.ErrorIs(t, err, review.ErrNotReprocessable)

	_, err = f.store.Reprocess(t.Context(), owner, "missing", types.ReprocessOptions{})
	require.ErrorIs(t, err, review.ErrRecordNotFound)
}

func TestBulkReprocessContinuesPastFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fastReview())
	for i := range 4 {
		f.add(t, i, "u1", time.Duration(i+1)*time.Minute)
	}
	f.transcript.Fail(platformtest.OpEdit, errors.New("missing permissions"))

	results, err := f.store.BulkReprocess(t.Context(), owner, types.ReviewFilter{}, types.ReprocessOptions{}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3, "max count caps the batch")

	for i, result := range results {
		assert.Equal(t, fmt.Sprintf("msg-%d", i), result.MessageID, "results keep record order")
		assert.Contains(t, result.Error, "missing permissions")
	}
}

func TestBulkReprocessDelay(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.Review{BulkDelay: 30, BulkConcurrency: 1, BulkMaxCount: 50})
	for i := range 3 {
		f.add(t, i, "u1", time.Minute)
	}

	start := time.Now()
	results, err := f.store.BulkReprocess(t.Context(), owner, types.ReviewFilter{}, types.ReprocessOptions{DryRun: true}, 0)
	require.NoError(t, err)

	assert.Len(t, results, 3)
	assert.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond)
}

func TestBulkReprocessCanceled(t *testing.T) {
	t.Parallel()

	f := newFixture(t, config.Review{BulkDelay: 10_000, BulkConcurrency: 1, BulkMaxCount: 50})
	for i := range 3 {
		f.add(t, i, "u1", time.Minute)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	results, err := f.store.BulkReprocess(ctx, owner, types.ReviewFilter{}, types.ReprocessOptions{DryRun: true}, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Empty(t, results[0].Error, "first operation needs no wait")
	assert.NotEmpty(t, results[1].Error)
	assert.NotEmpty(t, results[2].Error)
}

func TestBulkReview(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fastReview())
	f.add(t, 1, "u1", time.Minute)
	f.add(t, 2, "u1", 2*time.Minute)
	f.add(t, 3, "u2", 3*time.Minute)

	results, err := f.store.BulkReview(t.Context(), owner, types.ReviewFilter{UserID: "u1"}, "ignored", "spam", 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, result := range results {
		assert.Empty(t, result.Error)
	}

	counts := f.store.Counts()
	assert.Equal(t, 2, counts[enum.ReviewStatusIgnored])
	assert.Equal(t, 1, counts[enum.ReviewStatusPendingReview])
	assert.Len(t, f.transcript.CallsOf(platformtest.OpDelete), 2)
}

func TestCleanupAndPersistence(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fastReview())
	f.add(t, 1, "u1", 100*24*time.Hour)
	kept := f.add(t, 2, "u1", 24*time.Hour)

	removed, err := f.store.Cleanup(t.Context(), 90)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	reopened := f.open(t, fastReview())
	records, err := reopened.List(owner, types.ReviewFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, kept, records[0].MessageID)
	assert.Equal(t, "how do channels work?", records[0].FullContent)
}

func TestSaveFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fastReview())
	f.backend.FailSaves(errors.New("disk full"))

	err := f.store.Add(t.Context(), &types.DeletedMessageReviewRecord{MessageID: "m", UserID: "u1", DeletedAt: f.now})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
