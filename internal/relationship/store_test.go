package relationship_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/robalyx/retract/internal/executor"
	"github.com/robalyx/retract/internal/extractor"
	"github.com/robalyx/retract/internal/platform"
	"github.com/robalyx/retract/internal/platform/platformtest"
	"github.com/robalyx/retract/internal/relationship"
	"github.com/robalyx/retract/internal/setup/config"
	"github.com/robalyx/retract/internal/strategy"
	"github.com/robalyx/retract/internal/types"
	"github.com/robalyx/retract/internal/types/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStats struct {
	mu    sync.Mutex
	total map[string]int
}

func (f *fakeStats) add(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.total[userID]++
}

func (f *fakeStats) GetStats(userID string) types.UserStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return types.UserStats{UserID: userID, TotalDeletions: f.total[userID]}
}

type fixture struct {
	store      *relationship.Store
	transcript *platformtest.Transcript
	stats      *fakeStats
	now        time.Time
	next       int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		transcript: platformtest.NewTranscript(),
		stats:      &fakeStats{total: make(map[string]int)},
		now:        time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}

	f.store = relationship.NewStore(relationship.Options{
		OwnerID:   "owner",
		Stats:     f.stats,
		Extractor: extractor.New(config.Extractor{CacheSize: 10, CacheTTL: 60}, nil, zap.NewNop()),
		Engine:    strategy.NewEngine(config.DefaultThresholds()),
		Executor:  executor.New(f.transcript, time.Second, nil, zap.NewNop()),
		Now:       func() time.Time { return f.now },
	}, zap.NewNop())

	return f
}

// reply posts a user message with an agent reply and returns the user message ID.
func (f *fixture) reply(userID string) string {
	f.next++
	userMessageID := fmt.Sprintf("user-%d", f.next)
	botMessageID := fmt.Sprintf("bot-%d", f.next)

	f.transcript.AddMessage(platform.Message{ID: botMessageID, ChannelID: "c1", AuthorID: "bot", Content: "reply"})
	f.store.StoreRelationship(userMessageID, "what is a goroutine?",
		types.BotMessage{ID: botMessageID, ChannelID: "c1"},
		types.UserInfo{ID: userID, Username: userID}, nil)

	return userMessageID
}

func (f *fixture) delete(t *testing.T, userID, userMessageID string, elapsed time.Duration) *types.ProcessingResult {
	t.Helper()

	f.stats.add(userID)

	return f.store.ProcessDeletion(t.Context(), &types.DeletedMessage{
		MessageID: userMessageID,
		ChannelID: "c1",
		AuthorID:  userID,
		CreatedAt: f.now.Add(-elapsed),
		DeletedAt: f.now,
	})
}

func TestNoRelationship(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	result := f.store.ProcessDeletion(t.Context(), &types.DeletedMessage{MessageID: "unknown"})

	assert.Equal(t, enum.ActionIgnore, result.Action)
	assert.Equal(t, types.ReasonNoRelationship, result.Reason)
	assert.Empty(t, f.transcript.Calls())
}

func TestContextualSingle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	id := f.reply("u1")

	result := f.delete(t, "u1", id, 40*time.Second)

	assert.Equal(t, enum.ActionUpdate, result.Action)
	assert.Equal(t, types.TemplateContextualSingle, result.Strategy.TemplateKey)
	require.True(t, result.Execution.Success)
	assert.Len(t, f.transcript.CallsOf(platformtest.OpEdit), 1)
	assert.Zero(t, f.store.Len(), "relationship removed once resolved")

	again := f.delete(t, "u1", id, 40*time.Second)
	assert.Equal(t, types.ReasonNoRelationship, again.Reason)
}

func TestRapidDeletion(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	result := f.delete(t, "u1", f.reply("u1"), 10*time.Second)

	assert.Equal(t, enum.ActionDelete, result.Action)
	assert.Equal(t, types.TemplateRapidDeletion, result.Strategy.TemplateKey)
	assert.False(t, result.Strategy.CreateSummary)
	assert.Len(t, f.transcript.CallsOf(platformtest.OpDelete), 1)
	assert.Empty(t, f.transcript.CallsOf(platformtest.OpSend))
}

func TestBulkCleanup(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ids := []string{f.reply("u1"), f.reply("u1"), f.reply("u1")}

	first := f.delete(t, "u1", ids[0], time.Minute)
	assert.Equal(t, enum.ActionUpdate, first.Action)

	f.now = f.now.Add(2 * time.Minute)
	second := f.delete(t, "u1", ids[1], time.Minute)
	assert.Equal(t, enum.ActionUpdate, second.Action)

	f.now = f.now.Add(2 * time.Minute)
	third := f.delete(t, "u1", ids[2], time.Minute)

	assert.Equal(t, enum.ActionDelete, third.Action)
	assert.True(t, third.Strategy.CreateSummary)
	assert.Equal(t, types.TemplateMultipleCleanup, third.Strategy.TemplateKey)
	assert.True(t, third.Context.IsBulkDeletion)
	assert.Equal(t, 3, third.Execution.RemovedMessages)
	assert.Len(t, f.transcript.CallsOf(platformtest.OpSend), 1)
	assert.Len(t, f.transcript.CallsOf(platformtest.OpDelete), 3)
}

func TestBulkWindowSlides(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	f.delete(t, "u1", f.reply("u1"), time.Minute)
	f.now = f.now.Add(11 * time.Minute)
	f.delete(t, "u1", f.reply("u1"), time.Minute)
	f.now = f.now.Add(time.Minute)
	result := f.delete(t, "u1", f.reply("u1"), time.Minute)

	assert.False(t, result.Context.IsBulkDeletion, "first deletion left the window")
	assert.Equal(t, 1, result.Context.RecentDeletions)
}

func TestFrequentDeleterEscalates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	for range 6 {
		f.delete(t, "u1", f.reply("u1"), time.Minute)
		f.now = f.now.Add(15 * time.Minute)
	}

	result := f.delete(t, "u1", f.reply("u1"), time.Minute)

	assert.Equal(t, enum.ActionEscalate, result.Action)
	assert.Equal(t, 7, result.Context.TotalDeletions)
	assert.True(t, result.Execution.Success)
}

func TestOwnerPrivilege(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	for range 3 {
		f.delete(t, "owner", f.reply("owner"), time.Second)
	}

	result := f.delete(t, "owner", f.reply("owner"), time.Second)

	assert.Equal(t, enum.ActionUpdate, result.Action)
	assert.Equal(t, types.TemplateOwnerPrivilege, result.Strategy.TemplateKey)
	assert.Empty(t, f.transcript.CallsOf(platformtest.OpDelete))
}

func TestStoreReplaces(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.StoreRelationship("m1", "a", types.BotMessage{ID: "b1", ChannelID: "c1"}, types.UserInfo{ID: "u1"}, nil)
	f.store.StoreRelationship("m1", "b", types.BotMessage{ID: "b2", ChannelID: "c1"}, types.UserInfo{ID: "u1"}, nil)

	rel, ok := f.store.Get("m1")
	require.True(t, ok)
	assert.Equal(t, "b2", rel.BotMessageID)
	assert.Equal(t, 1, f.store.Len())
}

func TestCleanup(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.reply("u1")
	f.now = f.now.Add(23 * time.Hour)
	f.reply("u1")
	f.now = f.now.Add(2 * time.Hour)

	removed := f.store.Cleanup(24 * time.Hour)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, f.store.Len())
}

func TestSnapshotExtractedOnDeletion(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	id := f.reply("u1")

	resolution, ok := f.store.Resolve(&types.DeletedMessage{MessageID: id, DeletedAt: f.now, CreatedAt: f.now.Add(-time.Minute)})
	require.True(t, ok)
	require.NotNil(t, resolution.Relationship.ContextSnapshot)
	assert.Equal(t, enum.ContextTypeQuestion, resolution.Relationship.ContextSnapshot.Type)
	assert.Len(t, resolution.Relationship.DeletionHistory, 1)
}
