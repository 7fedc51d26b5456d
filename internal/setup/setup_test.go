package setup_test

import (
	"testing"
	"time"

	"github.com/robalyx/retract/internal/deletion"
	"github.com/robalyx/retract/internal/platform"
	"github.com/robalyx/retract/internal/platform/platformtest"
	"github.com/robalyx/retract/internal/setup"
	"github.com/robalyx/retract/internal/setup/config"
	"github.com/robalyx/retract/internal/setup/telemetry"
	"github.com/robalyx/retract/internal/types"
	"github.com/robalyx/retract/internal/types/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Common.Version = config.CurrentCommonVersion
	cfg.Common.Storage.DataDir = t.TempDir()
	cfg.Bot.Version = config.CurrentBotVersion
	cfg.Bot.OwnerID = "1000"
	cfg.Moderation.Version = config.CurrentModerationVersion

	return cfg
}

func TestPipelineEndToEnd(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)

	app, err := setup.InitializeWithConfig(t.Context(), cfg, telemetry.ServiceBot, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { app.Cleanup(t.Context()) })

	approvals, err := app.NewApprovalManager()
	require.NoError(t, err)
	t.Cleanup(approvals.Close)

	transcript := platformtest.NewTranscript()
	components := app.BuildComponents(t.Context(), transcript, approvals)
	t.Cleanup(components.Close)

	transcript.AddMessage(platform.Message{ID: "bot-1", ChannelID: "c1", AuthorID: "agent", Content: "Use a mutex."})
	components.Deletions.TrackReply(deletion.UserMessage{
		ID:        "user-1",
		ChannelID: "c1",
		Content:   "How do I protect a map?",
		Author:    types.UserInfo{ID: "42", Username: "alice"},
	}, types.BotMessage{ID: "bot-1", ChannelID: "c1"})

	now := time.Now()
	result := components.Deletions.HandleDeletion(t.Context(), &types.DeletedMessage{
		MessageID: "user-1",
		ChannelID: "c1",
		CreatedAt: now.Add(-5 * time.Second),
		DeletedAt: now,
	})

	assert.Equal(t, enum.ActionDelete, result.Action)
	assert.Equal(t, types.ReasonRapidDeletion, result.Reason)

	_, ok := transcript.Message("bot-1")
	assert.False(t, ok)

	resp := components.Admin.Handle(t.Context(), "1000", "list-pending")
	assert.Contains(t, resp.Content, "`user-1`")

	resp = components.Admin.Handle(t.Context(), "1000", "stats")
	assert.Contains(t, resp.Content, "Worker maintenance")

	assert.Equal(t, 1, components.Tracker.GetStats("42").TotalDeletions)
}

func TestOpenStorageFile(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)

	backend, err := setup.OpenStorage(t.Context(), &cfg.Common, zapNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	doc, err := backend.LoadReviews(t.Context())
	require.NoError(t, err)
	assert.NotNil(t, doc)
}

func TestOpenStorageSQLiteNeedsMigration(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Common.Storage.Backend = "sqlite"
	cfg.Common.SQLite.Path = t.TempDir() + "/retract.db"

	_, err := setup.OpenStorage(t.Context(), &cfg.Common, zapNop())
	require.ErrorIs(t, err, setup.ErrPendingMigrations)
}

func zapNop() *zap.Logger { return zap.NewNop() }
