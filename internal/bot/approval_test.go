package bot_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/retract/internal/approval"
	"github.com/robalyx/retract/internal/bot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const ownerID = snowflake.ID(1000)

type fakeSender struct {
	mu   sync.Mutex
	to   []snowflake.ID
	msgs []discord.MessageCreate
	err  error
}

func (f *fakeSender) SendDM(_ context.Context, userID snowflake.ID, msg discord.MessageCreate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.to = append(f.to, userID)
	f.msgs = append(f.msgs, msg)

	return nil
}

func TestApprovalCustomID(t *testing.T) {
	t.Parallel()

	for _, approve := range []bool{true, false} {
		id := bot.ApprovalCustomID("ticket-1", approve)
		assert.True(t, bot.IsApprovalCustomID(id))

		ticketID, got, err := bot.ParseApprovalCustomID(id)
		require.NoError(t, err)
		assert.Equal(t, "ticket-1", ticketID)
		assert.Equal(t, approve, got)
	}

	for _, bad := range []string{"", "approval", "approval:maybe:t1", "approval:approve:", "other:approve:t1"} {
		_, _, err := bot.ParseApprovalCustomID(bad)
		require.ErrorIs(t, err, bot.ErrInvalidCustomID, bad)
	}

	assert.False(t, bot.IsApprovalCustomID("menu:next"))
}

func setupApproval(t *testing.T, sender *fakeSender) (*bot.ApprovalNotifier, *approval.Manager) {
	t.Helper()

	manager := approval.NewManager(approval.NewMemoryStore(), nil, time.Minute, zap.NewNop())
	t.Cleanup(manager.Close)

	notifier := bot.NewApprovalNotifier(sender, manager, ownerID, zap.NewNop())
	manager.SetNotifier(notifier)

	return notifier, manager
}

func TestNotifyApproval(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	_, manager := setupApproval(t, sender)

	ticket, err := manager.RequestApproval(t.Context(), approval.Request{
		Type:     approval.TypeBlockUser,
		UserID:   "42",
		Username: "alice",
		Context:  "4 deletions in the last hour",
	})
	require.NoError(t, err)

	require.Len(t, sender.msgs, 1)
	assert.Equal(t, ownerID, sender.to[0])

	msg := sender.msgs[0]
	assert.Contains(t, msg.Content, "alice (`42`)")
	assert.Contains(t, msg.Content, "4 deletions in the last hour")

	require.Len(t, msg.Components, 1)
	row, ok := msg.Components[0].(discord.ActionRowComponent)
	require.True(t, ok)

	var ids []string
	for _, component := range row.Components() {
		if button, ok := component.(discord.ButtonComponent); ok {
			ids = append(ids, button.CustomID)
		}
	}

	assert.Equal(t, []string{bot.ApprovalCustomID(ticket.ID, true), bot.ApprovalCustomID(ticket.ID, false)}, ids)
}

func TestNotifyApprovalSendFailure(t *testing.T) {
	t.Parallel()

	notifier, _ := setupApproval(t, &fakeSender{err: errors.New("dms closed")})

	ticket := approval.NewTicket("t1", approval.Request{UserID: "42"}, time.Now(), time.Now().Add(time.Minute))
	err := notifier.NotifyApproval(t.Context(), ticket)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dms closed")
}

func TestHandleClick(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		approve  bool
		clicker  snowflake.ID
		want     string
		resolved bool
	}{
		{name: "owner approves", approve: true, clicker: ownerID, want: "approved", resolved: true},
		{name: "owner denies", approve: false, clicker: ownerID, want: "denied", resolved: true},
		{name: "stranger is refused", approve: true, clicker: 7, want: "Only the owner"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			notifier, manager := setupApproval(t, &fakeSender{})

			ticket, err := manager.RequestApproval(t.Context(), approval.Request{Type: approval.TypeBlockUser, UserID: "42"})
			require.NoError(t, err)

			content := notifier.HandleClick(t.Context(), bot.ApprovalCustomID(ticket.ID, tt.approve), tt.clicker)
			assert.Contains(t, content, tt.want)

			if !tt.resolved {
				assert.Equal(t, 1, manager.Pending())
				return
			}

			decision, err := ticket.Wait(t.Context())
			require.NoError(t, err)
			assert.Equal(t, tt.approve, decision.Approved)
			assert.Equal(t, ownerID.String(), decision.ReviewerID)

			again := notifier.HandleClick(t.Context(), bot.ApprovalCustomID(ticket.ID, !tt.approve), ownerID)
			assert.Contains(t, again, "expired or was already answered")
		})
	}
}
