package discord_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	retractDiscord "github.com/robalyx/retract/internal/discord"
	"github.com/robalyx/retract/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAPI struct {
	messages map[snowflake.ID]*discord.Message
	nextID   snowflake.ID
	err      error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{messages: make(map[snowflake.ID]*discord.Message), nextID: 500}
}

func notFound() error {
	return &rest.Error{Response: &http.Response{StatusCode: http.StatusNotFound}}
}

func (f *fakeAPI) GetMessage(_ snowflake.ID, messageID snowflake.ID, _ ...rest.RequestOpt) (*discord.Message, error) {
	if f.err != nil {
		return nil, f.err
	}

	msg, ok := f.messages[messageID]
	if !ok {
		return nil, notFound()
	}

	return msg, nil
}

func (f *fakeAPI) CreateMessage(channelID snowflake.ID, create discord.MessageCreate, _ ...rest.RequestOpt) (*discord.Message, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.nextID++
	msg := &discord.Message{ID: f.nextID, ChannelID: channelID, Content: create.Content, Author: discord.User{ID: 1}}
	f.messages[msg.ID] = msg

	return msg, nil
}

func (f *fakeAPI) UpdateMessage(_ snowflake.ID, messageID snowflake.ID, update discord.MessageUpdate, _ ...rest.RequestOpt) (*discord.Message, error) {
	if f.err != nil {
		return nil, f.err
	}

	msg, ok := f.messages[messageID]
	if !ok {
		return nil, notFound()
	}

	msg.Content = *update.Content

	return msg, nil
}

func (f *fakeAPI) DeleteMessage(_ snowflake.ID, messageID snowflake.ID, _ ...rest.RequestOpt) error {
	if f.err != nil {
		return f.err
	}

	if _, ok := f.messages[messageID]; !ok {
		return notFound()
	}

	delete(f.messages, messageID)

	return nil
}

func (f *fakeAPI) GetChannel(_ snowflake.ID, _ ...rest.RequestOpt) (discord.Channel, error) {
	return nil, notFound()
}

func TestTranscriptMessages(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	created := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	api.messages[42] = &discord.Message{ID: 42, ChannelID: 7, Content: "hello", Author: discord.User{ID: 3}, CreatedAt: created}

	transcript := retractDiscord.NewTranscript(api, zap.NewNop())
	ctx := context.Background()

	msg, err := transcript.FetchMessage(ctx, "7", "42")
	require.NoError(t, err)
	assert.Equal(t, platform.Message{ID: "42", ChannelID: "7", AuthorID: "3", Content: "hello", CreatedAt: created}, *msg)

	require.NoError(t, transcript.EditMessage(ctx, "7", "42", "edited"))
	assert.Equal(t, "edited", api.messages[42].Content)

	sent, err := transcript.SendMessage(ctx, "7", "summary")
	require.NoError(t, err)
	assert.Equal(t, "501", sent.ID)
	assert.Equal(t, "summary", sent.Content)

	require.NoError(t, transcript.DeleteMessage(ctx, "7", "42"))
	assert.NotContains(t, api.messages, snowflake.ID(42))
}

func TestTranscriptNotFound(t *testing.T) {
	t.Parallel()

	transcript := retractDiscord.NewTranscript(newFakeAPI(), zap.NewNop())
	ctx := context.Background()

	_, err := transcript.FetchMessage(ctx, "7", "1")
	require.ErrorIs(t, err, platform.ErrNotFound)

	require.ErrorIs(t, transcript.EditMessage(ctx, "7", "1", "x"), platform.ErrNotFound)
	require.ErrorIs(t, transcript.DeleteMessage(ctx, "7", "1"), platform.ErrNotFound)

	_, err = transcript.FetchChannel(ctx, "7")
	require.ErrorIs(t, err, platform.ErrNotFound)
}

func TestTranscriptErrors(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.err = errors.New("missing permissions")
	transcript := retractDiscord.NewTranscript(api, zap.NewNop())

	err := transcript.DeleteMessage(context.Background(), "7", "1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, platform.ErrNotFound)
	assert.Contains(t, err.Error(), "missing permissions")

	_, err = transcript.FetchMessage(context.Background(), "not-a-snowflake", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid channel ID")
}
