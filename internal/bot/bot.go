// Package bot connects the deletion pipeline and admin commands to Discord.
package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/retract/internal/admin"
	"github.com/robalyx/retract/internal/deletion"
	"github.com/robalyx/retract/internal/metrics"
	"go.uber.org/zap"
)

// ErrNotAttached is returned by Start when Attach was never called.
var ErrNotAttached = errors.New("bot handlers not attached")

const (
	commandTimeout  = 5 * time.Minute
	deletionTimeout = time.Minute
)

// Options configures a Bot.
type Options struct {
	Token          string
	OwnerID        snowflake.ID
	CommandPrefix  string
	RequestTimeout time.Duration
	Resolver       Resolver
	Metrics        *metrics.Collector
}

// Bot receives gateway events and dispatches them.
type Bot struct {
	client    bot.Client
	deletions *deletion.Service
	admin     *admin.Interface
	approvals *ApprovalNotifier
	prefix    string
	timeout   time.Duration
	metrics   *metrics.Collector
	logger    *zap.Logger
}

// New creates the Discord client. The gateway is opened by Start.
// Handlers are attached afterwards since they act through the client.
func New(opts Options, logger *zap.Logger) (*Bot, error) {
	b := &Bot{
		prefix:  opts.CommandPrefix,
		timeout: opts.RequestTimeout,
		metrics: opts.Metrics,
		logger:  logger.Named("bot"),
	}

	client, err := disgo.New(opts.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentDirectMessages,
				gateway.IntentMessageContent,
			),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagMessages, cache.FlagChannels),
		),
		bot.WithEventListeners(&events.ListenerAdapter{
			OnMessageCreate:                 b.handleMessageCreate,
			OnMessageDelete:                 b.handleMessageDelete,
			OnApplicationCommandInteraction: b.handleApplicationCommandInteraction,
			OnComponentInteraction:          b.handleComponentInteraction,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord client: %w", err)
	}

	b.client = client
	b.approvals = NewApprovalNotifier(b, opts.Resolver, opts.OwnerID, logger)

	return b, nil
}

// Attach sets the pipeline and command handlers. It must be called before Start.
func (b *Bot) Attach(deletions *deletion.Service, admin *admin.Interface) {
	b.deletions = deletions
	b.admin = admin
}

// Rest returns the REST client.
func (b *Bot) Rest() rest.Rest {
	return b.client.Rest()
}

// Approvals returns the notifier that delivers approval requests.
func (b *Bot) Approvals() *ApprovalNotifier {
	return b.approvals
}

// Start registers the slash command and opens the gateway connection.
func (b *Bot) Start(ctx context.Context) error {
	if b.deletions == nil || b.admin == nil {
		return ErrNotAttached
	}

	b.logger.Info("Registering commands")

	_, err := b.client.Rest().SetGlobalCommands(b.client.ApplicationID(), []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{
			Name:        SlashCommandName,
			Description: "Deletion moderation commands",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        SlashCommandOption,
					Description: "Command line, for example: list-pending 10",
					Required:    false,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	b.logger.Info("Starting bot")

	return b.client.OpenGateway(ctx)
}

// Close shuts down the gateway connection.
func (b *Bot) Close(ctx context.Context) {
	b.logger.Info("Closing bot")
	b.client.Close(ctx)
}

// SendDM implements DMSender.
func (b *Bot) SendDM(ctx context.Context, userID snowflake.ID, msg discord.MessageCreate) error {
	channel, err := b.client.Rest().CreateDMChannel(userID, rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel: %w", err)
	}

	if _, err := b.client.Rest().CreateMessage(channel.ID(), msg, rest.WithCtx(ctx)); err != nil {
		return fmt.Errorf("failed to send DM: %w", err)
	}

	return nil
}

func (b *Bot) handleMessageCreate(event *events.MessageCreate) {
	msg := event.Message

	if msg.Author.ID == b.client.ID() {
		if ref := msg.ReferencedMessage; ref != nil && !ref.Author.Bot {
			b.deletions.TrackReply(ToUserMessage(ref), ToBotMessage(&msg, ref))
		}

		return
	}

	if msg.Author.Bot {
		return
	}

	line, ok := ParseCommand(b.prefix, msg.Content)
	if !ok {
		return
	}

	go func() {
		defer b.recoverPanic("prefix command")

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		resp := b.admin.Handle(ctx, msg.Author.ID.String(), line)

		builder := discord.NewMessageCreateBuilder().
			SetContent(FitContent(resp.Content)).
			SetMessageReferenceByID(msg.ID)

		for _, file := range resp.Files {
			builder.AddFile(file.Name, "", bytes.NewReader(file.Data))
		}

		if _, err := b.client.Rest().CreateMessage(msg.ChannelID, builder.Build(), rest.WithCtx(ctx)); err != nil {
			b.logger.Error("Failed to send command response", zap.Error(err))
		}
	}()
}

func (b *Bot) handleMessageDelete(event *events.MessageDelete) {
	deleted := ToDeletedMessage(event.MessageID, event.ChannelID, event.GuildID, event.Message, b.client.ID(), time.Now())

	go func() {
		defer b.recoverPanic("message delete")

		ctx, cancel := context.WithTimeout(context.Background(), deletionTimeout)
		defer cancel()

		result := b.deletions.HandleDeletion(ctx, deleted)

		b.logger.Debug("Handled deletion",
			zap.String("messageID", deleted.MessageID),
			zap.String("action", result.Action.String()),
			zap.String("reason", result.Reason))
	}()
}

func (b *Bot) handleApplicationCommandInteraction(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	if data.CommandName() != SlashCommandName {
		return
	}

	go func() {
		defer b.recoverPanic("slash command")

		if err := event.DeferCreateMessage(true); err != nil {
			b.logger.Error("Failed to defer create message", zap.Error(err))
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		resp := b.admin.Handle(ctx, event.User().ID.String(), data.String(SlashCommandOption))

		builder := discord.NewMessageUpdateBuilder().SetContent(FitContent(resp.Content))
		for _, file := range resp.Files {
			builder.AddFile(file.Name, "", bytes.NewReader(file.Data))
		}

		_, err := b.client.Rest().UpdateInteractionResponse(event.ApplicationID(), event.Token(), builder.Build(), rest.WithCtx(ctx))
		if err != nil {
			b.logger.Error("Failed to update interaction response", zap.Error(err))
		}
	}()
}

func (b *Bot) handleComponentInteraction(event *events.ComponentInteractionCreate) {
	customID := event.Data.CustomID()
	if !IsApprovalCustomID(customID) {
		return
	}

	go func() {
		defer b.recoverPanic("approval button")

		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()

		content := b.approvals.HandleClick(ctx, customID, event.User().ID)

		update := discord.NewMessageUpdateBuilder().
			SetContent(content).
			ClearContainerComponents().
			Build()

		if err := event.UpdateMessage(update); err != nil {
			b.logger.Error("Failed to update approval message", zap.Error(err))
		}
	}()
}

func (b *Bot) recoverPanic(handler string) {
	if r := recover(); r != nil {
		b.logger.Error("Recovered from panic in event handler",
			zap.String("handler", handler),
			zap.Any("panic", r),
			zap.Stack("stack"))
		b.metrics.RecordError("bot")
	}
}
