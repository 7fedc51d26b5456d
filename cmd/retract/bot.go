package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/retract/internal/bot"
	"github.com/robalyx/retract/internal/discord"
	"github.com/robalyx/retract/internal/setup"
	"github.com/robalyx/retract/internal/setup/telemetry"
	"github.com/sourcegraph/conc"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func botCommand() *cli.Command {
	return &cli.Command{
		Name:  "bot",
		Usage: "Run the Discord bot with deletion moderation",
		Action: func(ctx context.Context, _ *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := setup.InitializeApp(ctx, telemetry.ServiceBot, BotLogDir)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer app.Cleanup(context.Background())

			return runBot(ctx, app)
		},
	}
}

func runBot(ctx context.Context, app *setup.App) error {
	cfg := app.Config

	ownerID, err := snowflake.Parse(cfg.Bot.OwnerID)
	if err != nil {
		return fmt.Errorf("invalid owner ID: %w", err)
	}

	approvals, err := app.NewApprovalManager()
	if err != nil {
		return err
	}
	defer approvals.Close()

	discordBot, err := bot.New(bot.Options{
		Token:          cfg.Bot.Discord.Token,
		OwnerID:        ownerID,
		CommandPrefix:  cfg.Bot.CommandPrefix,
		RequestTimeout: time.Duration(cfg.Bot.RequestTimeout) * time.Millisecond,
		Resolver:       approvals,
		Metrics:        app.Metrics,
	}, app.Logger)
	if err != nil {
		return err
	}

	approvals.SetNotifier(discordBot.Approvals())

	transcript := discord.NewTranscript(discordBot.Rest(), app.Logger)
	components := app.BuildComponents(ctx, transcript, approvals)
	defer components.Close()

	discordBot.Attach(components.Deletions, components.Admin)

	var wg conc.WaitGroup
	defer wg.Wait()

	wg.Go(func() { components.Maintenance.Start(ctx) })
	wg.Go(func() {
		interval := time.Duration(cfg.Common.Metrics.SampleInterval) * time.Millisecond
		app.Metrics.Run(ctx, interval)
	})

	if err := discordBot.Start(ctx); err != nil {
		return fmt.Errorf("failed to start bot: %w", err)
	}

	log.Println("Bot has been started. Waiting for interrupt signal to gracefully shutdown...")
	app.Logger.Info("Bot started", zap.String("ownerID", ownerID.String()))

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	discordBot.Close(shutdownCtx)

	return nil
}
