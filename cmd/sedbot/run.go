package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rg/sedbot/internal/bot"
	"github.com/rg/sedbot/internal/commands/help"
	"github.com/rg/sedbot/internal/commands/replace"
	"github.com/rg/sedbot/internal/config"
	"github.com/rg/sedbot/internal/domain"
	"github.com/rg/sedbot/internal/logging"
	"github.com/rg/sedbot/internal/messaging"
	"github.com/rg/sedbot/internal/messaging/telegram"
	"github.com/rg/sedbot/internal/metrics"
	"github.com/rg/sedbot/internal/retention"
	"github.com/rg/sedbot/internal/security"
	"github.com/rg/sedbot/internal/storage"
	"github.com/rg/sedbot/internal/supervisor"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Telegram and answer /help and s/// commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runBot(cmd.Context(), cfg)
		},
	}
}

func runBot(parent context.Context, cfg *config.Config) error {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	slog.Info("Starting sedbot", "version", version)
	slog.Debug(cfg.String())

	sanitizer, err := security.NewSanitizer([]string{cfg.Telegram.Token}, security.DefaultPatterns)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var journal supervisor.Journal
	if cfg.Storage.DBPath != "" {
		store, err := storage.NewStorage(cfg.Storage.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		journal = store
		slog.Info("Run journal initialized", "db_path", cfg.Storage.DBPath)

		stopRetention := startRetention(ctx, store, cfg.Storage)
		defer stopRetention()
	}

	if cfg.Metrics.ListenAddr != "" {
		srv := metrics.NewServer(cfg.Metrics.ListenAddr)
		go func() {
			if err := srv.Start(ctx); err != nil {
				slog.Error("Metrics server stopped with error", "error", err)
			}
		}()
	}

	sup := supervisor.New(supervisor.Config{
		MaxFailuresPerMinute: cfg.Supervisor.MaxFailuresPerMinute,
		RestartDelay:         cfg.Supervisor.RestartDelay,
	}, journal, sanitizer)

	err = sup.Run(ctx, func(ctx context.Context, _ string) error {
		return dispatchTelegram(ctx, cfg.Telegram)
	})
	if err != nil {
		msg := sanitizer.Error(err)
		slog.Error("Exiting", "error", msg)
		return errors.New(msg)
	}

	slog.Info("Sedbot stopped")
	return nil
}

// startRetention runs the retention worker until the returned func is called.
// That func returns only after the worker has exited, so the journal can be
// closed right after it.
func startRetention(ctx context.Context, pruner retention.Pruner, cfg config.StorageConfig) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		retention.NewWorker(pruner, cfg.Retention, cfg.CleanupInterval).Start(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// dispatchTelegram is one supervised run: authorize, dispatch until the
// stream ends, release the connection.
func dispatchTelegram(ctx context.Context, cfg config.TelegramConfig) error {
	client, err := telegram.NewClient(ctx, cfg.Token, telegram.Options{PollTimeout: cfg.PollTimeout})
	if err != nil {
		return err
	}
	defer client.Stop()

	handle := cfg.Handle
	if handle == "" {
		handle = client.Username()
	}
	slog.Info("Telegram bot started, listening for messages", "handle", handle)

	return bot.NewDispatcher[telegram.MessageID, telegram.ChatID](domain.NewBot(handle)).
		Use(newHandlers[telegram.MessageID, telegram.ChatID](client)...).
		Run(ctx, client)
}

// newHandlers lists the handlers in dispatch order.
func newHandlers[M, C domain.ID](sender messaging.Sender[M, C]) []bot.Handler[M, C] {
	return []bot.Handler[M, C]{
		bot.Instrument[M, C](bot.NewHandler[help.Request[M, C], M, C](
			"help", help.Parser[M, C]{}, help.Command[M, C]{}, sender)),
		bot.Instrument[M, C](bot.NewHandler[replace.Request[M, C], M, C](
			"replace", replace.Parser[M, C]{}, replace.Command[M, C]{}, sender)),
	}
}
