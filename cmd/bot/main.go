package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/manual-tx-bot/internal/api"
	"github.com/dvloznov/manual-tx-bot/internal/api/handlers"
	"github.com/dvloznov/manual-tx-bot/internal/config"
	"github.com/dvloznov/manual-tx-bot/internal/extraction"
	infraBQ "github.com/dvloznov/manual-tx-bot/internal/infra/bigquery"
	"github.com/dvloznov/manual-tx-bot/internal/infra/lunchmoney"
	"github.com/dvloznov/manual-tx-bot/internal/jobs/inmemory"
	"github.com/dvloznov/manual-tx-bot/internal/logger"
	"github.com/dvloznov/manual-tx-bot/internal/notionsync"
	"github.com/dvloznov/manual-tx-bot/internal/pending"
	pendingmem "github.com/dvloznov/manual-tx-bot/internal/pending/inmemory"
	pendingredis "github.com/dvloznov/manual-tx-bot/internal/pending/redis"
	"github.com/dvloznov/manual-tx-bot/internal/pipeline"
	"github.com/dvloznov/manual-tx-bot/internal/telegram"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.Load()

	log := logger.New(logger.Options{Level: cfg.Logger.Level, Format: cfg.Logger.Format})
	for _, w := range cfg.Warnings {
		log.Warn().Msg(w)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Bot stopped with error")
	}
	log.Info().Msg("Bot exited")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	ledger := lunchmoney.NewClient(cfg.LunchMoney.Token,
		lunchmoney.WithBaseURL(cfg.LunchMoney.BaseURL),
		lunchmoney.WithRateLimit(cfg.LunchMoney.RequestsPerSecond),
	)

	extractor, err := extraction.New(ctx, providerFromConfig(cfg))
	if err != nil {
		return err
	}

	store, closeStore, err := openPendingStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var (
		opts    []pipeline.Option
		mirrors []pipeline.ConfirmationMirror
	)
	if cfg.Audit.Enabled() {
		auditor, err := infraBQ.NewAuditor(ctx, cfg.Audit.BigQueryProject, cfg.Audit.BigQueryDataset, cfg.Audit.CredentialsFile)
		if err != nil {
			return err
		}
		defer auditor.Close()
		opts = append(opts, pipeline.WithExtractionRecorder(auditor))
		mirrors = append(mirrors, auditor)
		log.Info().Str("project", cfg.Audit.BigQueryProject).Str("dataset", cfg.Audit.BigQueryDataset).Msg("BigQuery audit enabled")
	}
	if cfg.Notion.Enabled() {
		mirrors = append(mirrors, notionsync.NewMirror(notionsync.NewClient(cfg.Notion.Token), cfg.Notion.DatabaseID))
		log.Info().Msg("Notion mirror enabled")
	}
	opts = append(opts, pipeline.WithMirrors(mirrors...))

	svc := pipeline.NewService(ledger, ledger, extractor, store, pipeline.Settings{
		Timezone:         cfg.Defaults.Timezone,
		DefaultCurrency:  cfg.Defaults.Currency,
		DefaultAccountID: cfg.Defaults.AccountID,
		TokenMap:         cfg.Defaults.TokenMap,
	}, opts...)

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("telegram login: %w", err)
	}
	log.Info().Str("username", bot.Self.UserName).Str("mode", cfg.Telegram.Mode).Msg("Bot starting")

	// Lanes keep draining after a signal until Stop gives up.
	queue := inmemory.NewQueue(cfg.Dispatch.MaxBacklog)
	if err := queue.Start(context.WithoutCancel(ctx), telegram.NewHandler(bot, svc).HandleJob); err != nil {
		return err
	}
	intake := telegram.NewIntake(queue, bot)

	var runErr error
	if cfg.Telegram.Mode == config.ModeWebhook {
		runErr = serveWebhook(ctx, cfg, log, bot, intake)
	} else {
		if err := telegram.DeleteWebhook(bot); err != nil {
			log.Warn().Err(err).Msg("Failed to clear webhook before polling")
		}
		runErr = telegram.Poll(ctx, bot, intake)
	}

	log.Info().Msg("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	return runErr
}

func serveWebhook(ctx context.Context, cfg *config.Config, log zerolog.Logger, bot *tgbotapi.BotAPI, intake *telegram.Intake) error {
	if err := telegram.RegisterWebhook(bot, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
		return fmt.Errorf("register webhook: %w", err)
	}

	router := api.NewRouter(api.Config{
		Logger:         log,
		WebhookPath:    api.WebhookPath(cfg.Telegram.WebhookURL),
		WebhookSecret:  cfg.Telegram.WebhookSecret,
		WebhookHandler: handlers.NewWebhookHandler(intake),
	})
	server := api.NewServer(cfg.Telegram.ListenAddr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Telegram.ListenAddr).Msg("Starting webhook server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("webhook server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("webhook server shutdown: %w", err)
	}
	return nil
}

func providerFromConfig(cfg *config.Config) extraction.Provider {
	return extraction.Provider{
		Name:    cfg.Extraction.Provider,
		APIKey:  cfg.Extraction.APIKey(),
		BaseURL: cfg.Extraction.DeepSeekBaseURL,
		Model:   cfg.Extraction.Model(),
	}
}

func openPendingStore(ctx context.Context, cfg *config.Config) (pending.Store, func(), error) {
	if cfg.Pending.Backend == config.BackendRedis {
		store, err := pendingredis.Open(ctx, cfg.Pending.RedisURL, cfg.Pending.TTL)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	}
	return pendingmem.NewStore(), func() {}, nil
}
