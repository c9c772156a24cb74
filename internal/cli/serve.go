package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/lazyswap/internal/api"
	"github.com/MikeSquared-Agency/lazyswap/internal/config"
	"github.com/MikeSquared-Agency/lazyswap/internal/conversation"
	"github.com/MikeSquared-Agency/lazyswap/internal/hermes"
	"github.com/MikeSquared-Agency/lazyswap/internal/slack"
	"github.com/MikeSquared-Agency/lazyswap/internal/store"
	"github.com/MikeSquared-Agency/lazyswap/internal/telegram"
)

func newServeCommand(cfg config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when configured, the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, slog.Default())
		},
	}
	cmd.Flags().IntVarP(&cfg.Port, "port", "p", cfg.Port, "HTTP listen port")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("lazyswap starting", "port", cfg.Port, "store", cfg.StoreDriver)

	// Conversation store
	backend, err := store.Open(ctx, store.Options{
		Driver:      cfg.StoreDriver,
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
		TTL:         cfg.ConversationTTL,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer backend.Close()

	sweeper, err := store.NewSweeper(backend, cfg.ConversationTTL, cfg.SweepSchedule, logger)
	if err != nil {
		return err
	}
	sweeper.Start()
	defer func() { <-sweeper.Stop().Done() }()

	// NATS is optional; without it lifecycle events are dropped.
	var bus *hermes.Client
	if cfg.NatsURL != "" {
		bus, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			return err
		}
		defer bus.Close()
		logger.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		logger.Warn("NATS not configured, swap events will not be published")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ex := newExchange(cfg)
	deps := engineDeps{
		store:    backend,
		exchange: ex,
		metrics:  conversation.NewMetrics(reg),
	}
	var sinks publishers
	if bus != nil {
		sinks = append(sinks, bus)
	}
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		notifier := slack.NewNotifier(cfg.SlackBotToken, cfg.SlackChannel, logger)
		defer notifier.Wait()
		sinks = append(sinks, notifier)
		logger.Info("slack notifications enabled", "channel", cfg.SlackChannel)
	}
	if len(sinks) > 0 {
		deps.publisher = sinks
	}
	engine := newEngine(cfg, deps, logger)

	if bus != nil {
		if err := bus.Subscribe(hermes.SubjectResetRequested, resetHandler(ctx, engine, logger)); err != nil {
			return err
		}
	}

	srv := api.NewServer(cfg.Port, api.Deps{
		Conversations:  engine,
		Exchange:       ex,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		APIToken:       cfg.APIToken,
		AllowedOrigins: cfg.AllowedOrigins,
		TrustProxy:     cfg.TrustProxy,
		RateLimit: api.RateLimit{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			Burst:             cfg.RateLimitBurst,
		},
		Logger: logger,
	})
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	botDone := make(chan struct{})
	if cfg.TelegramBotToken != "" {
		bot, err := telegram.New(cfg.TelegramBotToken, engine, logger)
		if err != nil {
			return err
		}
		go func() {
			defer close(botDone)
			bot.Run(ctx)
		}()
	} else {
		close(botDone)
		logger.Warn("telegram not configured, serving HTTP only")
	}

	if bus != nil {
		if err := bus.Publish(hermes.SubjectRegistered, map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"port":      cfg.Port,
			"telegram":  cfg.TelegramBotToken != "",
		}); err != nil {
			logger.Warn("failed to publish registration", "error", err)
		}
	}

	logger.Info("lazyswap ready", "port", cfg.Port)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	<-botDone
	logger.Info("lazyswap stopped")
	return nil
}

type resetter interface {
	Reset(ctx context.Context, id string) (conversation.Reply, error)
}

// resetHandler applies reset requests arriving over NATS.
func resetHandler(ctx context.Context, r resetter, logger *slog.Logger) func(subject string, data []byte) {
	return func(subject string, data []byte) {
		var req hermes.ResetRequest
		if err := json.Unmarshal(data, &req); err != nil || req.ConversationID == "" {
			logger.Warn("ignoring malformed reset request", "subject", subject)
			return
		}
		if _, err := r.Reset(ctx, req.ConversationID); err != nil {
			logger.Error("remote reset failed", "conversation_id", req.ConversationID, "error", err)
			return
		}
		logger.Info("conversation reset by request", "conversation_id", req.ConversationID)
	}
}
