package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	zlog "github.com/rs/zerolog/log"

	"github.com/confera/confera/internal/contracts"
	"github.com/confera/confera/internal/logger"
	"github.com/confera/confera/internal/messaging/rabbitmq"
	"github.com/confera/confera/internal/ops"
	"github.com/confera/confera/services/speaker-service/internal/config"
	"github.com/confera/confera/services/speaker-service/internal/infrastructure/messaging"
	"github.com/confera/confera/services/speaker-service/internal/infrastructure/postgres"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("config load failed")
	}

	lg := zlog.Logger.With().
		Str("service", "speaker-service").
		Str("env", cfg.Env).
		Logger()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Postgres ----
	pool, err := pgxpool.New(rootCtx, cfg.DBDSN)
	if err != nil {
		lg.Fatal().Err(err).Msg("postgres pool create failed")
	}
	defer pool.Close()

	{
		pingCtx, cancel := context.WithTimeout(rootCtx, 5*time.Second)
		defer cancel()

		if err := pool.Ping(pingCtx); err != nil {
			lg.Fatal().Err(err).Msg("postgres ping failed")
		}
		lg.Info().Msg("postgres connected")
	}

	repo := postgres.New(pool, lg)

	// ---- RabbitMQ publisher (outbox relay target) ----
	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, lg)
	if err != nil {
		lg.Fatal().Err(err).Msg("rabbitmq publisher setup failed")
	}
	defer pub.Close()

	// ---- Profile consumer (speaker.profile.create from auth-service) ----
	profileHandler := messaging.NewProfileHandler(repo, systemClock{}, lg)
	consumer := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:      cfg.RabbitURL,
		Queue:    contracts.QueueSpeakerProfile,
		Prefetch: cfg.Prefetch,
		Retry:    cfg.ReconnectDelay,
	}, profileHandler, lg)
	if err := consumer.Start(rootCtx); err != nil {
		lg.Fatal().Err(err).Msg("profile consumer start failed")
	}

	// ---- Outbox worker (outbound speaker.invited events) ----
	if cfg.OutboxEnabled {
		repo.StartOutboxWorker(rootCtx, pub, cfg.OutboxPollInterval)
		lg.Info().Msg("outbox worker started")
	}

	// ---- Ops server ----
	opsSrv := ops.NewServer(ops.Config{Addr: cfg.OpsAddr, Service: "speaker-service"}, lg)
	opsSrv.RegisterCheck("postgres", func(ctx context.Context) error { return pool.Ping(ctx) })
	opsSrv.RegisterCheck("rabbitmq", func(ctx context.Context) error { return pub.Healthy() })

	errCh := make(chan error, 1)
	go func() {
		if err := opsSrv.Start(rootCtx); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		lg.Info().Msg("shutdown signal received")
	case err := <-errCh:
		lg.Error().Err(err).Msg("ops server crashed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWait)
	defer cancel()

	if err := consumer.Stop(shutdownCtx); err != nil {
		lg.Warn().Err(err).Msg("profile consumer stop failed")
	}
	_ = opsSrv.Stop(shutdownCtx)
	lg.Info().Msg("shutdown complete")
}
