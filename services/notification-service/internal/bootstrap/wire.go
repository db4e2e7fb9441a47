package bootstrap

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/confera/confera/internal/contracts"
	"github.com/confera/confera/internal/messaging/rabbitmq"
	"github.com/confera/confera/internal/ops"
	"github.com/confera/confera/internal/security"
	"github.com/confera/confera/services/notification-service/internal/application/dispatch"
	"github.com/confera/confera/services/notification-service/internal/application/enrich"
	"github.com/confera/confera/services/notification-service/internal/config"
	"github.com/confera/confera/services/notification-service/internal/infrastructure/client"
	infraemail "github.com/confera/confera/services/notification-service/internal/infrastructure/email"
	"github.com/confera/confera/services/notification-service/internal/infrastructure/idempotency"
)

const serviceName = "notification-service"

type App struct {
	consumers []*rabbitmq.Consumer
	publisher *rabbitmq.Publisher
	ops       *ops.Server
	cfg       *config.Config
}

func NewApp() (*App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	// Upstream clients share one token source.
	tokens := security.NewTokenSource(cfg.JWTSecret, serviceName, cfg.JWTTTL)
	events := client.NewEventsClient(cfg.EventServiceURL, tokens, cfg.HTTPTimeout, log.Logger)
	bookings := client.NewBookingsClient(cfg.BookingServiceURL, tokens, cfg.HTTPTimeout, log.Logger)
	users := client.NewUsersClient(cfg.AuthServiceURL, tokens, cfg.HTTPTimeout, log.Logger)
	speakers := client.NewSpeakersClient(cfg.SpeakerServiceURL, tokens, cfg.HTTPTimeout, log.Logger)
	invitations := client.NewInvitationsClient(cfg.SpeakerServiceURL, tokens, cfg.HTTPTimeout, log.Logger)

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL, log.Logger)
	if err != nil {
		return nil, nil, err
	}

	enricher := enrich.New(enrich.Deps{
		Events:      events,
		Bookings:    bookings,
		Users:       users,
		Speakers:    speakers,
		Invitations: invitations,
		Publisher:   publisher,
	}, log.Logger)

	// Sender
	var sender infraemail.Sender
	switch cfg.EmailSender {
	case "smtp":
		sender = infraemail.NewSMTPSender(infraemail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			Timeout:  cfg.SMTPTimeout,
			Insecure: cfg.SMTPInsecure,
		}, log.Logger)
	default:
		sender = infraemail.NewFakeSender(log.Logger)
	}

	// Send idempotency (optional)
	var idem idempotency.Store = idempotency.NewNoopStore()
	var redisCleanup func()
	if cfg.RedisEnabled {
		rdb, rerr := idempotency.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if rerr != nil {
			_ = publisher.Close()
			return nil, nil, rerr
		}
		idem = idempotency.NewRedisStore(rdb, log.Logger)
		redisCleanup = func() { _ = rdb.Close() }
		log.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("redis enabled for send idempotency")
	} else {
		log.Info().Msg("redis disabled, duplicate envelopes will be re-sent")
	}

	dispatcher := dispatch.NewHandler(infraemail.NewTemplateRenderer(), sender, idem, cfg.IdempotencyTTL, log.Logger)

	newConsumer := func(queue string, h rabbitmq.Handler) *rabbitmq.Consumer {
		return rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
			URL:      cfg.RabbitURL,
			Queue:    queue,
			Prefetch: cfg.Prefetch,
			Retry:    cfg.ReconnectDelay,
		}, h, log.Logger)
	}

	consumers := []*rabbitmq.Consumer{
		newConsumer(contracts.QueueBookingCreated, rabbitmq.HandlerFunc(enricher.HandleBookingCreated)),
		newConsumer(contracts.QueueEventCancelled, rabbitmq.HandlerFunc(enricher.HandleEventCancelled)),
		newConsumer(contracts.QueueEventStatusChanged, rabbitmq.HandlerFunc(enricher.HandleEventStatusChanged)),
		newConsumer(contracts.QueueSpeakerInvited, rabbitmq.HandlerFunc(enricher.HandleSpeakerInvited)),
		newConsumer(contracts.QueueMessageReceived, rabbitmq.HandlerFunc(enricher.HandleMessageReceived)),
		newConsumer(contracts.QueueNotificationEmail, dispatcher),
	}

	opsSrv := ops.NewServer(ops.Config{Addr: cfg.OpsAddr, Service: serviceName}, log.Logger)
	opsSrv.RegisterCheck("broker", func(ctx context.Context) error {
		return publisher.Healthy()
	})

	app := &App{
		consumers: consumers,
		publisher: publisher,
		ops:       opsSrv,
		cfg:       cfg,
	}

	cleanup := func() {
		log.Info().Msg("releasing notification-service resources")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWait)
		defer cancel()

		_ = app.Stop(ctx)
		if redisCleanup != nil {
			redisCleanup()
		}
		_ = publisher.Close()
	}

	return app, cleanup, nil
}

// Start launches every consumer and then blocks serving the ops endpoints.
func (a *App) Start(ctx context.Context) error {
	for _, c := range a.consumers {
		if err := c.Start(ctx); err != nil {
			return err
		}
	}
	return a.ops.Start(ctx)
}

func (a *App) Stop(ctx context.Context) error {
	log.Info().Msg("shutting down notification-service")

	if a.ops != nil {
		_ = a.ops.Stop(ctx)
	}
	for _, c := range a.consumers {
		_ = c.Stop(ctx)
	}
	return nil
}
