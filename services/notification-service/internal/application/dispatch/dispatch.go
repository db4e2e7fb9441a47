// Package dispatch consumes notification envelopes and turns each one into
// a single outbound email. Decode, render and send all fail closed: any
// error rejects the envelope without requeue, so one attempt is all a
// message gets.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/confera/confera/internal/contracts"
	"github.com/confera/confera/internal/messaging/rabbitmq"
	"github.com/confera/confera/services/notification-service/internal/infrastructure/email"
	"github.com/confera/confera/services/notification-service/internal/infrastructure/idempotency"
	"github.com/confera/confera/services/notification-service/internal/metrics"
)

type Handler struct {
	renderer email.Renderer
	sender   email.Sender
	idem     idempotency.Store
	idemTTL  time.Duration
	lg       zerolog.Logger
}

func NewHandler(renderer email.Renderer, sender email.Sender, idem idempotency.Store, idemTTL time.Duration, lg zerolog.Logger) *Handler {
	if idem == nil {
		idem = idempotency.NewNoopStore()
	}
	return &Handler{
		renderer: renderer,
		sender:   sender,
		idem:     idem,
		idemTTL:  idemTTL,
		lg:       lg.With().Str("component", "dispatch").Logger(),
	}
}

func (h *Handler) Handle(ctx context.Context, body []byte) error {
	defer func(start time.Time) {
		metrics.RecordMessageProcessing(contracts.QueueNotificationEmail, time.Since(start))
	}(time.Now())

	n, err := contracts.DecodeNotification(body)
	if err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	metrics.RecordMessageConsumed(contracts.QueueNotificationEmail, string(n.MessageType()))

	// Deterministic message ids let us drop envelopes that were already
	// sent before a redelivery. Marking happens before the send, so a
	// redelivered envelope whose first attempt failed stays dropped:
	// at-most-once delivery, matching the no-requeue policy.
	if id := rabbitmq.MessageID(ctx); id != "" {
		seen, err := h.idem.SeenOrMark(ctx, id, h.idemTTL)
		if err != nil {
			h.lg.Warn().Err(err).Str("message_id", id).Msg("idempotency check failed, sending anyway")
		} else if seen {
			h.lg.Info().Str("message_id", id).Str("to", n.Recipient()).Msg("duplicate envelope, send skipped")
			metrics.RecordIdempotencyHit()
			return nil
		} else {
			metrics.RecordIdempotencyMiss()
		}
	}

	subject, text, err := h.renderer.Render(n)
	if err != nil {
		return fmt.Errorf("render %s: %w", n.MessageType(), err)
	}

	start := time.Now()
	if err := h.sender.Send(ctx, n.Recipient(), subject, text); err != nil {
		metrics.RecordEmailFailed(string(n.MessageType()), h.sender.Provider(), email.ErrorType(err))
		return fmt.Errorf("send %s to %s: %w", n.MessageType(), n.Recipient(), err)
	}
	metrics.RecordEmailSent(string(n.MessageType()), h.sender.Provider(), time.Since(start))

	h.lg.Info().
		Str("type", string(n.MessageType())).
		Str("to", n.Recipient()).
		Msg("notification delivered")
	return nil
}
