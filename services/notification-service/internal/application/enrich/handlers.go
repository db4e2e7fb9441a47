package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/confera/confera/internal/contracts"
	"github.com/confera/confera/services/notification-service/internal/metrics"
)

// HandleBookingCreated notifies the single booking owner that their
// booking is confirmed.
func (e *Enricher) HandleBookingCreated(ctx context.Context, body []byte) error {
	defer e.observe(contracts.QueueBookingCreated)()

	ev, err := contracts.DecodeDomainEvent(body)
	if err != nil {
		return fmt.Errorf("booking.created: %w", err)
	}
	bc, ok := ev.(*contracts.BookingConfirmedEvent)
	if !ok {
		return fmt.Errorf("booking.created: unexpected event type %s", ev.EventType())
	}
	metrics.RecordMessageConsumed(contracts.QueueBookingCreated, string(bc.EventType()))

	details, err := e.events.GetEvent(ctx, bc.EventID)
	if err != nil {
		e.drop(contracts.QueueBookingCreated, "event_unavailable", bc.EventID, err)
		return nil
	}

	u, err := e.users.GetUser(ctx, bc.UserID)
	if err != nil {
		e.lg.Warn().Err(err).Str("user_id", bc.UserID.String()).Msg("booking owner lookup failed, skipping recipient")
		metrics.RecordRecipientSkipped(string(contracts.MsgBookingConfirmed), "user_lookup_failed")
		return nil
	}

	e.publish(ctx, fmt.Sprintf("booking:%s:user:%s", bc.BookingID, bc.UserID), &contracts.BookingConfirmedMessage{
		To:        u.Email,
		Name:      u.Name,
		EventName: details.Name,
		Venue:     details.Venue,
		StartDate: details.BookingStartDate,
		EndDate:   details.BookingEndDate,
	})
	return nil
}

// HandleEventCancelled fans a cancellation out to every booking owner and
// every speaker with an accepted invitation.
func (e *Enricher) HandleEventCancelled(ctx context.Context, body []byte) error {
	defer e.observe(contracts.QueueEventCancelled)()

	ev, err := contracts.DecodeDomainEvent(body)
	if err != nil {
		return fmt.Errorf("event.cancelled: %w", err)
	}
	ec, ok := ev.(*contracts.EventCancelledEvent)
	if !ok {
		return fmt.Errorf("event.cancelled: unexpected event type %s", ev.EventType())
	}
	metrics.RecordMessageConsumed(contracts.QueueEventCancelled, string(ec.EventType()))

	details, err := e.events.GetEvent(ctx, ec.EventID)
	if err != nil {
		e.drop(contracts.QueueEventCancelled, "event_unavailable", ec.EventID, err)
		return nil
	}

	audience := e.resolveAudience(ctx, contracts.QueueEventCancelled, contracts.MsgEventCancelled, ec.EventID)
	for _, r := range audience {
		e.publish(ctx, fmt.Sprintf("cancel:%s:%s:%s", ec.EventID, r.Kind, r.ID), &contracts.EventCancelledMessage{
			To:        r.Email,
			Name:      r.Name,
			EventName: details.Name,
			Reason:    ec.Reason,
		})
	}
	return nil
}

// HandleEventStatusChanged fans a status transition out to the same
// audience as a cancellation.
func (e *Enricher) HandleEventStatusChanged(ctx context.Context, body []byte) error {
	defer e.observe(contracts.QueueEventStatusChanged)()

	ev, err := contracts.DecodeDomainEvent(body)
	if err != nil {
		return fmt.Errorf("event.status.changed: %w", err)
	}
	sc, ok := ev.(*contracts.EventStatusChangedEvent)
	if !ok {
		return fmt.Errorf("event.status.changed: unexpected event type %s", ev.EventType())
	}
	metrics.RecordMessageConsumed(contracts.QueueEventStatusChanged, string(sc.EventType()))

	details, err := e.events.GetEvent(ctx, sc.EventID)
	if err != nil {
		e.drop(contracts.QueueEventStatusChanged, "event_unavailable", sc.EventID, err)
		return nil
	}

	audience := e.resolveAudience(ctx, contracts.QueueEventStatusChanged, contracts.MsgEventStatusChanged, sc.EventID)
	for _, r := range audience {
		e.publish(ctx, fmt.Sprintf("status:%s:%s:%s:%s", sc.EventID, sc.NewStatus, r.Kind, r.ID), &contracts.EventStatusChangedMessage{
			To:             r.Email,
			Name:           r.Name,
			EventName:      details.Name,
			PreviousStatus: sc.PreviousStatus,
			NewStatus:      sc.NewStatus,
		})
	}
	return nil
}

// HandleSpeakerInvited notifies the invited speaker.
func (e *Enricher) HandleSpeakerInvited(ctx context.Context, body []byte) error {
	defer e.observe(contracts.QueueSpeakerInvited)()

	ev, err := contracts.DecodeDomainEvent(body)
	if err != nil {
		return fmt.Errorf("speaker.invited: %w", err)
	}
	si, ok := ev.(*contracts.SpeakerInvitedEvent)
	if !ok {
		return fmt.Errorf("speaker.invited: unexpected event type %s", ev.EventType())
	}
	metrics.RecordMessageConsumed(contracts.QueueSpeakerInvited, string(si.EventType()))

	details, err := e.events.GetEvent(ctx, si.EventID)
	if err != nil {
		e.drop(contracts.QueueSpeakerInvited, "event_unavailable", si.EventID, err)
		return nil
	}

	sp, err := e.speakers.GetSpeaker(ctx, si.SpeakerID)
	if err != nil {
		e.lg.Warn().Err(err).Str("speaker_id", si.SpeakerID.String()).Msg("invited speaker lookup failed, skipping recipient")
		metrics.RecordRecipientSkipped(string(contracts.MsgSpeakerInvitation), "speaker_lookup_failed")
		return nil
	}

	e.publish(ctx, fmt.Sprintf("invite:%s", si.InvitationID), &contracts.SpeakerInvitationMessage{
		To:        sp.Email,
		Name:      sp.Name,
		EventName: details.Name,
		Message:   si.Message,
	})
	return nil
}

// HandleMessageReceived forwards a pre-addressed legacy message. The
// producer already resolved the recipient, so no enrichment fetch happens;
// the payload is rewrapped as an envelope as-is.
func (e *Enricher) HandleMessageReceived(ctx context.Context, body []byte) error {
	defer e.observe(contracts.QueueMessageReceived)()

	ev, err := contracts.DecodeDomainEvent(body)
	if err != nil {
		return fmt.Errorf("message.received: %w", err)
	}
	mr, ok := ev.(*contracts.MessageReceivedEvent)
	if !ok {
		return fmt.Errorf("message.received: unexpected event type %s", ev.EventType())
	}
	metrics.RecordMessageConsumed(contracts.QueueMessageReceived, string(mr.EventType()))

	// No natural dedup key exists for direct messages, so each delivery
	// gets a fresh id.
	e.publish(ctx, fmt.Sprintf("message:%s", uuid.NewString()), &contracts.MessageReceivedMessage{
		To:       mr.To,
		Name:     mr.ToName,
		FromName: mr.FromName,
		Subject:  mr.Subject,
		Content:  mr.Content,
	})
	return nil
}

func (e *Enricher) observe(queue string) func() {
	start := time.Now()
	return func() {
		metrics.RecordMessageProcessing(queue, time.Since(start))
	}
}
