// Package enrich turns sparse domain events into fully addressed
// notification envelopes. Handlers fetch the canonical event, resolve the
// affected recipients and publish one envelope per recipient to the
// dispatch queue. A handler error means the payload was malformed; every
// other failure is logged and absorbed so the original message is still
// acknowledged.
package enrich

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/confera/confera/internal/contracts"
	"github.com/confera/confera/services/notification-service/internal/infrastructure/client"
	"github.com/confera/confera/services/notification-service/internal/metrics"
)

// Publisher hands a finished envelope to the dispatch queue.
type Publisher interface {
	Publish(ctx context.Context, queue, messageID string, body []byte) error
}

type EventsAPI interface {
	GetEvent(ctx context.Context, eventID uuid.UUID) (*client.Event, error)
}

type BookingsAPI interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID, page int) (*client.BookingsPage, error)
}

type UsersAPI interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*client.User, error)
}

type SpeakersAPI interface {
	GetSpeaker(ctx context.Context, speakerID uuid.UUID) (*client.Speaker, error)
}

type InvitationsAPI interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]client.Invitation, error)
}

type Deps struct {
	Events      EventsAPI
	Bookings    BookingsAPI
	Users       UsersAPI
	Speakers    SpeakersAPI
	Invitations InvitationsAPI
	Publisher   Publisher
}

type Enricher struct {
	events      EventsAPI
	bookings    BookingsAPI
	users       UsersAPI
	speakers    SpeakersAPI
	invitations InvitationsAPI
	pub         Publisher
	lg          zerolog.Logger
}

func New(d Deps, lg zerolog.Logger) *Enricher {
	return &Enricher{
		events:      d.Events,
		bookings:    d.Bookings,
		users:       d.Users,
		speakers:    d.Speakers,
		invitations: d.Invitations,
		pub:         d.Publisher,
		lg:          lg.With().Str("component", "enricher").Logger(),
	}
}

// Envelope message ids are derived from a stable scope string so a
// redelivered domain event fans out to the same ids and the send-side
// idempotency store can drop the duplicates.
var messageNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("confera/notification"))

func (e *Enricher) publish(ctx context.Context, scope string, n contracts.Notification) {
	body, err := contracts.EncodeNotification(n)
	if err != nil {
		e.lg.Error().Err(err).Str("scope", scope).Msg("envelope encode failed, recipient skipped")
		metrics.RecordRecipientSkipped(string(n.MessageType()), "encode_failed")
		return
	}

	id := uuid.NewSHA1(messageNamespace, []byte(scope)).String()
	if err := e.pub.Publish(ctx, contracts.QueueNotificationEmail, id, body); err != nil {
		e.lg.Error().Err(err).Str("scope", scope).Str("message_id", id).Msg("envelope publish failed, recipient skipped")
		metrics.RecordRecipientSkipped(string(n.MessageType()), "publish_failed")
		return
	}

	metrics.RecordEnvelopePublished(string(n.MessageType()))
}

func (e *Enricher) drop(queue, reason string, eventID uuid.UUID, err error) {
	e.lg.Error().Err(err).
		Str("queue", queue).
		Str("event_id", eventID.String()).
		Str("reason", reason).
		Msg("enrichment dropped, event acknowledged without fan-out")
	metrics.RecordEnrichmentDropped(queue, reason)
}

const (
	kindAttendee = "attendee"
	kindSpeaker  = "speaker"
)

type audienceMember struct {
	Kind  string
	ID    uuid.UUID
	Email string
	Name  string
}

// resolveAudience gathers everyone affected by an event-wide change: all
// booking owners plus all speakers with an ACCEPTED invitation. The two
// sources are resolved independently and never deduplicated, so a user who
// is both attendee and speaker receives one envelope per role. A failing
// source or recipient lookup removes only its own contribution.
func (e *Enricher) resolveAudience(ctx context.Context, queue string, msgType contracts.MessageType, eventID uuid.UUID) []audienceMember {
	var out []audienceMember

	userIDs, err := e.collectAttendeeIDs(ctx, eventID)
	if err != nil {
		e.lg.Error().Err(err).Str("event_id", eventID.String()).Msg("booking source failed, no attendees notified")
		metrics.RecordEnrichmentDropped(queue, "bookings_unavailable")
	}
	for _, uid := range userIDs {
		u, err := e.users.GetUser(ctx, uid)
		if err != nil {
			e.lg.Warn().Err(err).Str("user_id", uid.String()).Msg("attendee lookup failed, skipping recipient")
			metrics.RecordRecipientSkipped(string(msgType), "user_lookup_failed")
			continue
		}
		out = append(out, audienceMember{Kind: kindAttendee, ID: uid, Email: u.Email, Name: u.Name})
	}

	speakerIDs, err := e.collectAcceptedSpeakerIDs(ctx, eventID)
	if err != nil {
		e.lg.Error().Err(err).Str("event_id", eventID.String()).Msg("invitation source failed, no speakers notified")
		metrics.RecordEnrichmentDropped(queue, "invitations_unavailable")
	}
	for _, sid := range speakerIDs {
		sp, err := e.speakers.GetSpeaker(ctx, sid)
		if err != nil {
			e.lg.Warn().Err(err).Str("speaker_id", sid.String()).Msg("speaker lookup failed, skipping recipient")
			metrics.RecordRecipientSkipped(string(msgType), "speaker_lookup_failed")
			continue
		}
		out = append(out, audienceMember{Kind: kindSpeaker, ID: sid, Email: sp.Email, Name: sp.Name})
	}

	return out
}

// collectAttendeeIDs walks the booking list page by page until the upstream
// reports no further pages. Each page is visited exactly once; a failing
// page aborts the whole source rather than fan out to a partial audience.
func (e *Enricher) collectAttendeeIDs(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID

	page := 1
	for {
		p, err := e.bookings.ListByEvent(ctx, eventID, page)
		if err != nil {
			return nil, fmt.Errorf("bookings page %d: %w", page, err)
		}
		for _, b := range p.Bookings {
			ids = append(ids, b.UserID)
		}
		if page >= p.TotalPages {
			break
		}
		page++
	}

	return ids, nil
}

func (e *Enricher) collectAcceptedSpeakerIDs(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error) {
	invs, err := e.invitations.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("invitations: %w", err)
	}

	var ids []uuid.UUID
	for _, inv := range invs {
		if inv.Status == client.InvitationAccepted {
			ids = append(ids, inv.SpeakerID)
		}
	}
	return ids, nil
}
