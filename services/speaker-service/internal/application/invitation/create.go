package invitation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/confera/confera/internal/contracts"
	"github.com/confera/confera/services/speaker-service/internal/domain"
	"github.com/confera/confera/services/speaker-service/internal/metrics"
)

// Create upserts the live invitation for a (speaker, event, session) scope
// and queues a speaker.invited message in the same transaction. Event-level
// invitations are refreshed in place. Session-scoped ones are deleted and
// recreated; when a concurrent create wins the unique-index race the insert
// fails, the transaction rolls back, and a second transaction refreshes the
// row that survived.
func (s *Service) Create(ctx context.Context, speakerID, eventID uuid.UUID, sessionID *uuid.UUID, message string) (*domain.SpeakerInvitation, error) {
	now := s.clock.Now()

	fresh, err := domain.NewInvitation(speakerID, eventID, sessionID, message, now)
	if err != nil {
		return nil, err
	}

	var out *domain.SpeakerInvitation
	if sessionID == nil {
		err = s.repo.WithTx(ctx, func(r TxRepo) error {
			existing, err := r.FindLiveForUpdate(ctx, speakerID, eventID, nil)
			switch {
			case err == nil:
				existing.Reinvite(fresh.Message, now)
				if err := r.Update(ctx, existing); err != nil {
					return err
				}
				out = existing
			case domain.HasCode(err, domain.CodeNotFound):
				if err := r.Insert(ctx, fresh); err != nil {
					return err
				}
				out = fresh
			default:
				return err
			}
			return s.queueInvited(ctx, r, out, now)
		})
	} else {
		err = s.repo.WithTx(ctx, func(r TxRepo) error {
			if err := r.DeleteLive(ctx, speakerID, eventID, sessionID); err != nil {
				return err
			}
			if err := r.Insert(ctx, fresh); err != nil {
				return err
			}
			out = fresh
			return s.queueInvited(ctx, r, fresh, now)
		})
		if errors.Is(err, ErrDuplicateLive) {
			s.lg.Warn().
				Str("speaker_id", speakerID.String()).
				Str("event_id", eventID.String()).
				Str("session_id", sessionID.String()).
				Msg("lost invitation insert race, refreshing surviving row")
			err = s.repo.WithTx(ctx, func(r TxRepo) error {
				existing, err := r.FindLiveForUpdate(ctx, speakerID, eventID, sessionID)
				if err != nil {
					return err
				}
				existing.Reinvite(fresh.Message, now)
				if err := r.Update(ctx, existing); err != nil {
					return err
				}
				out = existing
				return s.queueInvited(ctx, r, existing, now)
			})
		}
	}
	if err != nil {
		return nil, err
	}

	metrics.RecordInvitationCreated(scopeLabel(sessionID))
	return out, nil
}

func (s *Service) queueInvited(ctx context.Context, r TxRepo, inv *domain.SpeakerInvitation, now time.Time) error {
	body, err := contracts.EncodeDomainEvent(
		contracts.NewSpeakerInvitedEvent(inv.ID, inv.EventID, inv.SpeakerID, inv.Message))
	if err != nil {
		return err
	}
	return r.InsertOutbox(ctx, OutboxMessage{
		MessageID: uuid.New(),
		Queue:     contracts.QueueSpeakerInvited,
		Body:      body,
		CreatedAt: now,
	})
}

func scopeLabel(sessionID *uuid.UUID) string {
	if sessionID == nil {
		return "event"
	}
	return "session"
}
