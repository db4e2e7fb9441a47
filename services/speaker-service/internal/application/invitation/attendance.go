package invitation

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/confera/confera/services/speaker-service/internal/domain"
	"github.com/confera/confera/services/speaker-service/internal/metrics"
)

// Join marks the speaker present at the event. The window checks run against
// the owning service's booking window before the invitation is even loaded;
// an unreachable event service is a typed EventUnavailable, not a crash.
// isFirstJoin reports whether this was the speaker's first join ever, for
// caller-side messaging only. Rejoining after a leave is always allowed until
// the event ends.
func (s *Service) Join(ctx context.Context, speakerID, eventID uuid.UUID) (inv *domain.SpeakerInvitation, isFirstJoin bool, err error) {
	defer func() { metrics.RecordAttendance("join", outcomeLabel(err)) }()

	w, werr := s.events.Window(ctx, eventID)
	if werr != nil {
		s.lg.Warn().Err(werr).Str("event_id", eventID.String()).Msg("event window unavailable")
		return nil, false, domain.ErrEventUnavailable("event details are unavailable")
	}

	now := s.clock.Now()
	if err := domain.CheckJoinWindow(w, now); err != nil {
		return nil, false, err
	}

	err = s.repo.WithTx(ctx, func(r TxRepo) error {
		i, err := r.FindAcceptedForUpdate(ctx, speakerID, eventID)
		if err != nil {
			return err
		}
		first, err := i.Join(now)
		if err != nil {
			return err
		}
		if err := r.Update(ctx, i); err != nil {
			return err
		}
		inv, isFirstJoin = i, first
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return inv, isFirstJoin, nil
}

// Leave records the speaker's departure. The booking window is still needed
// here: leaving inside the 30-minute grace window after start forfeits the
// attendance credit. There is no late or early check on leaving itself.
func (s *Service) Leave(ctx context.Context, speakerID, eventID uuid.UUID) (inv *domain.SpeakerInvitation, err error) {
	defer func() { metrics.RecordAttendance("leave", outcomeLabel(err)) }()

	w, werr := s.events.Window(ctx, eventID)
	if werr != nil {
		s.lg.Warn().Err(werr).Str("event_id", eventID.String()).Msg("event window unavailable")
		return nil, domain.ErrEventUnavailable("event details are unavailable")
	}

	now := s.clock.Now()
	err = s.repo.WithTx(ctx, func(r TxRepo) error {
		i, err := r.FindAcceptedForUpdate(ctx, speakerID, eventID)
		if err != nil {
			return err
		}
		if err := i.Leave(w, now); err != nil {
			return err
		}
		if err := r.Update(ctx, i); err != nil {
			return err
		}
		inv = i
		return nil
	})
	if err != nil {
		return nil, err
	}

	return inv, nil
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if c := domain.CodeOf(err); c != "" {
		return strings.ToLower(string(c))
	}
	return "infrastructure_error"
}
