package invitation

import (
	"context"

	"github.com/google/uuid"

	"github.com/confera/confera/services/speaker-service/internal/domain"
	"github.com/confera/confera/services/speaker-service/internal/metrics"
)

// Respond records the speaker's answer to a pending invitation. Only ACCEPTED
// and DECLINED are legal answers, and only a PENDING invitation can take one.
func (s *Service) Respond(ctx context.Context, id uuid.UUID, status domain.InvitationStatus) (*domain.SpeakerInvitation, error) {
	now := s.clock.Now()

	var out *domain.SpeakerInvitation
	err := s.repo.WithTx(ctx, func(r TxRepo) error {
		inv, err := r.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := inv.Respond(status, now); err != nil {
			return err
		}
		if err := r.Update(ctx, inv); err != nil {
			return err
		}
		out = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordResponse(string(out.Status))
	return out, nil
}
