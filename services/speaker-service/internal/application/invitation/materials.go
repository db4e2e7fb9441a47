package invitation

import (
	"context"

	"github.com/google/uuid"

	"github.com/confera/confera/services/speaker-service/internal/domain"
)

// UpdateMaterials replaces the invitation's material selection atomically.
// The selection locks at join time (AlreadyJoined) and every id must belong
// to the invitation's speaker (ForeignMaterial). Duplicate ids collapse to
// one.
func (s *Service) UpdateMaterials(ctx context.Context, invitationID uuid.UUID, materialIDs []uuid.UUID) (*domain.SpeakerInvitation, error) {
	ids := dedupe(materialIDs)

	var out *domain.SpeakerInvitation
	err := s.repo.WithTx(ctx, func(r TxRepo) error {
		inv, err := r.GetForUpdate(ctx, invitationID)
		if err != nil {
			return err
		}

		// Lock check first: a joined speaker gets AlreadyJoined even when the
		// selection is also foreign. The entity mutation is tx-local, so a
		// later ownership failure discards it with the rollback.
		if err := inv.SelectMaterials(ids); err != nil {
			return err
		}

		if len(ids) > 0 {
			owned, err := r.CountOwnedMaterials(ctx, inv.SpeakerID, ids)
			if err != nil {
				return err
			}
			if owned != len(ids) {
				return domain.ErrForeignMaterial("selection includes materials owned by another speaker")
			}
		}

		if err := r.ReplaceMaterials(ctx, inv.ID, ids); err != nil {
			return err
		}
		out = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
