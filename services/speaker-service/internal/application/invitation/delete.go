package invitation

import (
	"context"

	"github.com/google/uuid"
)

// DeleteForEvent removes every invitation for the event, any status, any
// session. Called when the owning event or its sessions are deleted upstream;
// the materials join rows cascade with the invitations.
func (s *Service) DeleteForEvent(ctx context.Context, eventID uuid.UUID) (int64, error) {
	var deleted int64
	err := s.repo.WithTx(ctx, func(r TxRepo) error {
		n, err := r.DeleteByEvent(ctx, eventID)
		if err != nil {
			return err
		}
		deleted = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		s.lg.Info().Str("event_id", eventID.String()).Int64("deleted", deleted).Msg("invitations removed with event")
	}
	return deleted, nil
}
