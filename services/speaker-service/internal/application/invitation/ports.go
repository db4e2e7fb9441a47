package invitation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/confera/confera/services/speaker-service/internal/domain"
)

// ErrDuplicateLive is returned by TxRepo.Insert when the partial unique index
// on live invitations rejects the row. Create retries in a fresh transaction
// and refreshes the row that won the race.
var ErrDuplicateLive = errors.New("live invitation already exists for this scope")

type Clock interface {
	Now() time.Time
}

// EventGateway fetches an event's booking window from the owning service.
type EventGateway interface {
	Window(ctx context.Context, eventID uuid.UUID) (domain.EventWindow, error)
}

// OutboxMessage is inserted in the same transaction as the state change it
// announces and drained later by the outbox worker.
type OutboxMessage struct {
	MessageID uuid.UUID
	Queue     string
	Body      []byte
	CreatedAt time.Time
}

// Repo opens transactions. All row access in this package goes through TxRepo
// so read-modify-write sequences hold their row locks until commit.
type Repo interface {
	WithTx(ctx context.Context, fn func(r TxRepo) error) error
}

type TxRepo interface {
	// GetForUpdate locks the invitation row. A miss is domain.CodeNotFound.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.SpeakerInvitation, error)

	// FindAcceptedForUpdate locks the speaker's ACCEPTED invitation for the
	// event, event-level rows first. A miss is domain.CodeNoAcceptedInvitation.
	FindAcceptedForUpdate(ctx context.Context, speakerID, eventID uuid.UUID) (*domain.SpeakerInvitation, error)

	// FindLiveForUpdate locks the PENDING or ACCEPTED invitation in the given
	// scope (sessionID nil selects the event-level row). A miss is
	// domain.CodeNotFound.
	FindLiveForUpdate(ctx context.Context, speakerID, eventID uuid.UUID, sessionID *uuid.UUID) (*domain.SpeakerInvitation, error)

	Insert(ctx context.Context, inv *domain.SpeakerInvitation) error
	Update(ctx context.Context, inv *domain.SpeakerInvitation) error

	// DeleteLive removes the live invitation in the given scope, if any.
	DeleteLive(ctx context.Context, speakerID, eventID uuid.UUID, sessionID *uuid.UUID) error

	// DeleteByEvent removes every invitation for the event and returns how
	// many rows went away.
	DeleteByEvent(ctx context.Context, eventID uuid.UUID) (int64, error)

	// CountOwnedMaterials reports how many of the given ids exist and belong
	// to the speaker.
	CountOwnedMaterials(ctx context.Context, speakerID uuid.UUID, ids []uuid.UUID) (int, error)

	// ReplaceMaterials swaps the invitation's selection for exactly the given
	// set.
	ReplaceMaterials(ctx context.Context, invitationID uuid.UUID, materialIDs []uuid.UUID) error

	InsertOutbox(ctx context.Context, msg OutboxMessage) error
}
