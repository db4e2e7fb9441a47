// Package messaging holds the broker-facing handlers of the speaker
// service. The connect/declare/ack lifecycle lives in the shared consumer;
// handlers here only decode one delivery and call into the store.
package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/confera/confera/internal/contracts"
	"github.com/confera/confera/services/speaker-service/internal/domain"
	"github.com/confera/confera/services/speaker-service/internal/metrics"
)

// ProfileStore persists speaker profiles. Satisfied by the postgres repo.
type ProfileStore interface {
	// CreateProfile inserts the profile and reports whether a row was
	// written; false means a profile for the userId already exists.
	CreateProfile(ctx context.Context, p *domain.SpeakerProfile) (bool, error)
}

type Clock interface {
	Now() time.Time
}

// ProfileHandler consumes speaker.profile.create commands published by the
// auth service on signup.
type ProfileHandler struct {
	store ProfileStore
	clock Clock
	lg    zerolog.Logger
}

func NewProfileHandler(store ProfileStore, clock Clock, lg zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		store: store,
		clock: clock,
		lg:    lg.With().Str("component", "profile_consumer").Logger(),
	}
}

// Handle decodes one profile create command and stores the profile. A
// malformed payload is returned as an error so the delivery is rejected; a
// duplicate userId is acked silently because the auth service republishes
// the same command on its own retries.
func (h *ProfileHandler) Handle(ctx context.Context, body []byte) error {
	cmd, err := contracts.DecodeSpeakerProfileCreate(body)
	if err != nil {
		metrics.RecordProfileCreated("rejected")
		return fmt.Errorf("speaker.profile.create: %w", err)
	}

	created, err := h.store.CreateProfile(ctx, &domain.SpeakerProfile{
		ID:        uuid.New(),
		UserID:    cmd.UserID,
		Email:     cmd.Email,
		Name:      cmd.Name,
		Bio:       cmd.Bio,
		CreatedAt: h.clock.Now().UTC(),
	})
	if err != nil {
		metrics.RecordProfileCreated("error")
		return fmt.Errorf("speaker.profile.create: store profile: %w", err)
	}
	if !created {
		h.lg.Debug().Str("user_id", cmd.UserID.String()).Msg("profile already exists, ignoring redelivery")
		metrics.RecordProfileCreated("duplicate")
		return nil
	}

	h.lg.Info().
		Str("user_id", cmd.UserID.String()).
		Str("email", cmd.Email).
		Msg("speaker profile created")
	metrics.RecordProfileCreated("created")
	return nil
}
