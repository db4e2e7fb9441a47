package domain

import (
	"time"

	"github.com/google/uuid"
)

// SpeakerProfile is created asynchronously when the auth service reports a
// signup. One profile per platform user.
type SpeakerProfile struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Email     string
	Name      string
	Bio       string
	CreatedAt time.Time
}

// Material is a presentation asset owned by a speaker. Upload and storage
// happen elsewhere; this service only checks ownership when a speaker picks
// materials for an invitation.
type Material struct {
	ID        uuid.UUID
	SpeakerID uuid.UUID
	Title     string
}
