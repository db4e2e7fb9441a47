package contracts

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SpeakerProfileCreate is the command consumed from speaker.profile.create.
// The auth service publishes one per signup; profile creation downstream is
// idempotent per userId.
type SpeakerProfileCreate struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
	Email  string    `json:"email" validate:"required,email"`
	Name   string    `json:"name" validate:"required"`
	Bio    string    `json:"bio,omitempty"`
}

func DecodeSpeakerProfileCreate(body []byte) (*SpeakerProfileCreate, error) {
	var cmd SpeakerProfileCreate
	if err := json.Unmarshal(body, &cmd); err != nil {
		return nil, fmt.Errorf("decode profile create: %w", err)
	}
	if err := validate.Struct(&cmd); err != nil {
		return nil, fmt.Errorf("invalid profile create: %w", err)
	}
	return &cmd, nil
}
