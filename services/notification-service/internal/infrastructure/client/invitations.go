package client

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/confera/confera/internal/security"
)

const InvitationAccepted = "ACCEPTED"

type Invitation struct {
	ID        uuid.UUID `json:"id"`
	SpeakerID uuid.UUID `json:"speakerId"`
	EventID   uuid.UUID `json:"eventId"`
	Status    string    `json:"status"`
}

type InvitationsClient struct {
	baseClient
}

func NewInvitationsClient(baseURL string, tokens *security.TokenSource, timeout time.Duration, lg zerolog.Logger) *InvitationsClient {
	return &InvitationsClient{baseClient: newBaseClient(baseURL, tokens, timeout, lg, "invitations_client")}
}

// ListByEvent returns every invitation for the event, all statuses included.
// Callers filter for the statuses they care about.
func (c *InvitationsClient) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]Invitation, error) {
	var out []Invitation
	if err := c.getJSON(ctx, fmt.Sprintf("/invitations?eventId=%s", eventID), &out); err != nil {
		return nil, err
	}
	return out, nil
}
