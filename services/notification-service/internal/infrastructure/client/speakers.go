package client

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/confera/confera/internal/security"
)

type Speaker struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
}

type SpeakersClient struct {
	baseClient
}

func NewSpeakersClient(baseURL string, tokens *security.TokenSource, timeout time.Duration, lg zerolog.Logger) *SpeakersClient {
	return &SpeakersClient{baseClient: newBaseClient(baseURL, tokens, timeout, lg, "speakers_client")}
}

func (c *SpeakersClient) GetSpeaker(ctx context.Context, speakerID uuid.UUID) (*Speaker, error) {
	var sp Speaker
	if err := c.getJSON(ctx, fmt.Sprintf("/speakers/%s", speakerID), &sp); err != nil {
		return nil, err
	}
	return &sp, nil
}
