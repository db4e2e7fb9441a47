package client

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/confera/confera/internal/security"
)

// Event is the canonical event entity as served by the event service.
type Event struct {
	Name             string    `json:"name"`
	Venue            string    `json:"venue"`
	BookingStartDate time.Time `json:"bookingStartDate"`
	BookingEndDate   time.Time `json:"bookingEndDate"`
	Status           string    `json:"status"`
}

type EventsClient struct {
	baseClient
}

func NewEventsClient(baseURL string, tokens *security.TokenSource, timeout time.Duration, lg zerolog.Logger) *EventsClient {
	return &EventsClient{baseClient: newBaseClient(baseURL, tokens, timeout, lg, "events_client")}
}

func (c *EventsClient) GetEvent(ctx context.Context, eventID uuid.UUID) (*Event, error) {
	var ev Event
	if err := c.getJSON(ctx, fmt.Sprintf("/events/%s", eventID), &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
