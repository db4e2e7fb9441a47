package client

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/confera/confera/internal/security"
)

type Booking struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"userId"`
}

// BookingsPage is one page of the booking list for an event.
type BookingsPage struct {
	Bookings   []Booking `json:"bookings"`
	TotalPages int       `json:"totalPages"`
}

type BookingsClient struct {
	baseClient
}

func NewBookingsClient(baseURL string, tokens *security.TokenSource, timeout time.Duration, lg zerolog.Logger) *BookingsClient {
	return &BookingsClient{baseClient: newBaseClient(baseURL, tokens, timeout, lg, "bookings_client")}
}

// ListByEvent fetches one page of bookings. Pages start at 1; callers walk
// pages until TotalPages is reached.
func (c *BookingsClient) ListByEvent(ctx context.Context, eventID uuid.UUID, page int) (*BookingsPage, error) {
	if page < 1 {
		page = 1
	}
	var out BookingsPage
	if err := c.getJSON(ctx, fmt.Sprintf("/bookings?eventId=%s&page=%d", eventID, page), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
