// Package client talks to the event service. The attendance state machine
// only ever needs an event's booking window, so that is all this client
// exposes; the caller treats any failure here as EventUnavailable.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/confera/confera/internal/security"
	"github.com/confera/confera/services/speaker-service/internal/domain"
)

var ErrNoWindow = errors.New("event has no booking window")

type EventsClient struct {
	baseURL string
	tokens  *security.TokenSource
	client  *http.Client
	lg      zerolog.Logger
}

func NewEventsClient(baseURL string, tokens *security.TokenSource, timeout time.Duration, lg zerolog.Logger) *EventsClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &EventsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		client:  &http.Client{Timeout: timeout},
		lg:      lg.With().Str("component", "events_client").Logger(),
	}
}

type eventResponse struct {
	Name             string    `json:"name"`
	BookingStartDate time.Time `json:"bookingStartDate"`
	BookingEndDate   time.Time `json:"bookingEndDate"`
}

// Window fetches the event's booking window.
func (c *EventsClient) Window(ctx context.Context, eventID uuid.UUID) (domain.EventWindow, error) {
	url := fmt.Sprintf("%s/events/%s", c.baseURL, eventID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.EventWindow{}, err
	}
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return domain.EventWindow{}, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.lg.Warn().Err(err).Str("url", url).Dur("duration", time.Since(start)).Msg("event fetch failed")
		return domain.EventWindow{}, fmt.Errorf("fetch event: %w", err)
	}
	defer resp.Body.Close()

	c.lg.Debug().Str("url", url).Int("status", resp.StatusCode).Dur("duration", time.Since(start)).Msg("event fetch completed")

	if resp.StatusCode != http.StatusOK {
		return domain.EventWindow{}, fmt.Errorf("event service returned %d for %s", resp.StatusCode, eventID)
	}

	var ev eventResponse
	if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
		return domain.EventWindow{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.BookingStartDate.IsZero() || ev.BookingEndDate.IsZero() {
		return domain.EventWindow{}, ErrNoWindow
	}

	return domain.EventWindow{Start: ev.BookingStartDate, End: ev.BookingEndDate}, nil
}
