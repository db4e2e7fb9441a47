package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/confera/confera/internal/security"
)

func testTokens() *security.TokenSource {
	return security.NewTokenSource("test-secret", "speaker-service", time.Minute)
}

func TestEventsClient_Window(t *testing.T) {
	eventID := uuid.New()

	authHeader := ""
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		if r.URL.Path != "/events/"+eventID.String() {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"name":"GopherCon","bookingStartDate":"2026-09-01T10:00:00Z","bookingEndDate":"2026-09-01T18:00:00Z"}`))
	}))
	defer server.Close()

	c := NewEventsClient(server.URL, testTokens(), time.Second, zerolog.Nop())

	w, err := c.Window(context.Background(), eventID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantStart := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	if !w.Start.Equal(wantStart) || !w.End.Equal(wantStart.Add(8*time.Hour)) {
		t.Errorf("unexpected window: %+v", w)
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		t.Errorf("expected bearer token, got %q", authHeader)
	}
}

func TestEventsClient_Window_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewEventsClient(server.URL, testTokens(), time.Second, zerolog.Nop())

	if _, err := c.Window(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestEventsClient_Window_MissingDates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"name":"No Window"}`))
	}))
	defer server.Close()

	c := NewEventsClient(server.URL, testTokens(), time.Second, zerolog.Nop())

	_, err := c.Window(context.Background(), uuid.New())
	if !errors.Is(err, ErrNoWindow) {
		t.Fatalf("expected ErrNoWindow, got %v", err)
	}
}
