package email

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// SentEmail is one delivery recorded by the FakeSender.
type SentEmail struct {
	To      string
	Subject string
	Body    string
}

// FakeSender logs instead of delivering. It records every send so dev
// tooling and tests can inspect what would have gone out, and can be
// told to fail via FailWith.
type FakeSender struct {
	lg zerolog.Logger

	mu       sync.Mutex
	sent     []SentEmail
	FailWith error
}

func NewFakeSender(lg zerolog.Logger) *FakeSender {
	return &FakeSender{
		lg: lg.With().Str("component", "fake_sender").Logger(),
	}
}

func (s *FakeSender) Provider() string { return "fake" }

func (s *FakeSender) Send(ctx context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return s.FailWith
	}

	s.sent = append(s.sent, SentEmail{To: to, Subject: subject, Body: body})
	s.lg.Info().Str("to", to).Str("subject", subject).Msg("FAKE send email")
	return nil
}

// Sent returns a copy of everything recorded so far.
func (s *FakeSender) Sent() []SentEmail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentEmail, len(s.sent))
	copy(out, s.sent)
	return out
}
