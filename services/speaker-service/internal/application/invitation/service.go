// Package invitation is the speaker invitation and attendance state machine.
// Every operation runs its read-modify-write inside one transaction with the
// invitation row locked, so concurrent joins and leaves for the same speaker
// serialize instead of racing. Business violations come back as typed
// *domain.Error values for the request layer to map; only infrastructure
// failures surface as plain errors.
package invitation

import (
	"github.com/rs/zerolog"
)

type Service struct {
	repo   Repo
	events EventGateway
	clock  Clock
	lg     zerolog.Logger
}

func New(repo Repo, events EventGateway, clock Clock, lg zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		events: events,
		clock:  clock,
		lg:     lg.With().Str("component", "invitation").Logger(),
	}
}
