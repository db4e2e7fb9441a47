package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type InvitationStatus string

const (
	StatusPending  InvitationStatus = "PENDING"
	StatusAccepted InvitationStatus = "ACCEPTED"
	StatusDeclined InvitationStatus = "DECLINED"
	StatusExpired  InvitationStatus = "EXPIRED"
)

const (
	// JoinLeadTime is how early a speaker may enter before the booking
	// window opens.
	JoinLeadTime = 10 * time.Minute
	// LeaveGrace is the window after start during which leaving forfeits
	// attendance credit.
	LeaveGrace = 30 * time.Minute

	maxMessageLen = 2000
)

// EventWindow is the booking window of an event, fetched from the event
// service.
type EventWindow struct {
	Start time.Time
	End   time.Time
}

// SpeakerInvitation tracks one speaker's invitation to an event or to a
// single session of it (SessionID nil means event-level). Attendance fields
// (JoinedAt, LeftAt, IsAttended) are owned by the Join/Leave transitions,
// never written directly by callers.
type SpeakerInvitation struct {
	ID          uuid.UUID
	SpeakerID   uuid.UUID
	EventID     uuid.UUID
	SessionID   *uuid.UUID
	Message     string
	Status      InvitationStatus
	SentAt      time.Time
	RespondedAt *time.Time
	JoinedAt    *time.Time
	LeftAt      *time.Time
	IsAttended  bool
	Materials   []uuid.UUID
}

func NewInvitation(speakerID, eventID uuid.UUID, sessionID *uuid.UUID, message string, now time.Time) (*SpeakerInvitation, error) {
	message = strings.TrimSpace(message)

	if speakerID == uuid.Nil {
		return nil, ErrValidation("speaker id is required")
	}
	if eventID == uuid.Nil {
		return nil, ErrValidation("event id is required")
	}
	if sessionID != nil && *sessionID == uuid.Nil {
		return nil, ErrValidation("session id must be set or omitted entirely")
	}
	if len(message) > maxMessageLen {
		return nil, ErrValidation("message must be <= 2000 chars")
	}

	return &SpeakerInvitation{
		ID:        uuid.New(),
		SpeakerID: speakerID,
		EventID:   eventID,
		SessionID: sessionID,
		Message:   message,
		Status:    StatusPending,
		SentAt:    now.UTC(),
	}, nil
}

// Reinvite refreshes a live invitation in place: new message, status back to
// PENDING, sentAt bumped, any earlier response cleared. Attendance history
// is kept.
func (i *SpeakerInvitation) Reinvite(message string, now time.Time) {
	i.Message = strings.TrimSpace(message)
	i.Status = StatusPending
	i.SentAt = now.UTC()
	i.RespondedAt = nil
}

// CheckJoinWindow gates joining on the booking window: joining opens
// JoinLeadTime before start and closes at end.
func CheckJoinWindow(w EventWindow, now time.Time) error {
	if now.Before(w.Start.Add(-JoinLeadTime)) {
		return ErrTooEarly("joining opens 10 minutes before the event starts")
	}
	if now.After(w.End) {
		return ErrEnded("the event has ended")
	}
	return nil
}

// Join records presence. The caller checks the booking window first
// (CheckJoinWindow); Join itself only requires an accepted invitation.
// The returned flag reports whether this was the first join ever; rejoining
// after a leave is always permitted and restores attendance.
func (i *SpeakerInvitation) Join(now time.Time) (isFirstJoin bool, err error) {
	if i.Status != StatusAccepted {
		return false, ErrNoAcceptedInvitation("no accepted invitation for this event")
	}
	isFirstJoin = i.JoinedAt == nil
	t := now.UTC()
	i.JoinedAt = &t
	i.IsAttended = true
	i.LeftAt = nil
	return isFirstJoin, nil
}

// Leave records departure. Leaving within LeaveGrace of the event start
// forfeits attendance; staying longer keeps the credit even after leaving.
// JoinedAt is never cleared, it records the most recent join.
func (i *SpeakerInvitation) Leave(w EventWindow, now time.Time) error {
	if i.Status != StatusAccepted {
		return ErrNoAcceptedInvitation("no accepted invitation for this event")
	}
	if i.JoinedAt == nil {
		return ErrNotJoined("speaker has not joined this event")
	}
	t := now.UTC()
	i.LeftAt = &t
	leftWithinGrace := !now.Before(w.Start) && !now.After(w.Start.Add(LeaveGrace))
	if leftWithinGrace {
		i.IsAttended = false
	}
	return nil
}

// SelectMaterials replaces the material selection. The selection locks the
// moment the speaker joins; ownership of the ids is checked by the caller.
func (i *SpeakerInvitation) SelectMaterials(ids []uuid.UUID) error {
	if i.JoinedAt != nil {
		return ErrAlreadyJoined("materials are locked once the speaker has joined")
	}
	i.Materials = ids
	return nil
}

// Respond settles a PENDING invitation. Only ACCEPTED and DECLINED are valid
// responses; EXPIRED is reserved for lifecycle cleanup.
func (i *SpeakerInvitation) Respond(next InvitationStatus, now time.Time) error {
	if next != StatusAccepted && next != StatusDeclined {
		return ErrValidation("response must be ACCEPTED or DECLINED")
	}
	if i.Status != StatusPending {
		return ErrAlreadyResponded("invitation is already " + string(i.Status))
	}
	t := now.UTC()
	i.Status = next
	i.RespondedAt = &t
	return nil
}
