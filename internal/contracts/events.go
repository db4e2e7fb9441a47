package contracts

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Queue names shared by producers and consumers. Every queue is declared
// durable and addressed through the default exchange, so the routing key is
// the queue name itself.
const (
	QueueBookingCreated     = "booking.created"
	QueueEventCancelled     = "event.cancelled"
	QueueEventStatusChanged = "event.status.changed"
	QueueSpeakerInvited     = "speaker.invited"
	QueueMessageReceived    = "message.received"
	QueueNotificationEmail  = "notification.email"
	QueueSpeakerProfile     = "speaker.profile.create"
)

// EventType tags a domain event body.
type EventType string

const (
	EventBookingConfirmed EventType = "BOOKING_CONFIRMED"
	EventCancelled        EventType = "EVENT_CANCELLED"
	EventStatusChanged    EventType = "EVENT_STATUS_CHANGED"
	EventSpeakerInvited   EventType = "SPEAKER_INVITED"
	EventMessageReceived  EventType = "MESSAGE_RECEIVED"
)

var (
	ErrMissingEventType = errors.New("event has no type tag")
	ErrUnknownEventType = errors.New("unknown event type")
)

// DomainEvent is a message consumed from one of the domain queues. Most
// events are pointers: they carry ids and the consumer re-fetches entity
// state from the owning service. MESSAGE_RECEIVED is a legacy shape that
// embeds the full payload instead.
type DomainEvent interface {
	EventType() EventType
	validate() error
}

// BookingConfirmedEvent is published when a booking is confirmed.
type BookingConfirmedEvent struct {
	Type      EventType `json:"type"`
	BookingID uuid.UUID `json:"bookingId"`
	EventID   uuid.UUID `json:"eventId"`
	UserID    uuid.UUID `json:"userId"`
}

func NewBookingConfirmedEvent(bookingID, eventID, userID uuid.UUID) *BookingConfirmedEvent {
	return &BookingConfirmedEvent{
		Type:      EventBookingConfirmed,
		BookingID: bookingID,
		EventID:   eventID,
		UserID:    userID,
	}
}

func (e *BookingConfirmedEvent) EventType() EventType { return EventBookingConfirmed }

func (e *BookingConfirmedEvent) validate() error {
	if e.BookingID == uuid.Nil {
		return errors.New("missing bookingId")
	}
	if e.EventID == uuid.Nil {
		return errors.New("missing eventId")
	}
	if e.UserID == uuid.Nil {
		return errors.New("missing userId")
	}
	return nil
}

// EventCancelledEvent is published when an event is cancelled outright.
type EventCancelledEvent struct {
	Type    EventType `json:"type"`
	EventID uuid.UUID `json:"eventId"`
	Reason  string    `json:"reason,omitempty"`
}

func NewEventCancelledEvent(eventID uuid.UUID, reason string) *EventCancelledEvent {
	return &EventCancelledEvent{Type: EventCancelled, EventID: eventID, Reason: reason}
}

func (e *EventCancelledEvent) EventType() EventType { return EventCancelled }

func (e *EventCancelledEvent) validate() error {
	if e.EventID == uuid.Nil {
		return errors.New("missing eventId")
	}
	return nil
}

// EventStatusChangedEvent is published on any other lifecycle transition
// (e.g. PUBLISHED -> POSTPONED).
type EventStatusChangedEvent struct {
	Type           EventType `json:"type"`
	EventID        uuid.UUID `json:"eventId"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
}

func NewEventStatusChangedEvent(eventID uuid.UUID, previous, next string) *EventStatusChangedEvent {
	return &EventStatusChangedEvent{
		Type:           EventStatusChanged,
		EventID:        eventID,
		PreviousStatus: previous,
		NewStatus:      next,
	}
}

func (e *EventStatusChangedEvent) EventType() EventType { return EventStatusChanged }

func (e *EventStatusChangedEvent) validate() error {
	if e.EventID == uuid.Nil {
		return errors.New("missing eventId")
	}
	if e.NewStatus == "" {
		return errors.New("missing newStatus")
	}
	return nil
}

// SpeakerInvitedEvent is published (through the speaker-service outbox) when
// an invitation is created or refreshed.
type SpeakerInvitedEvent struct {
	Type         EventType `json:"type"`
	InvitationID uuid.UUID `json:"invitationId"`
	EventID      uuid.UUID `json:"eventId"`
	SpeakerID    uuid.UUID `json:"speakerId"`
	Message      string    `json:"message,omitempty"`
}

func NewSpeakerInvitedEvent(invitationID, eventID, speakerID uuid.UUID, message string) *SpeakerInvitedEvent {
	return &SpeakerInvitedEvent{
		Type:         EventSpeakerInvited,
		InvitationID: invitationID,
		EventID:      eventID,
		SpeakerID:    speakerID,
		Message:      message,
	}
}

func (e *SpeakerInvitedEvent) EventType() EventType { return EventSpeakerInvited }

func (e *SpeakerInvitedEvent) validate() error {
	if e.InvitationID == uuid.Nil {
		return errors.New("missing invitationId")
	}
	if e.EventID == uuid.Nil {
		return errors.New("missing eventId")
	}
	if e.SpeakerID == uuid.Nil {
		return errors.New("missing speakerId")
	}
	return nil
}

// MessageReceivedEvent is the legacy direct-message shape. The producer
// resolves the recipient before publishing, so no enrichment fetch happens
// downstream.
type MessageReceivedEvent struct {
	Type     EventType `json:"type"`
	To       string    `json:"to"`
	ToName   string    `json:"toName,omitempty"`
	FromName string    `json:"fromName"`
	Subject  string    `json:"subject"`
	Content  string    `json:"content,omitempty"`
}

func NewMessageReceivedEvent(to, toName, fromName, subject, content string) *MessageReceivedEvent {
	return &MessageReceivedEvent{
		Type:     EventMessageReceived,
		To:       to,
		ToName:   toName,
		FromName: fromName,
		Subject:  subject,
		Content:  content,
	}
}

func (e *MessageReceivedEvent) EventType() EventType { return EventMessageReceived }

func (e *MessageReceivedEvent) validate() error {
	if e.To == "" {
		return errors.New("missing to")
	}
	if e.Subject == "" {
		return errors.New("missing subject")
	}
	return nil
}

// DecodeDomainEvent decodes a flat tagged event body. It fails closed:
// malformed JSON, a missing or unknown type tag, and missing required ids
// are all decode errors, and the caller is expected to reject the delivery
// without requeue.
func DecodeDomainEvent(body []byte) (DomainEvent, error) {
	var probe struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if probe.Type == "" {
		return nil, ErrMissingEventType
	}

	var ev DomainEvent
	switch probe.Type {
	case EventBookingConfirmed:
		ev = &BookingConfirmedEvent{}
	case EventCancelled:
		ev = &EventCancelledEvent{}
	case EventStatusChanged:
		ev = &EventStatusChangedEvent{}
	case EventSpeakerInvited:
		ev = &SpeakerInvitedEvent{}
	case EventMessageReceived:
		ev = &MessageReceivedEvent{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, probe.Type)
	}

	if err := json.Unmarshal(body, ev); err != nil {
		return nil, fmt.Errorf("decode %s: %w", probe.Type, err)
	}
	if err := ev.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", probe.Type, err)
	}
	return ev, nil
}

// EncodeDomainEvent marshals an event built by one of the New* constructors.
func EncodeDomainEvent(ev DomainEvent) ([]byte, error) {
	if err := ev.validate(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.EventType(), err)
	}
	return json.Marshal(ev)
}
