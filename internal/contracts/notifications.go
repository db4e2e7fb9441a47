package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// MessageType tags a notification envelope.
type MessageType string

const (
	MsgBookingConfirmed   MessageType = "BOOKING_CONFIRMED"
	MsgEventCancelled     MessageType = "EVENT_CANCELLED"
	MsgEventStatusChanged MessageType = "EVENT_STATUS_CHANGED"
	MsgSpeakerInvitation  MessageType = "SPEAKER_INVITATION"
	MsgMessageReceived    MessageType = "MESSAGE_RECEIVED"
)

var (
	ErrMissingMessageType = errors.New("envelope has no type tag")
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrMissingMessage     = errors.New("envelope has no message")
)

var validate = validator.New()

// Notification is one recipient's worth of outbound email data. Fan-out to
// multiple recipients happens in the enrichers; the dispatch consumer only
// ever sees a single resolved address.
type Notification interface {
	MessageType() MessageType
	Recipient() string
}

// Envelope is the wire shape carried on the notification.email queue.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Message json.RawMessage `json:"message"`
}

type BookingConfirmedMessage struct {
	To        string    `json:"to" validate:"required,email"`
	Name      string    `json:"name"`
	EventName string    `json:"eventName" validate:"required"`
	Venue     string    `json:"venue"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

func (m *BookingConfirmedMessage) MessageType() MessageType { return MsgBookingConfirmed }
func (m *BookingConfirmedMessage) Recipient() string        { return m.To }

type EventCancelledMessage struct {
	To        string `json:"to" validate:"required,email"`
	Name      string `json:"name"`
	EventName string `json:"eventName" validate:"required"`
	Reason    string `json:"reason,omitempty"`
}

func (m *EventCancelledMessage) MessageType() MessageType { return MsgEventCancelled }
func (m *EventCancelledMessage) Recipient() string        { return m.To }

type EventStatusChangedMessage struct {
	To             string `json:"to" validate:"required,email"`
	Name           string `json:"name"`
	EventName      string `json:"eventName" validate:"required"`
	PreviousStatus string `json:"previousStatus"`
	NewStatus      string `json:"newStatus" validate:"required"`
}

func (m *EventStatusChangedMessage) MessageType() MessageType { return MsgEventStatusChanged }
func (m *EventStatusChangedMessage) Recipient() string        { return m.To }

type SpeakerInvitationMessage struct {
	To        string `json:"to" validate:"required,email"`
	Name      string `json:"name"`
	EventName string `json:"eventName" validate:"required"`
	Message   string `json:"message,omitempty"`
}

func (m *SpeakerInvitationMessage) MessageType() MessageType { return MsgSpeakerInvitation }
func (m *SpeakerInvitationMessage) Recipient() string        { return m.To }

type MessageReceivedMessage struct {
	To       string `json:"to" validate:"required,email"`
	Name     string `json:"name"`
	FromName string `json:"fromName" validate:"required"`
	Subject  string `json:"subject" validate:"required"`
	Content  string `json:"content,omitempty"`
}

func (m *MessageReceivedMessage) MessageType() MessageType { return MsgMessageReceived }
func (m *MessageReceivedMessage) Recipient() string        { return m.To }

// EncodeNotification wraps a message in its tagged envelope.
func EncodeNotification(n Notification) ([]byte, error) {
	msg, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", n.MessageType(), err)
	}
	return json.Marshal(Envelope{Type: n.MessageType(), Message: msg})
}

// DecodeNotification decodes and validates an envelope. It fails closed:
// malformed JSON, a missing or unknown type tag, an absent message, or a
// message failing field validation are all decode errors, and the dispatch
// consumer rejects such deliveries without requeue.
func DecodeNotification(body []byte) (Notification, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return nil, ErrMissingMessageType
	}
	if len(env.Message) == 0 || string(env.Message) == "null" {
		return nil, ErrMissingMessage
	}

	var n Notification
	switch env.Type {
	case MsgBookingConfirmed:
		n = &BookingConfirmedMessage{}
	case MsgEventCancelled:
		n = &EventCancelledMessage{}
	case MsgEventStatusChanged:
		n = &EventStatusChangedMessage{}
	case MsgSpeakerInvitation:
		n = &SpeakerInvitationMessage{}
	case MsgMessageReceived:
		n = &MessageReceivedMessage{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, env.Type)
	}

	if err := json.Unmarshal(env.Message, n); err != nil {
		return nil, fmt.Errorf("decode %s message: %w", env.Type, err)
	}
	if err := validate.Struct(n); err != nil {
		return nil, fmt.Errorf("invalid %s message: %w", env.Type, err)
	}
	return n, nil
}
