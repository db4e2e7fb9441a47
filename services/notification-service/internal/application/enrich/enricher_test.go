package enrich

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confera/confera/internal/contracts"
	"github.com/confera/confera/services/notification-service/internal/infrastructure/client"
)

type fakeEvents struct {
	event *client.Event
	err   error
	calls int
}

func (f *fakeEvents) GetEvent(ctx context.Context, eventID uuid.UUID) (*client.Event, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

type fakeBookings struct {
	pages   []*client.BookingsPage // index = page-1
	err     error
	visited []int
}

func (f *fakeBookings) ListByEvent(ctx context.Context, eventID uuid.UUID, page int) (*client.BookingsPage, error) {
	f.visited = append(f.visited, page)
	if f.err != nil {
		return nil, f.err
	}
	if page-1 >= len(f.pages) {
		return &client.BookingsPage{TotalPages: len(f.pages)}, nil
	}
	return f.pages[page-1], nil
}

type fakeUsers struct {
	users map[uuid.UUID]*client.User
	calls int
}

func (f *fakeUsers) GetUser(ctx context.Context, userID uuid.UUID) (*client.User, error) {
	f.calls++
	u, ok := f.users[userID]
	if !ok {
		return nil, client.ErrNotFound
	}
	return u, nil
}

type fakeSpeakers struct {
	speakers map[uuid.UUID]*client.Speaker
}

func (f *fakeSpeakers) GetSpeaker(ctx context.Context, speakerID uuid.UUID) (*client.Speaker, error) {
	sp, ok := f.speakers[speakerID]
	if !ok {
		return nil, client.ErrNotFound
	}
	return sp, nil
}

type fakeInvitations struct {
	invs []client.Invitation
	err  error
}

func (f *fakeInvitations) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]client.Invitation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.invs, nil
}

type published struct {
	queue     string
	messageID string
	body      []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	sent     []published
	failWhen func(p published) error
}

func (f *fakePublisher) Publish(ctx context.Context, queue, messageID string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := published{queue: queue, messageID: messageID, body: body}
	if f.failWhen != nil {
		if err := f.failWhen(p); err != nil {
			return err
		}
	}
	f.sent = append(f.sent, p)
	return nil
}

func (f *fakePublisher) decoded(t *testing.T) []contracts.Notification {
	t.Helper()
	var out []contracts.Notification
	for _, p := range f.sent {
		n, err := contracts.DecodeNotification(p.body)
		require.NoError(t, err, "published envelope must decode")
		out = append(out, n)
	}
	return out
}

var testEvent = &client.Event{
	Name:             "GopherCon",
	Venue:            "Berlin",
	BookingStartDate: time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
	BookingEndDate:   time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC),
	Status:           "PUBLISHED",
}

func emptyDeps(pub Publisher) Deps {
	return Deps{
		Events:      &fakeEvents{event: testEvent},
		Bookings:    &fakeBookings{},
		Users:       &fakeUsers{},
		Speakers:    &fakeSpeakers{},
		Invitations: &fakeInvitations{},
		Publisher:   pub,
	}
}

func TestHandleBookingCreated_PublishesOneEnvelope(t *testing.T) {
	userID := uuid.New()
	pub := &fakePublisher{}

	d := emptyDeps(pub)
	d.Users = &fakeUsers{users: map[uuid.UUID]*client.User{
		userID: {ID: userID, Email: "ana@example.com", Name: "Ana"},
	}}
	e := New(d, zerolog.Nop())

	body, err := contracts.EncodeDomainEvent(contracts.NewBookingConfirmedEvent(uuid.New(), uuid.New(), userID))
	require.NoError(t, err)

	require.NoError(t, e.HandleBookingCreated(context.Background(), body))

	require.Len(t, pub.sent, 1)
	assert.Equal(t, contracts.QueueNotificationEmail, pub.sent[0].queue)
	assert.NotEmpty(t, pub.sent[0].messageID)

	msg, ok := pub.decoded(t)[0].(*contracts.BookingConfirmedMessage)
	require.True(t, ok)
	assert.Equal(t, "ana@example.com", msg.To)
	assert.Equal(t, "Ana", msg.Name)
	assert.Equal(t, "GopherCon", msg.EventName)
	assert.Equal(t, "Berlin", msg.Venue)
	assert.Equal(t, testEvent.BookingStartDate, msg.StartDate)
}

func TestHandleBookingCreated_EventLookupFailure_ZeroFanOut(t *testing.T) {
	pub := &fakePublisher{}

	d := emptyDeps(pub)
	d.Events = &fakeEvents{err: client.ErrUnavailable}
	e := New(d, zerolog.Nop())

	body, err := contracts.EncodeDomainEvent(contracts.NewBookingConfirmedEvent(uuid.New(), uuid.New(), uuid.New()))
	require.NoError(t, err)

	// Total canonical-entity failure is absorbed: nil means the message
	// gets acknowledged, just with nothing published.
	require.NoError(t, e.HandleBookingCreated(context.Background(), body))
	assert.Empty(t, pub.sent)
}

func TestHandleBookingCreated_MalformedPayloadRejected(t *testing.T) {
	pub := &fakePublisher{}
	e := New(emptyDeps(pub), zerolog.Nop())

	for _, body := range [][]byte{
		[]byte("not json"),
		[]byte(`{}`),
		[]byte(`{"type":"NO_SUCH_EVENT"}`),
		[]byte(`{"type":"EVENT_CANCELLED","eventId":"` + uuid.NewString() + `"}`), // wrong queue
	} {
		err := e.HandleBookingCreated(context.Background(), body)
		assert.Error(t, err, "payload %q must be rejected", body)
	}
	assert.Empty(t, pub.sent)
}

func TestHandleEventCancelled_FanOutCompleteness(t *testing.T) {
	eventID := uuid.New()
	userIDs := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	speakerIDs := []uuid.UUID{uuid.New(), uuid.New()}
	declined := uuid.New()

	users := map[uuid.UUID]*client.User{}
	for i, id := range userIDs {
		users[id] = &client.User{ID: id, Email: "user" + string(rune('a'+i)) + "@example.com", Name: "User"}
	}
	// One speaker shares an email with an attendee: both envelopes must
	// still go out, fan-out never deduplicates across sources.
	speakers := map[uuid.UUID]*client.Speaker{
		speakerIDs[0]: {ID: speakerIDs[0], Email: "usera@example.com", Name: "Speaker A"},
		speakerIDs[1]: {ID: speakerIDs[1], Email: "spk@example.com", Name: "Speaker B"},
	}

	pub := &fakePublisher{}
	bookings := &fakeBookings{pages: []*client.BookingsPage{
		{Bookings: []client.Booking{{ID: uuid.New(), UserID: userIDs[0]}, {ID: uuid.New(), UserID: userIDs[1]}}, TotalPages: 2},
		{Bookings: []client.Booking{{ID: uuid.New(), UserID: userIDs[2]}}, TotalPages: 2},
	}}

	d := Deps{
		Events:   &fakeEvents{event: testEvent},
		Bookings: bookings,
		Users:    &fakeUsers{users: users},
		Speakers: &fakeSpeakers{speakers: speakers},
		Invitations: &fakeInvitations{invs: []client.Invitation{
			{ID: uuid.New(), SpeakerID: speakerIDs[0], EventID: eventID, Status: "ACCEPTED"},
			{ID: uuid.New(), SpeakerID: declined, EventID: eventID, Status: "DECLINED"},
			{ID: uuid.New(), SpeakerID: speakerIDs[1], EventID: eventID, Status: "ACCEPTED"},
		}},
		Publisher: pub,
	}
	e := New(d, zerolog.Nop())

	body, err := contracts.EncodeDomainEvent(contracts.NewEventCancelledEvent(eventID, "venue flooded"))
	require.NoError(t, err)

	require.NoError(t, e.HandleEventCancelled(context.Background(), body))

	// 3 attendees + 2 accepted speakers; the declined one is ignored.
	require.Len(t, pub.sent, 5)
	assert.Equal(t, []int{1, 2}, bookings.visited, "every page visited exactly once")

	duplicateEmail := 0
	for _, n := range pub.decoded(t) {
		msg, ok := n.(*contracts.EventCancelledMessage)
		require.True(t, ok)
		assert.Equal(t, "GopherCon", msg.EventName)
		assert.Equal(t, "venue flooded", msg.Reason)
		if msg.To == "usera@example.com" {
			duplicateEmail++
		}
	}
	assert.Equal(t, 2, duplicateEmail, "attendee+speaker with same email gets both envelopes")
}

func TestHandleEventCancelled_PartialRecipientFailure(t *testing.T) {
	eventID := uuid.New()
	known := []uuid.UUID{uuid.New(), uuid.New()}
	unknown := uuid.New()

	users := map[uuid.UUID]*client.User{
		known[0]: {ID: known[0], Email: "a@example.com"},
		known[1]: {ID: known[1], Email: "b@example.com"},
	}

	pub := &fakePublisher{}
	d := emptyDeps(pub)
	d.Bookings = &fakeBookings{pages: []*client.BookingsPage{{
		Bookings:   []client.Booking{{UserID: known[0]}, {UserID: unknown}, {UserID: known[1]}},
		TotalPages: 1,
	}}}
	d.Users = &fakeUsers{users: users}
	e := New(d, zerolog.Nop())

	body, err := contracts.EncodeDomainEvent(contracts.NewEventCancelledEvent(eventID, ""))
	require.NoError(t, err)

	// One of three lookups fails: the other two envelopes still go out
	// and the message is still acknowledged.
	require.NoError(t, e.HandleEventCancelled(context.Background(), body))
	assert.Len(t, pub.sent, 2)
}

func TestHandleEventCancelled_BookingSourceFailure_SpeakersStillNotified(t *testing.T) {
	eventID := uuid.New()
	speakerID := uuid.New()

	pub := &fakePublisher{}
	d := emptyDeps(pub)
	d.Bookings = &fakeBookings{err: client.ErrUnavailable}
	d.Speakers = &fakeSpeakers{speakers: map[uuid.UUID]*client.Speaker{
		speakerID: {ID: speakerID, Email: "spk@example.com", Name: "Sam"},
	}}
	d.Invitations = &fakeInvitations{invs: []client.Invitation{
		{ID: uuid.New(), SpeakerID: speakerID, EventID: eventID, Status: "ACCEPTED"},
	}}
	e := New(d, zerolog.Nop())

	body, err := contracts.EncodeDomainEvent(contracts.NewEventCancelledEvent(eventID, "cancelled"))
	require.NoError(t, err)

	require.NoError(t, e.HandleEventCancelled(context.Background(), body))
	require.Len(t, pub.sent, 1)

	msg := pub.decoded(t)[0].(*contracts.EventCancelledMessage)
	assert.Equal(t, "spk@example.com", msg.To)
}

func TestHandleEventCancelled_PublishFailureIsolated(t *testing.T) {
	eventID := uuid.New()
	userIDs := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	users := map[uuid.UUID]*client.User{}
	for i, id := range userIDs {
		users[id] = &client.User{ID: id, Email: "u" + string(rune('0'+i)) + "@example.com"}
	}

	pub := &fakePublisher{failWhen: func(p published) error {
		if strings.Contains(string(p.body), "u1@example.com") {
			return assert.AnError
		}
		return nil
	}}
	d := emptyDeps(pub)
	d.Bookings = &fakeBookings{pages: []*client.BookingsPage{{
		Bookings:   []client.Booking{{UserID: userIDs[0]}, {UserID: userIDs[1]}, {UserID: userIDs[2]}},
		TotalPages: 1,
	}}}
	d.Users = &fakeUsers{users: users}
	e := New(d, zerolog.Nop())

	body, err := contracts.EncodeDomainEvent(contracts.NewEventCancelledEvent(eventID, ""))
	require.NoError(t, err)

	require.NoError(t, e.HandleEventCancelled(context.Background(), body))
	assert.Len(t, pub.sent, 2, "one failed publish must not stop the siblings")
}

func TestHandleEventStatusChanged_IncludesTransition(t *testing.T) {
	eventID := uuid.New()
	userID := uuid.New()

	pub := &fakePublisher{}
	d := emptyDeps(pub)
	d.Bookings = &fakeBookings{pages: []*client.BookingsPage{{
		Bookings:   []client.Booking{{UserID: userID}},
		TotalPages: 1,
	}}}
	d.Users = &fakeUsers{users: map[uuid.UUID]*client.User{
		userID: {ID: userID, Email: "ana@example.com", Name: "Ana"},
	}}
	e := New(d, zerolog.Nop())

	body, err := contracts.EncodeDomainEvent(contracts.NewEventStatusChangedEvent(eventID, "PUBLISHED", "POSTPONED"))
	require.NoError(t, err)

	require.NoError(t, e.HandleEventStatusChanged(context.Background(), body))
	require.Len(t, pub.sent, 1)

	msg := pub.decoded(t)[0].(*contracts.EventStatusChangedMessage)
	assert.Equal(t, "PUBLISHED", msg.PreviousStatus)
	assert.Equal(t, "POSTPONED", msg.NewStatus)
}

func TestHandleSpeakerInvited_CarriesInvitationMessage(t *testing.T) {
	speakerID := uuid.New()

	pub := &fakePublisher{}
	d := emptyDeps(pub)
	d.Speakers = &fakeSpeakers{speakers: map[uuid.UUID]*client.Speaker{
		speakerID: {ID: speakerID, Email: "spk@example.com", Name: "Sam"},
	}}
	e := New(d, zerolog.Nop())

	body, err := contracts.EncodeDomainEvent(contracts.NewSpeakerInvitedEvent(uuid.New(), uuid.New(), speakerID, "Talk generics?"))
	require.NoError(t, err)

	require.NoError(t, e.HandleSpeakerInvited(context.Background(), body))
	require.Len(t, pub.sent, 1)

	msg := pub.decoded(t)[0].(*contracts.SpeakerInvitationMessage)
	assert.Equal(t, "spk@example.com", msg.To)
	assert.Equal(t, "GopherCon", msg.EventName)
	assert.Equal(t, "Talk generics?", msg.Message)
}

func TestHandleMessageReceived_PassthroughWithoutLookups(t *testing.T) {
	pub := &fakePublisher{}
	events := &fakeEvents{event: testEvent}
	users := &fakeUsers{}

	d := emptyDeps(pub)
	d.Events = events
	d.Users = users
	e := New(d, zerolog.Nop())

	body, err := contracts.EncodeDomainEvent(contracts.NewMessageReceivedEvent(
		"ana@example.com", "Ana", "Organiser Team", "Schedule change", "Moved to 14:00",
	))
	require.NoError(t, err)

	require.NoError(t, e.HandleMessageReceived(context.Background(), body))

	assert.Zero(t, events.calls, "passthrough must not fetch the event")
	assert.Zero(t, users.calls, "passthrough must not resolve recipients")
	require.Len(t, pub.sent, 1)

	msg := pub.decoded(t)[0].(*contracts.MessageReceivedMessage)
	assert.Equal(t, "ana@example.com", msg.To)
	assert.Equal(t, "Organiser Team", msg.FromName)
	assert.Equal(t, "Schedule change", msg.Subject)
}

func TestFanOut_MessageIDsStableAcrossRedelivery(t *testing.T) {
	eventID := uuid.New()
	userID := uuid.New()

	run := func() []string {
		pub := &fakePublisher{}
		d := emptyDeps(pub)
		d.Bookings = &fakeBookings{pages: []*client.BookingsPage{{
			Bookings:   []client.Booking{{UserID: userID}},
			TotalPages: 1,
		}}}
		d.Users = &fakeUsers{users: map[uuid.UUID]*client.User{
			userID: {ID: userID, Email: "ana@example.com"},
		}}
		e := New(d, zerolog.Nop())

		body, err := contracts.EncodeDomainEvent(contracts.NewEventCancelledEvent(eventID, "x"))
		require.NoError(t, err)
		require.NoError(t, e.HandleEventCancelled(context.Background(), body))

		ids := make([]string, 0, len(pub.sent))
		for _, p := range pub.sent {
			ids = append(ids, p.messageID)
		}
		return ids
	}

	assert.Equal(t, run(), run(), "redelivered event must fan out to identical message ids")
}
