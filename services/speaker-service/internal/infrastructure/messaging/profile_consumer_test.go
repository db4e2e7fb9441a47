package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confera/confera/internal/contracts"
	"github.com/confera/confera/services/speaker-service/internal/domain"
)

type fakeStore struct {
	profiles map[uuid.UUID]*domain.SpeakerProfile // keyed by userId
	err      error
}

func (f *fakeStore) CreateProfile(ctx context.Context, p *domain.SpeakerProfile) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.profiles[p.UserID]; ok {
		return false, nil
	}
	f.profiles[p.UserID] = p
	return true, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func profileBody(t *testing.T, cmd contracts.SpeakerProfileCreate) []byte {
	t.Helper()
	body, err := json.Marshal(cmd)
	require.NoError(t, err)
	return body
}

func TestProfileHandler_CreatesProfile(t *testing.T) {
	store := &fakeStore{profiles: map[uuid.UUID]*domain.SpeakerProfile{}}
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	h := NewProfileHandler(store, fixedClock{now}, zerolog.Nop())

	userID := uuid.New()
	body := profileBody(t, contracts.SpeakerProfileCreate{
		UserID: userID,
		Email:  "ada@example.com",
		Name:   "Ada Lovelace",
		Bio:    "numbers person",
	})

	require.NoError(t, h.Handle(context.Background(), body))

	p, ok := store.profiles[userID]
	require.True(t, ok, "profile stored under the userId")
	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, "ada@example.com", p.Email)
	assert.Equal(t, "Ada Lovelace", p.Name)
	assert.Equal(t, "numbers person", p.Bio)
	assert.Equal(t, now, p.CreatedAt)
}

func TestProfileHandler_AcksDuplicate(t *testing.T) {
	store := &fakeStore{profiles: map[uuid.UUID]*domain.SpeakerProfile{}}
	h := NewProfileHandler(store, fixedClock{time.Now()}, zerolog.Nop())

	userID := uuid.New()
	body := profileBody(t, contracts.SpeakerProfileCreate{
		UserID: userID,
		Email:  "ada@example.com",
		Name:   "Ada Lovelace",
	})

	require.NoError(t, h.Handle(context.Background(), body))
	first := store.profiles[userID]

	// Redelivery of the same command must ack without touching the row.
	require.NoError(t, h.Handle(context.Background(), body))
	assert.Same(t, first, store.profiles[userID])
	assert.Len(t, store.profiles, 1)
}

func TestProfileHandler_RejectsMalformedPayload(t *testing.T) {
	store := &fakeStore{profiles: map[uuid.UUID]*domain.SpeakerProfile{}}
	h := NewProfileHandler(store, fixedClock{time.Now()}, zerolog.Nop())

	cases := map[string][]byte{
		"not json":      []byte("{nope"),
		"missing email": profileBody(t, contracts.SpeakerProfileCreate{UserID: uuid.New(), Name: "x"}),
		"zero user id":  profileBody(t, contracts.SpeakerProfileCreate{Email: "a@b.com", Name: "x"}),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, h.Handle(context.Background(), body))
			assert.Empty(t, store.profiles)
		})
	}
}

func TestProfileHandler_PropagatesStoreError(t *testing.T) {
	storeErr := errors.New("pool exhausted")
	store := &fakeStore{profiles: map[uuid.UUID]*domain.SpeakerProfile{}, err: storeErr}
	h := NewProfileHandler(store, fixedClock{time.Now()}, zerolog.Nop())

	body := profileBody(t, contracts.SpeakerProfileCreate{
		UserID: uuid.New(),
		Email:  "ada@example.com",
		Name:   "Ada Lovelace",
	})

	err := h.Handle(context.Background(), body)
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
}
