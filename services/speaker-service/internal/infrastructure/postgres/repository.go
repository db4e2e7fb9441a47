// Package postgres persists speaker invitations, profiles and the outbox
// with pgx. Invitation state changes run through WithTx so the application
// layer holds a row lock across its read-modify-write, and the outbox insert
// commits atomically with the change it announces.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/confera/confera/services/speaker-service/internal/application/invitation"
	"github.com/confera/confera/services/speaker-service/internal/domain"
)

type Repo struct {
	pool *pgxpool.Pool
	lg   zerolog.Logger
}

func New(pool *pgxpool.Pool, lg zerolog.Logger) *Repo {
	return &Repo{pool: pool, lg: lg}
}

func (r *Repo) WithTx(ctx context.Context, fn func(tr invitation.TxRepo) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}

	tr := &txRepo{tx: tx}

	defer func() {
		// In case fn panics, rollback to avoid a leaked tx.
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tr); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const insertProfileSQL = `
INSERT INTO speaker_profiles (id, user_id, email, name, bio, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id) DO NOTHING
`

// CreateProfile inserts a speaker profile keyed by user id. It reports false
// when the user already has one, which keeps the profile consumer idempotent
// across redeliveries.
func (r *Repo) CreateProfile(ctx context.Context, p *domain.SpeakerProfile) (bool, error) {
	tag, err := r.pool.Exec(ctx, insertProfileSQL,
		p.ID, p.UserID, p.Email, p.Name, p.Bio, p.CreatedAt.UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

type txRepo struct {
	tx pgx.Tx
}

const invitationColumns = `id, speaker_id, event_id, session_id, message, status,
       sent_at, responded_at, joined_at, left_at, is_attended`

const getForUpdateSQL = `
SELECT ` + invitationColumns + `
FROM speaker_invitations
WHERE id = $1
FOR UPDATE
`

// Event-level rows win over session rows when both are accepted, hence the
// NULLS FIRST ordering.
const findAcceptedForUpdateSQL = `
SELECT ` + invitationColumns + `
FROM speaker_invitations
WHERE speaker_id = $1 AND event_id = $2 AND status = 'ACCEPTED'
ORDER BY session_id NULLS FIRST
LIMIT 1
FOR UPDATE
`

const findLiveForUpdateSQL = `
SELECT ` + invitationColumns + `
FROM speaker_invitations
WHERE speaker_id = $1 AND event_id = $2
  AND session_id IS NOT DISTINCT FROM $3
  AND status IN ('PENDING', 'ACCEPTED')
FOR UPDATE
`

const insertInvitationSQL = `
INSERT INTO speaker_invitations (` + invitationColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

const updateInvitationSQL = `
UPDATE speaker_invitations
SET message = $2,
    status = $3,
    sent_at = $4,
    responded_at = $5,
    joined_at = $6,
    left_at = $7,
    is_attended = $8
WHERE id = $1
`

const deleteLiveSQL = `
DELETE FROM speaker_invitations
WHERE speaker_id = $1 AND event_id = $2
  AND session_id IS NOT DISTINCT FROM $3
  AND status IN ('PENDING', 'ACCEPTED')
`

const deleteByEventSQL = `
DELETE FROM speaker_invitations
WHERE event_id = $1
`

const countOwnedMaterialsSQL = `
SELECT COUNT(*)
FROM materials
WHERE speaker_id = $1 AND id = ANY($2)
`

const deleteSelectionSQL = `
DELETE FROM invitation_materials
WHERE invitation_id = $1
`

const insertSelectionSQL = `
INSERT INTO invitation_materials (invitation_id, material_id)
SELECT $1, unnest($2::uuid[])
`

const selectSelectionSQL = `
SELECT material_id
FROM invitation_materials
WHERE invitation_id = $1
ORDER BY material_id
`

const insertOutboxSQL = `
INSERT INTO outbox (message_id, routing_key, payload, status, next_retry_at, created_at)
VALUES ($1, $2, $3::jsonb, 'pending', $4, $4)
`

func (t *txRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.SpeakerInvitation, error) {
	inv, err := t.scanInvitation(ctx, t.tx.QueryRow(ctx, getForUpdateSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound("invitation not found")
	}
	return inv, err
}

func (t *txRepo) FindAcceptedForUpdate(ctx context.Context, speakerID, eventID uuid.UUID) (*domain.SpeakerInvitation, error) {
	inv, err := t.scanInvitation(ctx, t.tx.QueryRow(ctx, findAcceptedForUpdateSQL, speakerID, eventID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNoAcceptedInvitation("no accepted invitation for this event")
	}
	return inv, err
}

func (t *txRepo) FindLiveForUpdate(ctx context.Context, speakerID, eventID uuid.UUID, sessionID *uuid.UUID) (*domain.SpeakerInvitation, error) {
	inv, err := t.scanInvitation(ctx, t.tx.QueryRow(ctx, findLiveForUpdateSQL, speakerID, eventID, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound("no live invitation in scope")
	}
	return inv, err
}

func (t *txRepo) Insert(ctx context.Context, inv *domain.SpeakerInvitation) error {
	_, err := t.tx.Exec(ctx, insertInvitationSQL,
		inv.ID, inv.SpeakerID, inv.EventID, inv.SessionID, inv.Message, string(inv.Status),
		inv.SentAt, inv.RespondedAt, inv.JoinedAt, inv.LeftAt, inv.IsAttended,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return invitation.ErrDuplicateLive
	}
	return err
}

func (t *txRepo) Update(ctx context.Context, inv *domain.SpeakerInvitation) error {
	_, err := t.tx.Exec(ctx, updateInvitationSQL,
		inv.ID, inv.Message, string(inv.Status),
		inv.SentAt, inv.RespondedAt, inv.JoinedAt, inv.LeftAt, inv.IsAttended,
	)
	return err
}

func (t *txRepo) DeleteLive(ctx context.Context, speakerID, eventID uuid.UUID, sessionID *uuid.UUID) error {
	_, err := t.tx.Exec(ctx, deleteLiveSQL, speakerID, eventID, sessionID)
	return err
}

func (t *txRepo) DeleteByEvent(ctx context.Context, eventID uuid.UUID) (int64, error) {
	tag, err := t.tx.Exec(ctx, deleteByEventSQL, eventID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *txRepo) CountOwnedMaterials(ctx context.Context, speakerID uuid.UUID, ids []uuid.UUID) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, countOwnedMaterialsSQL, speakerID, ids).Scan(&n)
	return n, err
}

func (t *txRepo) ReplaceMaterials(ctx context.Context, invitationID uuid.UUID, materialIDs []uuid.UUID) error {
	if _, err := t.tx.Exec(ctx, deleteSelectionSQL, invitationID); err != nil {
		return err
	}
	if len(materialIDs) == 0 {
		return nil
	}
	_, err := t.tx.Exec(ctx, insertSelectionSQL, invitationID, materialIDs)
	return err
}

func (t *txRepo) InsertOutbox(ctx context.Context, msg invitation.OutboxMessage) error {
	_, err := t.tx.Exec(ctx, insertOutboxSQL,
		msg.MessageID, msg.Queue, string(msg.Body), msg.CreatedAt.UTC())
	return err
}

func (t *txRepo) scanInvitation(ctx context.Context, row pgx.Row) (*domain.SpeakerInvitation, error) {
	var inv domain.SpeakerInvitation
	var status string
	err := row.Scan(
		&inv.ID, &inv.SpeakerID, &inv.EventID, &inv.SessionID, &inv.Message, &status,
		&inv.SentAt, &inv.RespondedAt, &inv.JoinedAt, &inv.LeftAt, &inv.IsAttended,
	)
	if err != nil {
		return nil, err
	}
	inv.Status = domain.InvitationStatus(status)

	rows, err := t.tx.Query(ctx, selectSelectionSQL, inv.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		inv.Materials = append(inv.Materials, id)
	}
	return &inv, rows.Err()
}
