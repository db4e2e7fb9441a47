package postgres

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/confera/confera/services/speaker-service/internal/metrics"
)

const (
	outboxBatchSize   = 20
	outboxMaxAttempts = 12
	// Claimed rows stay 'pending' with next_retry_at pushed this far ahead.
	// A worker that crashes mid-publish just lets its claims become due again.
	inFlightWindow = 15 * time.Second

	publishTimeout = 5 * time.Second
)

// Publisher is satisfied by the shared confirm-mode broker publisher.
type Publisher interface {
	Publish(ctx context.Context, queue, messageID string, body []byte) error
}

// computeNextRetry backs off exponentially with jitter: 2^attempt seconds,
// clamped to [5s, 30m], +/-10%.
func computeNextRetry(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	sec := math.Pow(2, float64(attempt))
	if sec < 5 {
		sec = 5
	}
	if sec > 1800 {
		sec = 1800
	}

	d := time.Duration(sec) * time.Second
	j := time.Duration(rand.Int63n(int64(d/5))) - d/10
	return d + j
}

const claimOutboxSQL = `
SELECT id, message_id, routing_key, payload, attempt
FROM outbox
WHERE status = 'pending'
  AND next_retry_at <= NOW()
ORDER BY next_retry_at ASC, created_at ASC
LIMIT $1
FOR UPDATE SKIP LOCKED
`

const pushInFlightSQL = `
UPDATE outbox
SET next_retry_at = $2
WHERE id = $1
`

const markOutboxSentSQL = `
UPDATE outbox
SET status = 'sent',
    last_error = NULL
WHERE id = $1
`

const rescheduleOutboxSQL = `
UPDATE outbox
SET attempt = $2,
    next_retry_at = $3,
    last_error = $4
WHERE id = $1
`

const markOutboxDeadSQL = `
UPDATE outbox
SET status = 'dead',
    attempt = $2,
    last_error = $3
WHERE id = $1
`

type outboxRow struct {
	ID        int64
	MessageID uuid.UUID
	Queue     string
	Body      []byte
	Attempt   int
}

// StartOutboxWorker polls the outbox and publishes due rows. Claiming happens
// in a short transaction with SKIP LOCKED so multiple instances can run; the
// network publish happens outside any transaction.
func (r *Repo) StartOutboxWorker(ctx context.Context, pub Publisher, interval time.Duration) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	go func() {
		lg := r.lg.With().Str("component", "outbox_worker").Logger()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				lg.Info().Msg("stopped")
				return
			case <-ticker.C:
				if err := r.processOutboxBatch(ctx, pub); err != nil {
					lg.Warn().Err(err).Msg("outbox batch failed")
				}
			}
		}
	}()
}

func (r *Repo) processOutboxBatch(ctx context.Context, pub Publisher) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, claimOutboxSQL, outboxBatchSize)
	if err != nil {
		return err
	}

	var batch []outboxRow
	for rows.Next() {
		var m outboxRow
		if err := rows.Scan(&m.ID, &m.MessageID, &m.Queue, &m.Body, &m.Attempt); err != nil {
			rows.Close()
			return err
		}
		batch = append(batch, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if len(batch) == 0 {
		return tx.Commit(ctx)
	}

	inFlightUntil := time.Now().UTC().Add(inFlightWindow)
	for _, m := range batch {
		if _, err := tx.Exec(ctx, pushInFlightSQL, m.ID, inFlightUntil); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	for _, m := range batch {
		r.publishOutboxRow(ctx, pub, m)
	}
	return nil
}

func (r *Repo) publishOutboxRow(ctx context.Context, pub Publisher, m outboxRow) {
	lg := r.lg.With().Str("component", "outbox_worker").Logger()

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := pub.Publish(pubCtx, m.Queue, m.MessageID.String(), m.Body); err != nil {
		r.failOutboxRow(ctx, m, err.Error())
		return
	}

	if _, err := r.pool.Exec(ctx, markOutboxSentSQL, m.ID); err != nil {
		// Published but not marked; the row becomes due again and the
		// consumer side deduplicates on message id.
		lg.Warn().Err(err).Int64("outbox_id", m.ID).Msg("sent but not marked, will republish")
		return
	}

	metrics.RecordOutboxPublished()
	lg.Info().
		Int64("outbox_id", m.ID).
		Str("message_id", m.MessageID.String()).
		Str("queue", m.Queue).
		Msg("published")
}

func (r *Repo) failOutboxRow(ctx context.Context, m outboxRow, cause string) {
	lg := r.lg.With().Str("component", "outbox_worker").Logger()

	attempt := m.Attempt + 1
	if attempt >= outboxMaxAttempts {
		_, _ = r.pool.Exec(ctx, markOutboxDeadSQL, m.ID, attempt, cause)
		metrics.RecordOutboxDead()
		lg.Error().
			Int64("outbox_id", m.ID).
			Str("message_id", m.MessageID.String()).
			Str("queue", m.Queue).
			Int("attempt", attempt).
			Msg("outbox message moved to dead")
		return
	}

	delay := computeNextRetry(attempt)
	_, _ = r.pool.Exec(ctx, rescheduleOutboxSQL, m.ID, attempt, time.Now().UTC().Add(delay), cause)
	metrics.RecordOutboxRetried()
	lg.Warn().
		Int64("outbox_id", m.ID).
		Str("message_id", m.MessageID.String()).
		Str("queue", m.Queue).
		Int("attempt", attempt).
		Dur("retry_in", delay).
		Msg("outbox publish failed, retry scheduled")
}
