package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/artisanclarinets/smartupload/internal/store"
)

// staleness mirrors memstore's fixed claim-staleness window; ReapStale
// reclaims any job whose worker went silent for longer than this.
const staleness = 5 * time.Minute

func (s *Store) Enqueue(ctx context.Context, jobName, batchID, itemID string, opts store.JobQueueOptions) error {
	q := querier(ctx, s.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO jobs (id, name, batch_id, item_id, priority, max_attempts, backoff_base_s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(), jobName, batchID, itemID, opts.Priority, opts.Attempts, opts.BackoffBaseSec)
	if err != nil {
		return fmt.Errorf("postgres: enqueue: %w", err)
	}
	return nil
}

// Claim atomically pops the highest-priority ready job using
// FOR UPDATE SKIP LOCKED, so concurrent workers never contend on the same
// row and never double-claim.
func (s *Store) Claim(ctx context.Context, workerID string) (*store.QueueJob, error) {
	q := querier(ctx, s.pool)
	row := q.QueryRow(ctx, `
		UPDATE jobs SET status = 'claimed', claimed_by = $1, claimed_at = now()
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = 'pending' AND available_at <= now()
			ORDER BY priority DESC, created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, name, batch_id, item_id, attempts`, workerID)

	j := &store.QueueJob{}
	err := row.Scan(&j.ID, &j.Name, &j.BatchID, &j.ItemID, &j.Attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrQueueEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: claim: %w", err)
	}
	return j, nil
}

func (s *Store) Complete(ctx context.Context, jobID string) error {
	q := querier(ctx, s.pool)
	_, err := q.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("postgres: complete: %w", err)
	}
	return nil
}

func (s *Store) Fail(ctx context.Context, jobID string, reason string) error {
	q := querier(ctx, s.pool)
	tag, err := q.Exec(ctx, `
		UPDATE jobs SET status = 'pending', claimed_by = NULL, claimed_at = NULL,
			attempts = attempts + 1, last_error = $2
		WHERE id = $1`, jobID, reason)
	if err != nil {
		return fmt.Errorf("postgres: fail: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ReapStale requeues jobs claimed longer than the staleness window ago and
// returns them, matching memstore's contract of leaving the row in place
// with status reset to pending.
func (s *Store) ReapStale(ctx context.Context) ([]*store.QueueJob, error) {
	q := querier(ctx, s.pool)
	rows, err := q.Query(ctx, `
		UPDATE jobs SET status = 'pending', claimed_by = NULL, claimed_at = NULL
		WHERE status = 'claimed' AND claimed_at < now() - ($1 * interval '1 second')
		RETURNING id, name, batch_id, item_id, attempts`, staleness.Seconds())
	if err != nil {
		return nil, fmt.Errorf("postgres: reap stale: %w", err)
	}
	defer rows.Close()

	var reaped []*store.QueueJob
	for rows.Next() {
		j := &store.QueueJob{}
		if err := rows.Scan(&j.ID, &j.Name, &j.BatchID, &j.ItemID, &j.Attempts); err != nil {
			return nil, fmt.Errorf("postgres: reap stale: %w", err)
		}
		reaped = append(reaped, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: reap stale: %w", err)
	}
	return reaped, nil
}
