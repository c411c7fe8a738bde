package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/artisanclarinets/smartupload/internal/models"
	"github.com/artisanclarinets/smartupload/internal/store"
)

func (s *Store) CreateBatch(ctx context.Context, b *models.Batch) error {
	q := querier(ctx, s.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO batches (id, user_id, status, total_files, processed_files, success_files, failed_files, error_summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.UserID, b.Status, b.TotalFiles, b.ProcessedFiles, b.SuccessFiles, b.FailedFiles, b.ErrorSummary)
	if err != nil {
		return fmt.Errorf("postgres: create batch: %w", err)
	}
	return nil
}

func (s *Store) GetBatch(ctx context.Context, id string) (*models.Batch, error) {
	q := querier(ctx, s.pool)
	row := q.QueryRow(ctx, `
		SELECT id, user_id, status, total_files, processed_files, success_files, failed_files, error_summary, created_at, updated_at
		FROM batches WHERE id = $1`, id)

	b := &models.Batch{}
	err := row.Scan(&b.ID, &b.UserID, &b.Status, &b.TotalFiles, &b.ProcessedFiles, &b.SuccessFiles, &b.FailedFiles, &b.ErrorSummary, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get batch: %w", err)
	}
	return b, nil
}

func (s *Store) UpdateBatch(ctx context.Context, b *models.Batch) error {
	q := querier(ctx, s.pool)
	tag, err := q.Exec(ctx, `
		UPDATE batches SET status = $2, total_files = $3, processed_files = $4, success_files = $5,
			failed_files = $6, error_summary = $7, updated_at = now()
		WHERE id = $1`,
		b.ID, b.Status, b.TotalFiles, b.ProcessedFiles, b.SuccessFiles, b.FailedFiles, b.ErrorSummary)
	if err != nil {
		return fmt.Errorf("postgres: update batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
