package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/artisanclarinets/smartupload/internal/models"
	"github.com/artisanclarinets/smartupload/internal/store"
)

func (s *Store) CreateItem(ctx context.Context, it *models.Item) error {
	metadata, instructions, parts, tempFiles, secondPass, err := marshalItemJSON(it)
	if err != nil {
		return fmt.Errorf("postgres: create item: %w", err)
	}

	q := querier(ctx, s.pool)
	_, err = q.Exec(ctx, `
		INSERT INTO items (
			id, batch_id, file_name, mime_type, storage_key, status, current_step, ocr_text,
			extracted_metadata, cutting_instructions, parsed_parts, is_packet,
			second_pass_status, second_pass_result, adjudicator_status, adjudication_notes,
			final_confidence, auto_approved, requires_human_review, error_message, error_details, temp_files
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
		it.ID, it.BatchID, it.FileName, it.MimeType, it.StorageKey, it.Status, it.CurrentStep, it.OCRText,
		metadata, instructions, parts, it.IsPacket,
		it.SecondPassStatus, secondPass, it.AdjudicatorStatus, it.AdjudicationNotes,
		it.FinalConfidence, it.AutoApproved, it.RequiresHumanReview, it.ErrorMessage, it.ErrorDetails, tempFiles)
	if err != nil {
		return fmt.Errorf("postgres: create item: %w", err)
	}
	return nil
}

func (s *Store) GetItem(ctx context.Context, id string) (*models.Item, error) {
	q := querier(ctx, s.pool)
	row := q.QueryRow(ctx, `
		SELECT id, batch_id, file_name, mime_type, storage_key, status, current_step, ocr_text,
			extracted_metadata, cutting_instructions, parsed_parts, is_packet,
			second_pass_status, second_pass_result, adjudicator_status, adjudication_notes,
			final_confidence, auto_approved, requires_human_review, error_message, error_details, temp_files,
			created_at, updated_at
		FROM items WHERE id = $1`, id)

	it, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get item: %w", err)
	}
	return it, nil
}

func (s *Store) ListItemsByBatch(ctx context.Context, batchID string) ([]*models.Item, error) {
	q := querier(ctx, s.pool)
	rows, err := q.Query(ctx, `
		SELECT id, batch_id, file_name, mime_type, storage_key, status, current_step, ocr_text,
			extracted_metadata, cutting_instructions, parsed_parts, is_packet,
			second_pass_status, second_pass_result, adjudicator_status, adjudication_notes,
			final_confidence, auto_approved, requires_human_review, error_message, error_details, temp_files,
			created_at, updated_at
		FROM items WHERE batch_id = $1 ORDER BY created_at`, batchID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: list items: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list items: %w", err)
	}
	return items, nil
}

func (s *Store) UpdateItem(ctx context.Context, it *models.Item) error {
	metadata, instructions, parts, tempFiles, secondPass, err := marshalItemJSON(it)
	if err != nil {
		return fmt.Errorf("postgres: update item: %w", err)
	}

	q := querier(ctx, s.pool)
	tag, err := q.Exec(ctx, `
		UPDATE items SET
			file_name = $2, mime_type = $3, storage_key = $4, status = $5, current_step = $6, ocr_text = $7,
			extracted_metadata = $8, cutting_instructions = $9, parsed_parts = $10, is_packet = $11,
			second_pass_status = $12, second_pass_result = $13, adjudicator_status = $14, adjudication_notes = $15,
			final_confidence = $16, auto_approved = $17, requires_human_review = $18,
			error_message = $19, error_details = $20, temp_files = $21, updated_at = now()
		WHERE id = $1`,
		it.ID, it.FileName, it.MimeType, it.StorageKey, it.Status, it.CurrentStep, it.OCRText,
		metadata, instructions, parts, it.IsPacket,
		it.SecondPassStatus, secondPass, it.AdjudicatorStatus, it.AdjudicationNotes,
		it.FinalConfidence, it.AutoApproved, it.RequiresHumanReview, it.ErrorMessage, it.ErrorDetails, tempFiles)
	if err != nil {
		return fmt.Errorf("postgres: update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// rowScanner abstracts pgx.Row and pgx.Rows, both of which expose Scan.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	it := &models.Item{}
	var metadata, instructions, parts, secondPass, tempFiles []byte

	err := row.Scan(&it.ID, &it.BatchID, &it.FileName, &it.MimeType, &it.StorageKey, &it.Status, &it.CurrentStep, &it.OCRText,
		&metadata, &instructions, &parts, &it.IsPacket,
		&it.SecondPassStatus, &secondPass, &it.AdjudicatorStatus, &it.AdjudicationNotes,
		&it.FinalConfidence, &it.AutoApproved, &it.RequiresHumanReview, &it.ErrorMessage, &it.ErrorDetails, &tempFiles,
		&it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := unmarshalIfPresent(metadata, &it.ExtractedMetadata); err != nil {
		return nil, fmt.Errorf("extracted_metadata: %w", err)
	}
	if len(instructions) > 0 {
		if err := json.Unmarshal(instructions, &it.CuttingInstructions); err != nil {
			return nil, fmt.Errorf("cutting_instructions: %w", err)
		}
	}
	if len(parts) > 0 {
		if err := json.Unmarshal(parts, &it.ParsedParts); err != nil {
			return nil, fmt.Errorf("parsed_parts: %w", err)
		}
	}
	if err := unmarshalIfPresent(secondPass, &it.SecondPassResult); err != nil {
		return nil, fmt.Errorf("second_pass_result: %w", err)
	}
	if len(tempFiles) > 0 {
		if err := json.Unmarshal(tempFiles, &it.TempFiles); err != nil {
			return nil, fmt.Errorf("temp_files: %w", err)
		}
	}
	return it, nil
}

func unmarshalIfPresent(raw []byte, dest **models.ExtractedMetadata) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

func marshalItemJSON(it *models.Item) (metadata, instructions, parts, tempFiles, secondPass []byte, err error) {
	if it.ExtractedMetadata != nil {
		if metadata, err = json.Marshal(it.ExtractedMetadata); err != nil {
			return
		}
	}
	if it.CuttingInstructions != nil {
		if instructions, err = json.Marshal(it.CuttingInstructions); err != nil {
			return
		}
	}
	if it.ParsedParts != nil {
		if parts, err = json.Marshal(it.ParsedParts); err != nil {
			return
		}
	}
	if it.TempFiles != nil {
		if tempFiles, err = json.Marshal(it.TempFiles); err != nil {
			return
		}
	}
	if it.SecondPassResult != nil {
		if secondPass, err = json.Marshal(it.SecondPassResult); err != nil {
			return
		}
	}
	return
}
