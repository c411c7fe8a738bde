package stages

import (
	"context"
	"log/slog"

	"github.com/artisanclarinets/smartupload/internal/models"
)

// Cleanup deletes every temp/part blob an item accumulated and marks it
// CANCELLED or FAILED. Blob deletion is best-effort: a storage error is
// logged, not retried and not propagated, so a flaky object store can never
// wedge an item in CLEANUP forever.
func (h *Handlers) Cleanup(ctx context.Context, batch *models.Batch, item *models.Item) (string, error) {
	log := slog.With("item_id", item.ID, "batch_id", item.BatchID)

	for _, key := range item.TempFiles {
		if err := h.Blobs.Delete(ctx, key); err != nil {
			log.Warn("cleanup: failed to delete blob", "key", key, "error", err)
		}
	}
	for _, p := range item.ParsedParts {
		if err := h.Blobs.Delete(ctx, p.StorageKey); err != nil {
			log.Warn("cleanup: failed to delete part blob", "key", p.StorageKey, "error", err)
		}
	}

	alreadyTerminal := item.Status == models.ItemFailed || item.Status == models.ItemCancelled

	item.TempFiles = nil
	item.CurrentStep = ""
	if item.Status != models.ItemFailed {
		item.Status = models.ItemCancelled
	}

	if batch != nil && !alreadyTerminal {
		batch.ProcessedFiles++
		batch.FailedFiles++
		if batch.ProcessedFiles >= batch.TotalFiles {
			batch.Status = models.BatchFailed
			if batch.SuccessFiles > 0 {
				batch.Status = models.BatchNeedsReview
			}
		}
		if err := h.updateBatch(ctx, batch); err != nil {
			log.Error("cleanup: failed to update batch counters", "error", err)
		}
	}

	return "", nil
}
