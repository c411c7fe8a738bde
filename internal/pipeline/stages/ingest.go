package stages

import (
	"context"
	"fmt"

	"github.com/artisanclarinets/smartupload/internal/models"
	"github.com/artisanclarinets/smartupload/internal/pipeline"
)

// Ingest commits an autonomously approved item to the catalog. It only runs
// when Finalize set AutoApproved (finalConfidence >= the autonomous
// threshold and no human-review flag). The item write and the batch counter
// update share the engine's transaction, so a failure here leaves neither
// half applied.
func (h *Handlers) Ingest(ctx context.Context, batch *models.Batch, item *models.Item) (string, error) {
	if item.CurrentStep == models.StepIngested {
		return "", nil
	}
	if !item.AutoApproved {
		return "", pipeline.NewStageError(pipeline.StageIngest, pipeline.KindQualityGate, fmt.Errorf("item %s not autonomously approved", item.ID))
	}

	item.Status = models.ItemComplete
	item.CurrentStep = models.StepIngested

	batch.ProcessedFiles++
	batch.SuccessFiles++
	if batch.ProcessedFiles >= batch.TotalFiles {
		batch.Status = models.BatchComplete
	}
	if err := h.updateBatch(ctx, batch); err != nil {
		return "", pipeline.NewStageError(pipeline.StageIngest, pipeline.KindDBConflict, err)
	}

	return "", nil
}

func (h *Handlers) updateBatch(ctx context.Context, batch *models.Batch) error {
	if h.Batches == nil {
		return nil
	}
	return h.Batches.UpdateBatch(ctx, batch)
}
