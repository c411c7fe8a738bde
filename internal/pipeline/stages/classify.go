package stages

import (
	"context"
	"errors"

	"github.com/artisanclarinets/smartupload/internal/cutting"
	"github.com/artisanclarinets/smartupload/internal/models"
	"github.com/artisanclarinets/smartupload/internal/pipeline"
)

var errNoMetadata = errors.New("stages: classify-and-plan invoked with no extracted metadata")

// ClassifyAndPlan turns the metadata pass's raw cutting instructions into a
// validated split plan. Parts >= 2 marks the item a packet (isPacket=true);
// a single part keeps isPacket=false. Either way the item moves to
// NEEDS_REVIEW(SPLIT_PLANNED): if the metadata confidence already clears
// autoApproveThreshold the item is auto-approved and advances immediately;
// otherwise it waits in NEEDS_REVIEW for external approval and the engine
// enqueues nothing further.
func (h *Handlers) ClassifyAndPlan(ctx context.Context, batch *models.Batch, item *models.Item) (string, error) {
	if item.CurrentStep == models.StepSplitPlanned || item.CurrentStep == models.StepSplitComplete || item.CurrentStep == models.StepIngested {
		if item.Status == models.ItemNeedsReview {
			return "", nil
		}
		return h.nextAfterPlan(item)
	}
	if item.ExtractedMetadata == nil {
		return "", pipeline.NewStageError(pipeline.StageClassifyAndPlan, pipeline.KindParseError, errNoMetadata)
	}

	raw, err := h.Blobs.Download(ctx, item.StorageKey)
	if err != nil {
		return "", pipeline.NewStageError(pipeline.StageClassifyAndPlan, pipeline.KindStorageIO, err)
	}
	totalPages, err := h.Renderer.PageCount(ctx, raw)
	if err != nil {
		return "", pipeline.NewStageError(pipeline.StageClassifyAndPlan, pipeline.KindStorageIO, err)
	}

	result := cutting.ValidateAndNormalize(item.ExtractedMetadata.CuttingInstructions, totalPages, cutting.Options{OneIndexed: true})

	item.CuttingInstructions = result.Instructions
	item.IsPacket = len(result.Instructions) > 1
	item.Status = models.ItemNeedsReview
	item.CurrentStep = models.StepSplitPlanned

	if item.ExtractedMetadata.ConfidenceScore >= h.Config.AutoApproveThreshold {
		item.Status = models.ItemApproved
		return h.nextAfterPlan(item)
	}

	return "", nil
}

func (h *Handlers) nextAfterPlan(item *models.Item) (string, error) {
	if item.IsPacket {
		return pipeline.StageSplitPDF, nil
	}
	return pipeline.StageFinalize, nil
}
