package stages

import (
	"context"

	"github.com/artisanclarinets/smartupload/internal/cutting"
	"github.com/artisanclarinets/smartupload/internal/models"
	"github.com/artisanclarinets/smartupload/internal/pipeline"
)

// maxAcceptableGapPages is the largest uncovered-page gap a multi-part item
// can carry and still be eligible for autonomous approval (spec.md §4.8).
const maxAcceptableGapPages = 10

// Finalize applies gap-filling (C5, synthesizing "Uncovered pages X-Y"
// instructions) and the quality gates (C6), computing finalConfidence. A
// gate failure is reported as a KindQualityGate StageError, which the engine
// treats as a successful routing decision to NEEDS_REVIEW rather than a hard
// failure (spec.md §7).
func (h *Handlers) Finalize(ctx context.Context, batch *models.Batch, item *models.Item) (string, error) {
	if item.FinalConfidence != nil {
		return h.nextAfterFinalize(item)
	}
	if item.ExtractedMetadata == nil {
		return "", pipeline.NewStageError(pipeline.StageFinalize, pipeline.KindParseError, errNoMetadata)
	}

	totalPages := 0
	for _, p := range item.ParsedParts {
		if p.PageRange[1]+1 > totalPages {
			totalPages = p.PageRange[1] + 1
		}
	}
	for _, ci := range item.CuttingInstructions {
		if ci.PageRange[1]+1 > totalPages {
			totalPages = ci.PageRange[1] + 1
		}
	}

	instructions := item.CuttingInstructions
	if item.IsPacket && totalPages > 0 {
		result := cutting.ValidateAndNormalize(instructions, totalPages, cutting.Options{DetectGaps: true})
		instructions = result.Instructions
		item.CuttingInstructions = instructions
		if gap := cutting.MaxGapLength(result.Gaps); gap > maxAcceptableGapPages {
			item.RequiresHumanReview = true
		}
	}

	maxPages := h.Config.MaxPagesPerPart
	gate := cutting.EvaluateQualityGates(cutting.GateInput{
		ParsedParts:            item.ParsedParts,
		Metadata:               item.ExtractedMetadata,
		TotalPages:             totalPages,
		MaxPagesPerPart:        maxPages,
		SegmentationConfidence: item.ExtractedMetadata.SegmentationConfidence,
	})

	finalConf := gate.FinalConfidence
	item.FinalConfidence = &finalConf

	if gate.Failed {
		item.RequiresHumanReview = true
		item.Status = models.ItemNeedsReview
		item.ErrorDetails = joinReasons(gate.Reasons)
		return "", pipeline.NewStageError(pipeline.StageFinalize, pipeline.KindQualityGate, errQualityGateFailed(gate.Reasons))
	}

	return h.nextAfterFinalize(item)
}

func (h *Handlers) nextAfterFinalize(item *models.Item) (string, error) {
	if item.RequiresHumanReview {
		item.Status = models.ItemNeedsReview
		return "", nil
	}
	if h.Config.AutonomousMode && item.FinalConfidence != nil && *item.FinalConfidence >= h.Config.AutonomousApprovalThreshold {
		item.AutoApproved = true
		return pipeline.StageIngest, nil
	}
	item.Status = models.ItemNeedsReview
	return "", nil
}

func joinReasons(reasons []string) string {
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += "; "
		}
		out += r
	}
	return out
}

type qualityGateError struct {
	reasons []string
}

func (e *qualityGateError) Error() string {
	return "quality gates failed: " + joinReasons(e.reasons)
}

func errQualityGateFailed(reasons []string) error {
	return &qualityGateError{reasons: reasons}
}
