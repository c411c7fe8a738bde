package stages

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/artisanclarinets/smartupload/internal/models"
	"github.com/artisanclarinets/smartupload/internal/pipeline"
)

var slugDisallowed = regexp.MustCompile(`[^a-z0-9-]+`)

// slugify lowercases a part name and strips everything but alphanumerics
// and dashes, for use in a storage key.
func slugify(partName string) string {
	s := strings.ToLower(strings.TrimSpace(partName))
	s = strings.ReplaceAll(s, " ", "-")
	s = slugDisallowed.ReplaceAllString(s, "")
	s = strings.Trim(s, "-")
	if s == "" {
		s = "part"
	}
	return s
}

// SplitPDF applies the validated cutting plan via the black-box splitter,
// uploads each output part, and assembles parsedParts with deterministic
// slug-based storage keys. When a part upload fails it deletes every part
// blob already written this attempt before surfacing the STORAGE_IO error;
// the engine does not enqueue CLEANUP for a STORAGE_IO failure.
func (h *Handlers) SplitPDF(ctx context.Context, batch *models.Batch, item *models.Item) (string, error) {
	if item.CurrentStep == models.StepSplitComplete && len(item.ParsedParts) > 0 {
		return pipeline.StageSecondPassVerify, nil
	}

	raw, err := h.Blobs.Download(ctx, item.StorageKey)
	if err != nil {
		return "", pipeline.NewStageError(pipeline.StageSplitPDF, pipeline.KindStorageIO, err)
	}

	ranges := make([]SplitRange, 0, len(item.CuttingInstructions))
	for _, ci := range item.CuttingInstructions {
		ranges = append(ranges, SplitRange{Instrument: ci.Instrument, PartName: ci.PartName, PageRange: ci.PageRange})
	}

	outputs, err := h.Splitter.Split(ctx, raw, ranges)
	if err != nil {
		return "", pipeline.NewStageError(pipeline.StageSplitPDF, pipeline.KindStorageIO, fmt.Errorf("split: %w", err))
	}

	var written []string
	parts := make([]models.ParsedPart, 0, len(outputs))
	for i, out := range outputs {
		slug := slugify(out.PartName)
		key := fmt.Sprintf("smart-upload/%s/parts/%s.pdf", item.ID, slug)

		if err := h.Blobs.Upload(ctx, key, out.Data, "application/pdf"); err != nil {
			h.rollbackWrites(ctx, written)
			return "", pipeline.NewStageError(pipeline.StageSplitPDF, pipeline.KindStorageIO, fmt.Errorf("upload part %q: %w", out.PartName, err))
		}
		written = append(written, key)

		src := item.CuttingInstructions[i]
		parts = append(parts, models.ParsedPart{
			PartName:      out.PartName,
			Instrument:    src.Instrument,
			Section:       src.Section,
			Transposition: src.Transposition,
			PartNumber:    src.PartNumber,
			StorageKey:    key,
			FileName:      slug + ".pdf",
			FileSize:      int64(len(out.Data)),
			PageCount:     out.PageCount,
			PageRange:     out.PageRange,
		})
	}

	item.ParsedParts = parts
	item.TempFiles = append(item.TempFiles, written...)
	item.Status = models.ItemProcessing
	item.CurrentStep = models.StepSplitComplete
	return pipeline.StageSecondPassVerify, nil
}

func (h *Handlers) rollbackWrites(ctx context.Context, keys []string) {
	for _, k := range keys {
		if err := h.Blobs.Delete(ctx, k); err != nil {
			// Best-effort: a failed delete is neither logged nor retried
			// (spec.md open question #2).
			_ = err
		}
	}
}
