package stages

import (
	"context"
	"fmt"

	"github.com/artisanclarinets/smartupload/internal/models"
	"github.com/artisanclarinets/smartupload/internal/pipeline"
)

// ExtractText downloads the source blob and runs it through the black-box
// text extractor, persisting ocrText. Fails with STORAGE_IO if the blob is
// missing, or PARSE_ERROR if a non-empty PDF yields zero bytes of text.
func (h *Handlers) ExtractText(ctx context.Context, batch *models.Batch, item *models.Item) (string, error) {
	if item.CurrentStep == models.StepTextExtracted || item.OCRText != "" {
		return pipeline.StageLLMExtractMetadata, nil
	}

	data, err := h.Blobs.Download(ctx, item.StorageKey)
	if err != nil {
		return "", pipeline.NewStageError(pipeline.StageExtractText, pipeline.KindStorageIO, fmt.Errorf("download %s: %w", item.StorageKey, err))
	}
	if len(data) == 0 {
		return "", pipeline.NewStageError(pipeline.StageExtractText, pipeline.KindStorageIO, fmt.Errorf("blob %s is empty", item.StorageKey))
	}

	text, err := h.Extractor.ExtractText(ctx, data)
	if err != nil {
		return "", pipeline.NewStageError(pipeline.StageExtractText, pipeline.KindParseError, fmt.Errorf("extract text: %w", err))
	}
	if text == "" {
		return "", pipeline.NewStageError(pipeline.StageExtractText, pipeline.KindParseError, fmt.Errorf("extracted zero bytes of text from non-empty PDF"))
	}

	item.OCRText = text
	item.Status = models.ItemProcessing
	item.CurrentStep = models.StepTextExtracted
	return pipeline.StageLLMExtractMetadata, nil
}
