package stages

import (
	"context"
	"errors"
	"fmt"

	"github.com/artisanclarinets/smartupload/internal/jsonutil"
	"github.com/artisanclarinets/smartupload/internal/llm"
	"github.com/artisanclarinets/smartupload/internal/llm/providers"
	"github.com/artisanclarinets/smartupload/internal/models"
	"github.com/artisanclarinets/smartupload/internal/pipeline"
)

const metadataSystemPrompt = `You are a music librarian. Given the pages of a score, return a single JSON object describing it: {"title":string,"composer":string,"fileType":"FULL_SCORE"|"CONDUCTOR_SCORE"|"CONDENSED_SCORE"|"PART"|"OTHER","isMultiPart":bool,"confidenceScore":number,"segmentationConfidence":number,"cuttingInstructions":[{"partName":string,"instrument":string,"section":string,"transposition":string,"pageRange":[start,end]}]}. Respond with JSON only.`

type metadataLLMResponse struct {
	Title                  string                     `json:"title"`
	Composer               string                     `json:"composer"`
	FileType               string                     `json:"fileType"`
	IsMultiPart            bool                       `json:"isMultiPart"`
	ConfidenceScore        float64                    `json:"confidenceScore"`
	SegmentationConfidence *float64                   `json:"segmentationConfidence"`
	CuttingInstructions    []cuttingInstructionWire   `json:"cuttingInstructions"`
}

type cuttingInstructionWire struct {
	PartName      string `json:"partName"`
	Instrument    string `json:"instrument"`
	Section       string `json:"section"`
	Transposition string `json:"transposition"`
	PartNumber    *int   `json:"partNumber"`
	PageRange     [2]int `json:"pageRange"`
}

func toModelInstructions(wire []cuttingInstructionWire) []models.CuttingInstruction {
	out := make([]models.CuttingInstruction, 0, len(wire))
	for _, w := range wire {
		out = append(out, models.CuttingInstruction{
			PartName:      w.PartName,
			Instrument:    w.Instrument,
			Section:       w.Section,
			Transposition: w.Transposition,
			PartNumber:    w.PartNumber,
			PageRange:     w.PageRange,
		})
	}
	return out
}

// ExtractMetadata invokes the vision model on rendered pages of the
// document and parses the JSON response leniently (spec.md §4.8).
func (h *Handlers) ExtractMetadata(ctx context.Context, batch *models.Batch, item *models.Item) (string, error) {
	if item.CurrentStep == models.StepMetadataExtracted && item.ExtractedMetadata != nil {
		return pipeline.StageClassifyAndPlan, nil
	}

	raw, err := h.Blobs.Download(ctx, item.StorageKey)
	if err != nil {
		return "", pipeline.NewStageError(pipeline.StageLLMExtractMetadata, pipeline.KindStorageIO, err)
	}

	pageCount, err := h.Renderer.PageCount(ctx, raw)
	if err != nil {
		return "", pipeline.NewStageError(pipeline.StageLLMExtractMetadata, pipeline.KindStorageIO, fmt.Errorf("page count: %w", err))
	}
	pages := evenlySample(pageCount, 20)

	images, mime, err := h.Renderer.RenderPages(ctx, raw, pages)
	if err != nil {
		return "", pipeline.NewStageError(pipeline.StageLLMExtractMetadata, pipeline.KindStorageIO, fmt.Errorf("render pages: %w", err))
	}

	labeled := make([]providers.LabeledImage, 0, len(images))
	for i, img := range images {
		labeled = append(labeled, providers.LabeledImage{Label: fmt.Sprintf("page %d", pages[i]), MimeType: mime, Data: img})
	}

	cfg := h.Config.AdapterConfigFor(h.Config.Provider)
	cfg.Model = h.Config.VisionModel

	resp, err := h.Dispatcher.CallVisionModel(ctx, cfg, providers.Request{
		System:         metadataSystemPrompt,
		Images:         labeled,
		ResponseFormat: "json_object",
		MaxTokens:      4096,
		Temperature:    0,
		ModelParams:    h.Config.VisionModelParams,
	})
	if err != nil {
		return "", mapLLMError(pipeline.StageLLMExtractMetadata, err)
	}

	var wire metadataLLMResponse
	if err := jsonutil.ExtractObject(resp.Content, &wire); err != nil {
		return "", pipeline.NewStageError(pipeline.StageLLMExtractMetadata, pipeline.KindParseError, err)
	}

	meta := &models.ExtractedMetadata{
		Title:               wire.Title,
		Composer:            wire.Composer,
		FileType:            models.FileType(wire.FileType),
		IsMultiPart:         wire.IsMultiPart,
		ConfidenceScore:     jsonutil.NormalizeConfidence(wire.ConfidenceScore),
		CuttingInstructions: toModelInstructions(wire.CuttingInstructions),
	}
	if wire.SegmentationConfidence != nil {
		v := jsonutil.NormalizeConfidence(*wire.SegmentationConfidence)
		meta.SegmentationConfidence = &v
	}

	// Boundary case (spec.md §8): empty cuttingInstructions + FULL_SCORE +
	// short document synthesizes a single covering instruction.
	if len(meta.CuttingInstructions) == 0 && meta.FileType == models.FileTypeFullScore && pageCount <= 30 {
		meta.CuttingInstructions = []models.CuttingInstruction{{PartName: "Full Score", PageRange: [2]int{1, pageCount}}}
	}

	item.ExtractedMetadata = meta
	item.Status = models.ItemProcessing
	item.CurrentStep = models.StepMetadataExtracted
	return pipeline.StageClassifyAndPlan, nil
}

// evenlySample returns up to n page numbers (1-indexed) spread evenly
// across [1, total], used for both metadata extraction and second-pass
// verification sampling (spec.md §4.8 "pages sampled evenly up to 100").
func evenlySample(total, n int) []int {
	if total <= 0 {
		return nil
	}
	if total <= n {
		pages := make([]int, total)
		for i := range pages {
			pages[i] = i + 1
		}
		return pages
	}
	pages := make([]int, 0, n)
	step := float64(total-1) / float64(n-1)
	for i := 0; i < n; i++ {
		p := int(float64(i)*step) + 1
		if len(pages) == 0 || pages[len(pages)-1] != p {
			pages = append(pages, p)
		}
	}
	return pages
}

// mapLLMError translates an llm.CallError's Kind onto the pipeline error
// taxonomy so stage handlers share one classification scheme end to end.
func mapLLMError(stage string, err error) error {
	var ce *llm.CallError
	if errors.As(err, &ce) {
		switch ce.Kind {
		case llm.KindTimeout:
			return pipeline.NewStageError(stage, pipeline.KindTimeout, err)
		case llm.KindBadRequest:
			return pipeline.NewStageError(stage, pipeline.KindBadRequest, err)
		case llm.KindMissingKey:
			return pipeline.NewStageError(stage, pipeline.KindMissingKey, err)
		case llm.KindCancelled:
			return pipeline.NewStageError(stage, pipeline.KindCancelled, err)
		default:
			return pipeline.NewStageError(stage, pipeline.KindTransientLLM, err)
		}
	}
	return pipeline.NewStageError(stage, pipeline.KindTransientLLM, err)
}
