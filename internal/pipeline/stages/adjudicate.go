package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/artisanclarinets/smartupload/internal/jsonutil"
	"github.com/artisanclarinets/smartupload/internal/llm/providers"
	"github.com/artisanclarinets/smartupload/internal/models"
	"github.com/artisanclarinets/smartupload/internal/pipeline"
)

const adjudicateSystemPrompt = `You are adjudicating between two conflicting classifications of the same music score, candidate A and candidate B, given pages of the document. Decide which is correct, or merge them, and return JSON: {"title":string,"composer":string,"fileType":string,"isMultiPart":bool,"cuttingInstructions":[{"partName":string,"instrument":string,"section":string,"transposition":string,"pageRange":[start,end]}],"finalConfidence":number,"notes":string,"requiresHumanReview":bool}. Respond with JSON only.`

const maxAdjudicationPages = 20

type adjudicateLLMResponse struct {
	metadataLLMResponse
	FinalConfidence     float64 `json:"finalConfidence"`
	Notes               string  `json:"notes"`
	RequiresHumanReview bool    `json:"requiresHumanReview"`
}

// Adjudicate is invoked when SecondPassVerify detects a disagreement, a low
// verification confidence, or an empty/forbidden-only second pass (spec.md
// §4.8). It sends both candidate metadata objects plus evenly sampled pages
// to the adjudicator model and persists a single reconciled result.
func (h *Handlers) Adjudicate(ctx context.Context, batch *models.Batch, item *models.Item) (string, error) {
	if item.AdjudicatorStatus == models.AdjudicatorComplete {
		return pipeline.StageFinalize, nil
	}
	if item.ExtractedMetadata == nil || item.SecondPassResult == nil {
		return "", pipeline.NewStageError(pipeline.StageAdjudicate, pipeline.KindParseError, errNoMetadata)
	}

	raw, err := h.Blobs.Download(ctx, item.StorageKey)
	if err != nil {
		return "", pipeline.NewStageError(pipeline.StageAdjudicate, pipeline.KindStorageIO, err)
	}
	totalPages, err := h.Renderer.PageCount(ctx, raw)
	if err != nil {
		return "", pipeline.NewStageError(pipeline.StageAdjudicate, pipeline.KindStorageIO, err)
	}
	pages := evenlySample(totalPages, maxAdjudicationPages)
	images, mime, err := h.Renderer.RenderPages(ctx, raw, pages)
	if err != nil {
		return "", pipeline.NewStageError(pipeline.StageAdjudicate, pipeline.KindStorageIO, err)
	}

	candidateA, err := json.Marshal(toCandidateWire(item.ExtractedMetadata))
	if err != nil {
		return "", pipeline.NewStageError(pipeline.StageAdjudicate, pipeline.KindParseError, err)
	}
	candidateB, err := json.Marshal(toCandidateWire(item.SecondPassResult))
	if err != nil {
		return "", pipeline.NewStageError(pipeline.StageAdjudicate, pipeline.KindParseError, err)
	}

	labeled := make([]providers.LabeledImage, 0, len(images)+2)
	labeled = append(labeled, providers.LabeledImage{Label: "candidate A", MimeType: "application/json", Data: candidateA})
	labeled = append(labeled, providers.LabeledImage{Label: "candidate B", MimeType: "application/json", Data: candidateB})
	for i, img := range images {
		labeled = append(labeled, providers.LabeledImage{Label: fmt.Sprintf("page %d", pages[i]), MimeType: mime, Data: img})
	}

	cfg := h.Config.AdapterConfigFor(h.Config.Provider)
	cfg.Model = h.Config.AdjudicatorModel

	resp, err := h.Dispatcher.CallVisionModel(ctx, cfg, providers.Request{
		System:         adjudicateSystemPrompt,
		Images:         labeled,
		ResponseFormat: "json_object",
		MaxTokens:      4096,
		ModelParams:    h.Config.AdjudicatorModelParams,
	})
	if err != nil {
		return "", mapLLMError(pipeline.StageAdjudicate, err)
	}

	var wire adjudicateLLMResponse
	if err := jsonutil.ExtractObject(resp.Content, &wire); err != nil {
		return "", pipeline.NewStageError(pipeline.StageAdjudicate, pipeline.KindParseError, err)
	}

	finalConf := jsonutil.NormalizeConfidence(wire.FinalConfidence)
	item.ExtractedMetadata = &models.ExtractedMetadata{
		Title:               wire.Title,
		Composer:            wire.Composer,
		FileType:            models.FileType(wire.FileType),
		IsMultiPart:         wire.IsMultiPart,
		ConfidenceScore:     finalConf,
		CuttingInstructions: toModelInstructions(wire.CuttingInstructions),
	}
	item.AdjudicationNotes = wire.Notes
	item.AdjudicatorStatus = models.AdjudicatorComplete
	item.RequiresHumanReview = item.RequiresHumanReview || wire.RequiresHumanReview

	return pipeline.StageFinalize, nil
}

func toCandidateWire(m *models.ExtractedMetadata) map[string]any {
	instruments := make([]string, 0, len(m.CuttingInstructions))
	for _, ci := range m.CuttingInstructions {
		instruments = append(instruments, ci.Instrument)
	}
	return map[string]any{
		"title":       m.Title,
		"composer":    m.Composer,
		"fileType":    m.FileType,
		"isMultiPart": m.IsMultiPart,
		"instruments": instruments,
	}
}
