package stages

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/artisanclarinets/smartupload/internal/jsonutil"
	"github.com/artisanclarinets/smartupload/internal/llm/providers"
	"github.com/artisanclarinets/smartupload/internal/models"
	"github.com/artisanclarinets/smartupload/internal/pipeline"
)

const verifySystemPrompt = `You are verifying a previous classification of a music score. Examine the pages and labeled parts provided and return JSON: {"title":string,"composer":string,"fileType":string,"isMultiPart":bool,"cuttingInstructions":[{"partName":string,"instrument":string,"section":string,"transposition":string,"pageRange":[start,end]}],"verificationConfidence":number}. Respond with JSON only.`

type verifyLLMResponse struct {
	metadataLLMResponse
	VerificationConfidence float64 `json:"verificationConfidence"`
}

const verificationConfidenceAdjudicationFloor = 85.0
const maxSampledParts = 3
const maxNativeSamplePages = 100

// SecondPassVerify re-submits the document (sampled pages) alongside up to
// three randomly sampled already-split parts and compares the echoed
// metadata against the first pass, per spec.md §4.8.
func (h *Handlers) SecondPassVerify(ctx context.Context, batch *models.Batch, item *models.Item) (string, error) {
	if !h.Config.TwoPassEnabled {
		item.SecondPassStatus = models.SecondPassNone
		return pipeline.StageFinalize, nil
	}
	if item.SecondPassStatus == models.SecondPassComplete && item.SecondPassResult != nil {
		return h.nextAfterVerify(item)
	}

	raw, err := h.Blobs.Download(ctx, item.StorageKey)
	if err != nil {
		return "", pipeline.NewStageError(pipeline.StageSecondPassVerify, pipeline.KindStorageIO, err)
	}
	totalPages, err := h.Renderer.PageCount(ctx, raw)
	if err != nil {
		return "", pipeline.NewStageError(pipeline.StageSecondPassVerify, pipeline.KindStorageIO, err)
	}

	pages := evenlySample(totalPages, maxNativeSamplePages)
	images, mime, err := h.Renderer.RenderPages(ctx, raw, pages)
	if err != nil {
		return "", pipeline.NewStageError(pipeline.StageSecondPassVerify, pipeline.KindStorageIO, err)
	}

	labeled := make([]providers.LabeledImage, 0, len(images)+maxSampledParts)
	for i, img := range images {
		labeled = append(labeled, providers.LabeledImage{Label: fmt.Sprintf("page %d", pages[i]), MimeType: mime, Data: img})
	}

	sampledParts := sampleParts(item.ParsedParts, maxSampledParts, h.rng())
	for _, p := range sampledParts {
		data, err := h.Blobs.Download(ctx, p.StorageKey)
		if err != nil {
			continue // best-effort sampling; missing part blob doesn't abort verification
		}
		labeled = append(labeled, providers.LabeledImage{Label: "part: " + p.PartName, MimeType: "application/pdf", Data: data})
	}

	cfg := h.Config.AdapterConfigFor(h.Config.Provider)
	cfg.Model = h.Config.VerificationModel

	resp, err := h.Dispatcher.CallVisionModel(ctx, cfg, providers.Request{
		System:         verifySystemPrompt,
		Images:         labeled,
		ResponseFormat: "json_object",
		MaxTokens:      4096,
		ModelParams:    h.Config.VerificationModelParams,
	})
	if err != nil {
		return "", mapLLMError(pipeline.StageSecondPassVerify, err)
	}

	var wire verifyLLMResponse
	if err := jsonutil.ExtractObject(resp.Content, &wire); err != nil {
		return "", pipeline.NewStageError(pipeline.StageSecondPassVerify, pipeline.KindParseError, err)
	}

	verConf := jsonutil.NormalizeConfidence(wire.VerificationConfidence)
	result := &models.ExtractedMetadata{
		Title:                  wire.Title,
		Composer:               wire.Composer,
		FileType:               models.FileType(wire.FileType),
		IsMultiPart:            wire.IsMultiPart,
		CuttingInstructions:    toModelInstructions(wire.CuttingInstructions),
		VerificationConfidence: &verConf,
	}

	item.SecondPassResult = result
	item.SecondPassStatus = models.SecondPassComplete
	return h.nextAfterVerify(item)
}

func (h *Handlers) nextAfterVerify(item *models.Item) (string, error) {
	if needsAdjudication(item) {
		return pipeline.StageAdjudicate, nil
	}
	return pipeline.StageFinalize, nil
}

// needsAdjudication applies spec.md §4.8's three triggers: a disagreement,
// low verification confidence, or an empty/forbidden-only second pass.
func needsAdjudication(item *models.Item) bool {
	if item.SecondPassResult == nil || item.ExtractedMetadata == nil {
		return false
	}
	if Disagrees(item.ExtractedMetadata, item.SecondPassResult) {
		return true
	}
	if item.SecondPassResult.VerificationConfidence != nil && *item.SecondPassResult.VerificationConfidence < verificationConfidenceAdjudicationFloor {
		return true
	}
	if onlyForbiddenOrEmpty(item.SecondPassResult.CuttingInstructions) {
		return true
	}
	return false
}

// Disagrees implements spec.md §4.8 disagreement detection: critical
// disagreement iff title differs, composer differs, or the sorted
// comma-joined instrument set differs (all case-insensitive, trimmed).
func Disagrees(first, second *models.ExtractedMetadata) bool {
	if !strings.EqualFold(strings.TrimSpace(first.Title), strings.TrimSpace(second.Title)) {
		return true
	}
	if !strings.EqualFold(strings.TrimSpace(first.Composer), strings.TrimSpace(second.Composer)) {
		return true
	}
	return instrumentSetKey(first.CuttingInstructions) != instrumentSetKey(second.CuttingInstructions)
}

func instrumentSetKey(instructions []models.CuttingInstruction) string {
	instruments := make([]string, 0, len(instructions))
	for _, ci := range instructions {
		instruments = append(instruments, strings.ToLower(strings.TrimSpace(ci.Instrument)))
	}
	sort.Strings(instruments)
	return strings.Join(instruments, ",")
}

func onlyForbiddenOrEmpty(instructions []models.CuttingInstruction) bool {
	if len(instructions) == 0 {
		return true
	}
	forbidden := map[string]struct{}{}
	for _, l := range []string{"unknown", "n/a", "untitled", "score", "music", "page", "blank", "cover", "title", "index", ""} {
		forbidden[l] = struct{}{}
	}
	for _, ci := range instructions {
		if _, bad := forbidden[strings.ToLower(strings.TrimSpace(ci.PartName))]; !bad {
			return false
		}
	}
	return true
}

func sampleParts(parts []models.ParsedPart, n int, rng interface{ Intn(int) int }) []models.ParsedPart {
	if len(parts) <= n {
		return parts
	}
	idx := rng.Intn(len(parts))
	out := make([]models.ParsedPart, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, parts[(idx+i)%len(parts)])
	}
	return out
}
