package stages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanclarinets/smartupload/internal/models"
	"github.com/artisanclarinets/smartupload/internal/pipeline"
	"github.com/artisanclarinets/smartupload/internal/store/memstore"
)

func TestDisagrees_TitleDiffers(t *testing.T) {
	a := &models.ExtractedMetadata{Title: "Symphony No. 5", Composer: "Beethoven"}
	b := &models.ExtractedMetadata{Title: "Symphony No. 9", Composer: "Beethoven"}
	assert.True(t, Disagrees(a, b))
}

func TestDisagrees_CaseAndWhitespaceInsensitive(t *testing.T) {
	a := &models.ExtractedMetadata{Title: " Bolero ", Composer: "Ravel"}
	b := &models.ExtractedMetadata{Title: "bolero", Composer: "ravel"}
	assert.False(t, Disagrees(a, b))
}

func TestDisagrees_InstrumentSetDiffers(t *testing.T) {
	a := &models.ExtractedMetadata{Title: "X", Composer: "Y", CuttingInstructions: []models.CuttingInstruction{{Instrument: "Flute"}, {Instrument: "Oboe"}}}
	b := &models.ExtractedMetadata{Title: "X", Composer: "Y", CuttingInstructions: []models.CuttingInstruction{{Instrument: "Flute"}}}
	assert.True(t, Disagrees(a, b))
}

func TestDisagrees_InstrumentSetSameIgnoringOrder(t *testing.T) {
	a := &models.ExtractedMetadata{Title: "X", Composer: "Y", CuttingInstructions: []models.CuttingInstruction{{Instrument: "Oboe"}, {Instrument: "Flute"}}}
	b := &models.ExtractedMetadata{Title: "X", Composer: "Y", CuttingInstructions: []models.CuttingInstruction{{Instrument: "Flute"}, {Instrument: "Oboe"}}}
	assert.False(t, Disagrees(a, b))
}

func TestSecondPassVerify_SkippedWhenDisabled(t *testing.T) {
	h := &Handlers{Config: testConfig()}
	h.Config.TwoPassEnabled = false
	item := &models.Item{ExtractedMetadata: &models.ExtractedMetadata{Title: "X"}}
	next, err := h.SecondPassVerify(context.Background(), &models.Batch{}, item)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StageFinalize, next)
	assert.Equal(t, models.SecondPassNone, item.SecondPassStatus)
}

func TestSecondPassVerify_AgreementRoutesToFinalize(t *testing.T) {
	st := memstore.New(nil)
	ctx := context.Background()
	require.NoError(t, st.Upload(ctx, "src.pdf", []byte("doc"), "application/pdf"))

	respJSON := `{"title":"Bolero","composer":"Ravel","fileType":"FULL_SCORE","isMultiPart":false,"verificationConfidence":92,"cuttingInstructions":[{"partName":"Full Score","instrument":"Orchestra","section":"","transposition":"","pageRange":[1,5]}]}`
	h := &Handlers{
		Blobs:      st,
		Renderer:   &fakeRenderer{pageCount: 5},
		Config:     testConfig(),
		Dispatcher: testDispatcher(openAIChatBody(respJSON)),
	}
	item := &models.Item{
		StorageKey: "src.pdf",
		ExtractedMetadata: &models.ExtractedMetadata{
			Title:               "Bolero",
			Composer:            "Ravel",
			CuttingInstructions: []models.CuttingInstruction{{PartName: "Full Score", Instrument: "Orchestra", PageRange: [2]int{1, 5}}},
		},
	}

	next, err := h.SecondPassVerify(ctx, &models.Batch{}, item)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StageFinalize, next)
	require.NotNil(t, item.SecondPassResult)
	assert.Equal(t, models.SecondPassComplete, item.SecondPassStatus)
}

func TestSecondPassVerify_DisagreementRoutesToAdjudicate(t *testing.T) {
	st := memstore.New(nil)
	ctx := context.Background()
	require.NoError(t, st.Upload(ctx, "src.pdf", []byte("doc"), "application/pdf"))

	respJSON := `{"title":"Totally Different","composer":"Ravel","fileType":"FULL_SCORE","isMultiPart":false,"verificationConfidence":92,"cuttingInstructions":[]}`
	h := &Handlers{
		Blobs:      st,
		Renderer:   &fakeRenderer{pageCount: 5},
		Config:     testConfig(),
		Dispatcher: testDispatcher(openAIChatBody(respJSON)),
	}
	item := &models.Item{
		StorageKey:        "src.pdf",
		ExtractedMetadata: &models.ExtractedMetadata{Title: "Bolero", Composer: "Ravel"},
	}

	next, err := h.SecondPassVerify(ctx, &models.Batch{}, item)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StageAdjudicate, next)
}

func TestSecondPassVerify_LowConfidenceRoutesToAdjudicate(t *testing.T) {
	st := memstore.New(nil)
	ctx := context.Background()
	require.NoError(t, st.Upload(ctx, "src.pdf", []byte("doc"), "application/pdf"))

	respJSON := `{"title":"Bolero","composer":"Ravel","fileType":"FULL_SCORE","isMultiPart":false,"verificationConfidence":40,"cuttingInstructions":[]}`
	h := &Handlers{
		Blobs:      st,
		Renderer:   &fakeRenderer{pageCount: 5},
		Config:     testConfig(),
		Dispatcher: testDispatcher(openAIChatBody(respJSON)),
	}
	item := &models.Item{
		StorageKey:        "src.pdf",
		ExtractedMetadata: &models.ExtractedMetadata{Title: "Bolero", Composer: "Ravel"},
	}

	next, err := h.SecondPassVerify(ctx, &models.Batch{}, item)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StageAdjudicate, next)
}
