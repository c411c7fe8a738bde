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

func TestAdjudicate_ReconcilesAndRoutesToFinalize(t *testing.T) {
	st := memstore.New(nil)
	ctx := context.Background()
	require.NoError(t, st.Upload(ctx, "src.pdf", []byte("doc"), "application/pdf"))

	respJSON := `{"title":"Bolero","composer":"Ravel","fileType":"FULL_SCORE","isMultiPart":false,"finalConfidence":88,"notes":"candidate A was correct","requiresHumanReview":false,"cuttingInstructions":[]}`
	h := &Handlers{
		Blobs:      st,
		Renderer:   &fakeRenderer{pageCount: 5},
		Config:     testConfig(),
		Dispatcher: testDispatcher(openAIChatBody(respJSON)),
	}
	item := &models.Item{
		StorageKey:        "src.pdf",
		ExtractedMetadata: &models.ExtractedMetadata{Title: "Bolero", Composer: "Ravel"},
		SecondPassResult:  &models.ExtractedMetadata{Title: "Bolero Suite", Composer: "Ravel"},
	}

	next, err := h.Adjudicate(ctx, &models.Batch{}, item)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StageFinalize, next)
	assert.Equal(t, models.AdjudicatorComplete, item.AdjudicatorStatus)
	assert.Equal(t, "Bolero", item.ExtractedMetadata.Title)
	assert.Equal(t, 88.0, item.ExtractedMetadata.ConfidenceScore)
	assert.Equal(t, "candidate A was correct", item.AdjudicationNotes)
	assert.False(t, item.RequiresHumanReview)
}

func TestAdjudicate_SetsRequiresHumanReview(t *testing.T) {
	st := memstore.New(nil)
	ctx := context.Background()
	require.NoError(t, st.Upload(ctx, "src.pdf", []byte("doc"), "application/pdf"))

	respJSON := `{"title":"Bolero","composer":"Ravel","fileType":"FULL_SCORE","isMultiPart":false,"finalConfidence":50,"notes":"irreconcilable","requiresHumanReview":true,"cuttingInstructions":[]}`
	h := &Handlers{
		Blobs:      st,
		Renderer:   &fakeRenderer{pageCount: 5},
		Config:     testConfig(),
		Dispatcher: testDispatcher(openAIChatBody(respJSON)),
	}
	item := &models.Item{
		StorageKey:        "src.pdf",
		ExtractedMetadata: &models.ExtractedMetadata{Title: "Bolero", Composer: "Ravel"},
		SecondPassResult:  &models.ExtractedMetadata{Title: "Bolero Suite", Composer: "Ravel"},
	}

	_, err := h.Adjudicate(ctx, &models.Batch{}, item)
	require.NoError(t, err)
	assert.True(t, item.RequiresHumanReview)
}

func TestAdjudicate_IdempotentOnReplay(t *testing.T) {
	h := &Handlers{}
	item := &models.Item{AdjudicatorStatus: models.AdjudicatorComplete}
	next, err := h.Adjudicate(context.Background(), &models.Batch{}, item)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StageFinalize, next)
}
