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

func TestSlugify(t *testing.T) {
	assert.Equal(t, "bb-clarinet-1", slugify("Bb Clarinet 1"))
	assert.Equal(t, "part", slugify("???"))
}

func TestSplitPDF_WritesPartsAndAdvances(t *testing.T) {
	st := memstore.New(nil)
	ctx := context.Background()
	require.NoError(t, st.Upload(ctx, "src.pdf", []byte("source-pdf"), "application/pdf"))

	h := &Handlers{Blobs: st, Splitter: fakeSplitter{}}
	item := &models.Item{
		ID:         "item1",
		StorageKey: "src.pdf",
		CuttingInstructions: []models.CuttingInstruction{
			{PartName: "Flute", Instrument: "Flute", PageRange: [2]int{0, 2}},
			{PartName: "Oboe", Instrument: "Oboe", PageRange: [2]int{3, 5}},
		},
	}

	next, err := h.SplitPDF(ctx, &models.Batch{}, item)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StageSecondPassVerify, next)
	require.Len(t, item.ParsedParts, 2)
	assert.Equal(t, "Flute", item.ParsedParts[0].PartName)
	assert.Equal(t, models.StepSplitComplete, item.CurrentStep)
	assert.Len(t, item.TempFiles, 2)

	data, err := st.Download(ctx, item.ParsedParts[0].StorageKey)
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes-Flute", string(data))
}

func TestSplitPDF_IdempotentOnReplay(t *testing.T) {
	st := memstore.New(nil)
	ctx := context.Background()
	h := &Handlers{Blobs: st, Splitter: fakeSplitter{}}
	item := &models.Item{
		ID:          "item1",
		CurrentStep: models.StepSplitComplete,
		ParsedParts: []models.ParsedPart{{PartName: "Flute"}},
	}
	next, err := h.SplitPDF(ctx, &models.Batch{}, item)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StageSecondPassVerify, next)
}
