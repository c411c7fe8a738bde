package stages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanclarinets/smartupload/internal/models"
	"github.com/artisanclarinets/smartupload/internal/store/memstore"
)

func TestCleanup_DeletesAllBlobsAndMarksCancelled(t *testing.T) {
	st := memstore.New(nil)
	ctx := context.Background()
	require.NoError(t, st.Upload(ctx, "temp1.pdf", []byte("x"), "application/pdf"))
	require.NoError(t, st.Upload(ctx, "part1.pdf", []byte("y"), "application/pdf"))
	require.NoError(t, st.CreateBatch(ctx, &models.Batch{ID: "b1", TotalFiles: 1}))

	h := &Handlers{Blobs: st, Batches: st}
	batch, err := st.GetBatch(ctx, "b1")
	require.NoError(t, err)
	item := &models.Item{
		ID:          "i1",
		BatchID:     "b1",
		TempFiles:   []string{"temp1.pdf"},
		ParsedParts: []models.ParsedPart{{StorageKey: "part1.pdf"}},
	}

	next, err := h.Cleanup(ctx, batch, item)
	require.NoError(t, err)
	assert.Empty(t, next)
	assert.Equal(t, models.ItemCancelled, item.Status)
	assert.Empty(t, item.TempFiles)
	assert.Empty(t, item.CurrentStep)

	_, err = st.Download(ctx, "temp1.pdf")
	assert.Error(t, err)
	_, err = st.Download(ctx, "part1.pdf")
	assert.Error(t, err)

	updated, err := st.GetBatch(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, updated.FailedFiles)
}

func TestCleanup_PreservesFailedStatus(t *testing.T) {
	st := memstore.New(nil)
	h := &Handlers{Blobs: st}
	item := &models.Item{Status: models.ItemFailed}
	_, err := h.Cleanup(context.Background(), nil, item)
	require.NoError(t, err)
	assert.Equal(t, models.ItemFailed, item.Status)
}

func TestCleanup_BestEffortIgnoresDeleteErrors(t *testing.T) {
	st := memstore.New(nil)
	h := &Handlers{Blobs: st}
	item := &models.Item{TempFiles: []string{"nonexistent.pdf"}}
	_, err := h.Cleanup(context.Background(), nil, item)
	require.NoError(t, err)
}

func TestCleanup_ReplayOnAlreadyTerminalItemDoesNotDoubleCountBatch(t *testing.T) {
	st := memstore.New(nil)
	ctx := context.Background()
	require.NoError(t, st.CreateBatch(ctx, &models.Batch{ID: "b1", TotalFiles: 2}))

	h := &Handlers{Blobs: st, Batches: st}
	batch, err := st.GetBatch(ctx, "b1")
	require.NoError(t, err)
	item := &models.Item{ID: "i1", BatchID: "b1", Status: models.ItemCancelled}

	_, err = h.Cleanup(ctx, batch, item)
	require.NoError(t, err)

	updated, err := st.GetBatch(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 0, updated.ProcessedFiles)
	assert.Equal(t, 0, updated.FailedFiles)
}
