package stages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanclarinets/smartupload/internal/models"
	"github.com/artisanclarinets/smartupload/internal/store/memstore"
)

func TestIngest_CommitsItemAndUpdatesBatchCounters(t *testing.T) {
	st := memstore.New(nil)
	ctx := context.Background()
	require.NoError(t, st.CreateBatch(ctx, &models.Batch{ID: "b1", TotalFiles: 2}))

	h := &Handlers{Batches: st}
	batch, err := st.GetBatch(ctx, "b1")
	require.NoError(t, err)
	item := &models.Item{ID: "i1", BatchID: "b1", AutoApproved: true}

	next, err := h.Ingest(ctx, batch, item)
	require.NoError(t, err)
	assert.Empty(t, next)
	assert.Equal(t, models.ItemComplete, item.Status)
	assert.Equal(t, models.StepIngested, item.CurrentStep)

	updated, err := st.GetBatch(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, updated.ProcessedFiles)
	assert.Equal(t, 1, updated.SuccessFiles)
	assert.NotEqual(t, models.BatchComplete, updated.Status)
}

func TestIngest_CompletesBatchWhenLastItem(t *testing.T) {
	st := memstore.New(nil)
	ctx := context.Background()
	require.NoError(t, st.CreateBatch(ctx, &models.Batch{ID: "b1", TotalFiles: 1}))

	h := &Handlers{Batches: st}
	batch, err := st.GetBatch(ctx, "b1")
	require.NoError(t, err)
	item := &models.Item{ID: "i1", BatchID: "b1", AutoApproved: true}

	_, err = h.Ingest(ctx, batch, item)
	require.NoError(t, err)

	updated, err := st.GetBatch(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.BatchComplete, updated.Status)
}

func TestIngest_RejectsItemNotAutoApproved(t *testing.T) {
	h := &Handlers{}
	item := &models.Item{ID: "i1", AutoApproved: false}
	_, err := h.Ingest(context.Background(), &models.Batch{}, item)
	require.Error(t, err)
}

func TestIngest_IdempotentOnReplay(t *testing.T) {
	h := &Handlers{}
	item := &models.Item{CurrentStep: models.StepIngested}
	next, err := h.Ingest(context.Background(), &models.Batch{}, item)
	require.NoError(t, err)
	assert.Empty(t, next)
}
