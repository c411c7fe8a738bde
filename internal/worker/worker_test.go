package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanclarinets/smartupload/internal/models"
	"github.com/artisanclarinets/smartupload/internal/pipeline"
	"github.com/artisanclarinets/smartupload/internal/store"
	"github.com/artisanclarinets/smartupload/internal/store/memstore"
)

func testEngine(t *testing.T, st *memstore.Store, handlerErr error) *pipeline.Engine {
	t.Helper()
	engine := pipeline.New(st, st, st)
	engine.Register(pipeline.StageExtractText, func(ctx context.Context, batch *models.Batch, item *models.Item) (string, error) {
		if handlerErr != nil {
			return "", handlerErr
		}
		item.Status = models.ItemProcessing
		return "", nil
	})
	return engine
}

func seedBatchAndItem(t *testing.T, st *memstore.Store) (*models.Batch, *models.Item) {
	t.Helper()
	ctx := context.Background()
	b := &models.Batch{ID: "b1", TotalFiles: 1}
	require.NoError(t, st.CreateBatch(ctx, b))
	it := &models.Item{ID: "i1", BatchID: "b1"}
	require.NoError(t, st.CreateItem(ctx, it))
	return b, it
}

func TestWorker_PollAndProcess_Success(t *testing.T) {
	st := memstore.New(nil)
	_, _ = seedBatchAndItem(t, st)
	require.NoError(t, st.Enqueue(context.Background(), pipeline.JobName(pipeline.StageExtractText), "b1", "i1", store.DefaultJobQueueOptions()))

	engine := testEngine(t, st, nil)
	w := newWorker("w1", "pod1", st, engine, DefaultConfig())

	err := w.pollAndProcess(context.Background())
	require.NoError(t, err)

	updated, err := st.GetItem(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, models.ItemProcessing, updated.Status)
	assert.Equal(t, 1, w.Health().JobsProcessed)
}

func TestWorker_PollAndProcess_EmptyQueueReturnsSentinel(t *testing.T) {
	st := memstore.New(nil)
	engine := testEngine(t, st, nil)
	w := newWorker("w1", "pod1", st, engine, DefaultConfig())

	err := w.pollAndProcess(context.Background())
	require.ErrorIs(t, err, store.ErrQueueEmpty)
}

func TestWorker_PollAndProcess_HandlerErrorFailsJobNotWorker(t *testing.T) {
	st := memstore.New(nil)
	_, _ = seedBatchAndItem(t, st)
	require.NoError(t, st.Enqueue(context.Background(), pipeline.JobName(pipeline.StageExtractText), "b1", "i1", store.DefaultJobQueueOptions()))

	engine := testEngine(t, st, errors.New("boom"))
	w := newWorker("w1", "pod1", st, engine, DefaultConfig())

	err := w.pollAndProcess(context.Background())
	require.NoError(t, err) // pollAndProcess itself does not propagate handler failures
	assert.Equal(t, 1, w.Health().JobsProcessed)
}

func TestWorker_StartStop(t *testing.T) {
	st := memstore.New(nil)
	engine := testEngine(t, st, nil)
	w := newWorker("w1", "pod1", st, engine, Config{PollInterval: 10 * time.Millisecond})
	w.Start(context.Background())
	w.Stop() // must return promptly, not hang
}
