package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanclarinets/smartupload/internal/pipeline"
	"github.com/artisanclarinets/smartupload/internal/store"
	"github.com/artisanclarinets/smartupload/internal/store/memstore"
)

func TestPool_StartStop_Graceful(t *testing.T) {
	st := memstore.New(nil)
	engine := testEngine(t, st, nil)
	p := New("pod1", st, engine, Config{WorkerCount: 2, PollInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	h := p.Health()
	assert.Equal(t, 2, h.TotalWorkers)
	assert.True(t, h.IsHealthy)

	p.Stop() // must return without hanging
}

func TestPool_StartTwiceIsNoop(t *testing.T) {
	st := memstore.New(nil)
	engine := testEngine(t, st, nil)
	p := New("pod1", st, engine, Config{WorkerCount: 1, PollInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	p.Start(ctx)
	assert.Len(t, p.workers, 1)

	p.Stop()
}

func TestPool_ReapOnceUpdatesMetrics(t *testing.T) {
	st := memstore.New(nil)
	engine := testEngine(t, st, nil)
	p := New("pod1", st, engine, DefaultConfig())

	require.NoError(t, st.Enqueue(context.Background(), pipeline.JobName(pipeline.StageExtractText), "b1", "i1", store.DefaultJobQueueOptions()))
	_, err := st.Claim(context.Background(), "stale-worker")
	require.NoError(t, err)

	p.reapOnce(context.Background())
	h := p.Health()
	assert.False(t, h.LastOrphanScan.IsZero())
}
