package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// orphanState tracks orphan-reaping metrics, read by Pool.Health.
type orphanState struct {
	mu       sync.Mutex
	lastScan time.Time
	reaped   int
}

// runOrphanDetection periodically calls store.JobQueue.ReapStale, which
// returns jobs whose claiming worker went silent past the staleness window
// (crashed pod, killed process). Reaped jobs are requeued by the store
// implementation itself; this loop only tracks metrics and logs.
func (p *Pool) runOrphanDetection(ctx context.Context) {
	ticker := time.NewTicker(p.config.OrphanReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.reapOnce(ctx)
		}
	}
}

func (p *Pool) reapOnce(ctx context.Context) {
	reaped, err := p.queue.ReapStale(ctx)
	if err != nil {
		slog.Error("orphan reap failed", "error", err)
		return
	}

	p.orphans.mu.Lock()
	p.orphans.lastScan = time.Now()
	p.orphans.reaped += len(reaped)
	p.orphans.mu.Unlock()

	if len(reaped) > 0 {
		slog.Warn("reaped orphaned jobs", "count", len(reaped))
	}
}
