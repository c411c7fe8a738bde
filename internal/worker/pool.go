package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/artisanclarinets/smartupload/internal/pipeline"
	"github.com/artisanclarinets/smartupload/internal/store"
)

// Pool manages a fixed set of Workers plus the orphan-reaping loop.
type Pool struct {
	podID  string
	queue  store.JobQueue
	engine *pipeline.Engine
	config Config

	workers []*Worker
	stopCh  chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	started bool

	orphans orphanState
}

// New builds a Pool bound to the given queue and pipeline engine.
func New(podID string, queue store.JobQueue, engine *pipeline.Engine, cfg Config) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultConfig().WorkerCount
	}
	return &Pool{
		podID:   podID,
		queue:   queue,
		engine:  engine,
		config:  cfg,
		workers: make([]*Worker, 0, cfg.WorkerCount),
		stopCh:  make(chan struct{}),
	}
}

// Start spawns the worker goroutines and the orphan-detection loop. Safe to
// call once; subsequent calls are no-ops.
func (p *Pool) Start(ctx context.Context) {
	if p.started {
		slog.Warn("worker pool already started, ignoring duplicate Start call", "pod_id", p.podID)
		return
	}
	p.started = true

	slog.Info("starting worker pool", "pod_id", p.podID, "worker_count", p.config.WorkerCount)
	for i := 0; i < p.config.WorkerCount; i++ {
		id := fmt.Sprintf("%s-worker-%d", p.podID, i)
		w := newWorker(id, p.podID, p.queue, p.engine, p.config)
		p.workers = append(p.workers, w)
		w.Start(ctx)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runOrphanDetection(ctx)
	}()
}

// Stop signals every worker to finish its current job and exit, then waits.
func (p *Pool) Stop() {
	slog.Info("stopping worker pool gracefully")
	for _, w := range p.workers {
		w.Stop()
	}
	p.once.Do(func() { close(p.stopCh) })
	p.wg.Wait()
	slog.Info("worker pool stopped gracefully")
}

// Health reports the pool's aggregate status.
func (p *Pool) Health() PoolHealth {
	stats := make([]Health, len(p.workers))
	active := 0
	for i, w := range p.workers {
		h := w.Health()
		stats[i] = h
		if h.Status == StatusWorking {
			active++
		}
	}

	p.orphans.mu.Lock()
	lastScan := p.orphans.lastScan
	reaped := p.orphans.reaped
	p.orphans.mu.Unlock()

	return PoolHealth{
		IsHealthy:      len(p.workers) > 0,
		PodID:          p.podID,
		ActiveWorkers:  active,
		TotalWorkers:   len(p.workers),
		WorkerStats:    stats,
		LastOrphanScan: lastScan,
		OrphansReaped:  reaped,
	}
}
