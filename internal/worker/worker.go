package worker

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/artisanclarinets/smartupload/internal/pipeline"
	"github.com/artisanclarinets/smartupload/internal/store"
)

// Worker polls the job queue and runs claimed jobs through the pipeline
// engine, one at a time, until stopped.
type Worker struct {
	id     string
	podID  string
	queue  store.JobQueue
	engine *pipeline.Engine
	config Config

	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	mu            sync.RWMutex
	status        Status
	currentJobID  string
	jobsProcessed int
	lastActivity  time.Time
}

func newWorker(id, podID string, queue store.JobQueue, engine *pipeline.Engine, cfg Config) *Worker {
	return &Worker{
		id:           id,
		podID:        podID,
		queue:        queue,
		engine:       engine,
		config:       cfg,
		stopCh:       make(chan struct{}),
		status:       StatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker's polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to finish its current job and exit.
func (w *Worker) Stop() {
	w.once.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns a snapshot of this worker's current state.
func (w *Worker) Health() Health {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return Health{
		ID:            w.id,
		Status:        w.status,
		CurrentJobID:  w.currentJobID,
		JobsProcessed: w.jobsProcessed,
		LastActivity:  w.lastActivity,
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	log := slog.With("worker_id", w.id, "pod_id", w.podID)
	log.Info("worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, store.ErrQueueEmpty) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("error processing job", "error", err)
				w.sleep(w.config.ErrorBackoff)
			}
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

func (w *Worker) pollAndProcess(ctx context.Context) error {
	job, err := w.queue.Claim(ctx, w.id)
	if err != nil {
		return err
	}

	log := slog.With("job_id", job.ID, "job_name", job.Name, "worker_id", w.id)
	log.Info("job claimed")

	w.setStatus(StatusWorking, job.ID)
	defer w.setStatus(StatusIdle, "")

	if err := w.engine.ProcessJob(ctx, job); err != nil {
		if failErr := w.queue.Fail(ctx, job.ID, err.Error()); failErr != nil {
			log.Error("failed to mark job failed", "error", failErr)
		}
		w.recordProcessed()
		return nil
	}

	w.recordProcessed()
	log.Info("job complete")
	return nil
}

func (w *Worker) recordProcessed() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.jobsProcessed++
	w.lastActivity = time.Now()
}

func (w *Worker) setStatus(status Status, jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}

// pollInterval returns the configured poll duration jittered into
// [base-jitter, base+jitter], spreading worker wakeups across a pod so many
// idle workers don't all hammer Claim in lockstep.
func (w *Worker) pollInterval() time.Duration {
	base := w.config.PollInterval
	jitter := w.config.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}
