// Package pipeline implements the C7 stage-keyed engine: a job dispatcher
// that claims queue jobs, routes each to the handler registered for its
// stage, and enqueues the next stage on success. Every handler is an
// idempotent function of (batchID, itemID, stageInput); persistent writes
// happen inside store.ItemStore.WithTx so a retried attempt that finds the
// state already advanced simply no-ops.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/artisanclarinets/smartupload/internal/models"
	"github.com/artisanclarinets/smartupload/internal/store"
)

// Handler advances one item through one stage. It must read the item's
// current state first and no-op (returning the same nextStage it would have
// produced, with no error) if that state already reflects the stage having
// completed — this is what makes replays safe under at-least-once delivery.
type Handler func(ctx context.Context, batch *models.Batch, item *models.Item) (nextStage string, err error)

// Engine is the stage-keyed job dispatcher.
type Engine struct {
	Batches  store.BatchStore
	Items    store.ItemStore
	Queue    store.JobQueue
	handlers map[string]Handler
}

// New builds an Engine with an empty handler table; register stages with Register.
func New(batches store.BatchStore, items store.ItemStore, queue store.JobQueue) *Engine {
	return &Engine{Batches: batches, Items: items, Queue: queue, handlers: map[string]Handler{}}
}

// Register binds a Handler to a stage key. Unknown job names are a hard
// error at dispatch time (spec.md §9: sum-typed stage payloads, exhaustively
// matched; unknown job name is a hard error, not a silent skip).
func (e *Engine) Register(stage string, h Handler) {
	e.handlers[stage] = h
}

var ErrUnknownStage = errors.New("pipeline: unknown stage")

// ProcessJob claims one unit of work already popped from the queue (job is
// the claimed store.QueueJob) and runs it to completion: load state, run the
// stage handler inside a transaction, enqueue the next stage, mark the job
// complete. A returned error leaves the job for the queue's own retry/backoff
// policy to handle, except for QUALITY_GATE which is not an error — it is a
// successful routing decision to NEEDS_REVIEW.
func (e *Engine) ProcessJob(ctx context.Context, job *store.QueueJob) error {
	stage := StageFromJobName(job.Name)
	if stage == "" {
		return fmt.Errorf("%w: %s", ErrUnknownStage, job.Name)
	}

	handler, ok := e.handlers[stage]
	if !ok {
		return fmt.Errorf("%w: %s (no handler registered)", ErrUnknownStage, stage)
	}

	log := slog.With("stage", stage, "batch_id", job.BatchID, "item_id", job.ItemID)

	var nextStage string
	var failed *models.Item
	err := e.Items.WithTx(ctx, func(txCtx context.Context) error {
		item, err := e.Items.GetItem(txCtx, job.ItemID)
		if err != nil {
			return fmt.Errorf("load item: %w", err)
		}
		batch, err := e.Batches.GetBatch(txCtx, job.BatchID)
		if err != nil {
			return fmt.Errorf("load batch: %w", err)
		}

		next, handlerErr := handler(txCtx, batch, item)
		if handlerErr != nil {
			var se *StageError
			if errors.As(handlerErr, &se) && se.Kind == KindQualityGate {
				// Not a hard failure: the handler already mutated item to
				// route it to NEEDS_REVIEW; persist that routing decision
				// in the same transaction as every other stage write.
				if uerr := e.Items.UpdateItem(txCtx, item); uerr != nil {
					return fmt.Errorf("persist quality-gate routing: %w", uerr)
				}
				nextStage = next
				return nil
			}
			recordFailure(item, handlerErr)
			failed = item
			return handlerErr
		}

		if uerr := e.Items.UpdateItem(txCtx, item); uerr != nil {
			return fmt.Errorf("persist item after stage: %w", uerr)
		}
		nextStage = next
		return nil
	})
	if err != nil {
		log.Warn("stage failed", "error", err)
		// The stage transaction has been rolled back, so the failure is
		// recorded on the item in a write of its own.
		if failed != nil {
			if uerr := e.Items.UpdateItem(ctx, failed); uerr != nil {
				log.Error("failed to record item failure", "error", uerr)
			}
		}
		if jobName := JobName(StageCleanup); jobName != "" && shouldCleanup(err) {
			if enqErr := e.Queue.Enqueue(ctx, jobName, job.BatchID, job.ItemID, store.DefaultJobQueueOptions()); enqErr != nil {
				log.Error("failed to enqueue cleanup after stage failure", "error", enqErr)
			}
		}
		return err
	}

	if err := e.Queue.Complete(ctx, job.ID); err != nil {
		log.Error("failed to mark job complete", "error", err)
	}

	if nextStage != "" && nextStage != StageCleanup {
		if jobName := JobName(nextStage); jobName != "" {
			if err := e.Queue.Enqueue(ctx, jobName, job.BatchID, job.ItemID, store.DefaultJobQueueOptions()); err != nil {
				log.Error("failed to enqueue next stage", "next_stage", nextStage, "error", err)
				return err
			}
		}
	}

	log.Info("stage complete", "next_stage", nextStage)
	return nil
}

func recordFailure(item *models.Item, err error) {
	item.Status = models.ItemFailed
	item.ErrorMessage = err.Error()
	var se *StageError
	if errors.As(err, &se) {
		item.ErrorDetails = string(se.Kind)
	}
}

// shouldCleanup reports whether a stage failure is terminal enough to
// warrant enqueuing CLEANUP (spec.md §7 propagation policy: cleanup is
// enqueued on a terminal failure, not on every retryable transient error).
func shouldCleanup(err error) bool {
	var se *StageError
	if !errors.As(err, &se) {
		return false
	}
	switch se.Kind {
	case KindCancelled, KindDBConflict, KindParseError, KindBadRequest, KindMissingKey:
		return true
	default:
		return false
	}
}
