// Package store defines the ports through which the pipeline reaches the
// external collaborators spec.md scopes as out-of-scope: the relational
// store, the object store, the job queue, and the settings table. Two
// implementations exist: internal/store/memstore (in-memory, used by tests
// and local runs) and internal/store/postgres (pgx-backed, real).
package store

import (
	"context"
	"errors"

	"github.com/artisanclarinets/smartupload/internal/models"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrConflict      = errors.New("store: conflict")
	ErrQueueEmpty    = errors.New("store: queue empty")
)

// BatchStore persists Batch aggregates.
type BatchStore interface {
	CreateBatch(ctx context.Context, b *models.Batch) error
	GetBatch(ctx context.Context, id string) (*models.Batch, error)
	UpdateBatch(ctx context.Context, b *models.Batch) error
}

// ItemStore persists Item aggregates. Every stage handler commits its write
// through UpdateItem inside a single transaction managed by the store
// implementation (WithTx), so idempotence is guaranteed by the combination
// of "read current state, no-op if already advanced" plus one atomic write.
type ItemStore interface {
	CreateItem(ctx context.Context, it *models.Item) error
	GetItem(ctx context.Context, id string) (*models.Item, error)
	ListItemsByBatch(ctx context.Context, batchID string) ([]*models.Item, error)
	UpdateItem(ctx context.Context, it *models.Item) error

	// WithTx runs fn inside a single transaction scoped to both the item and
	// batch stores, committing iff fn returns nil. Implementations that are
	// not inherently transactional (memstore) may implement this as a plain
	// mutex-guarded call.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// BlobStore is the object-store port. Keys use "/" as separator; the
// pipeline owns the smart-upload/{itemId}/ and smart-upload/{itemId}/parts/
// prefixes.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// QueueJob is one enqueued unit of pipeline work.
type QueueJob struct {
	ID       string
	Name     string // e.g. "smartupload.extractText"
	BatchID  string
	ItemID   string
	Attempts int
}

// JobQueueOptions mirrors spec.md §6's enqueue options.
type JobQueueOptions struct {
	Priority         int
	Attempts         int
	BackoffBaseSec   int
	RemoveOnComplete int
	RemoveOnFail     int
}

// DefaultJobQueueOptions matches spec.md §6's stated defaults.
func DefaultJobQueueOptions() JobQueueOptions {
	return JobQueueOptions{Attempts: 3, BackoffBaseSec: 5, RemoveOnComplete: 100, RemoveOnFail: 50}
}

// JobQueue is the work-distribution port used by the worker pool (C9) and
// pipeline engine (C7).
type JobQueue interface {
	Enqueue(ctx context.Context, jobName, batchID, itemID string, opts JobQueueOptions) error
	// Claim atomically pops one ready job owned by no other worker. Returns
	// ErrQueueEmpty if nothing is ready.
	Claim(ctx context.Context, workerID string) (*QueueJob, error)
	Complete(ctx context.Context, jobID string) error
	Fail(ctx context.Context, jobID string, reason string) error
	// ReapStale returns jobs that were claimed longer ago than the
	// implementation's fixed staleness window, putting them back in the
	// ready state for another worker to claim.
	ReapStale(ctx context.Context) ([]*QueueJob, error)
}

// SettingsStore is the key-value settings table the config loader queries
// (spec.md §6). Values are always strings; typed conversion happens in
// internal/config.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
}
