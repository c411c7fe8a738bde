// Package memstore is an in-memory implementation of every internal/store
// port. It backs unit tests and local/dev runs of the pipeline without a
// real Postgres instance, mirroring the general "fake behind the same
// interface the production code consumes" idiom visible throughout the
// teacher's pkg/queue/*_test.go stub executors.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/artisanclarinets/smartupload/internal/models"
	"github.com/artisanclarinets/smartupload/internal/store"
)

// Store is a single in-memory backend satisfying BatchStore, ItemStore,
// BlobStore, JobQueue, and SettingsStore simultaneously. A real deployment
// would split these across Postgres + an object store + a queue broker;
// tests and local runs use one Store for all of them.
type Store struct {
	mu sync.Mutex

	batches map[string]*models.Batch
	items   map[string]*models.Item
	blobs   map[string][]byte
	jobs    map[string]*jobRecord
	settings map[string]string

	staleness time.Duration
}

type jobRecord struct {
	job        store.QueueJob
	claimed    bool
	workerID   string
	claimedAt  time.Time
}

// New creates an empty Store. settings seeds the SettingsStore contents.
func New(settings map[string]string) *Store {
	if settings == nil {
		settings = map[string]string{}
	}
	return &Store{
		batches:   map[string]*models.Batch{},
		items:     map[string]*models.Item{},
		blobs:     map[string][]byte{},
		jobs:      map[string]*jobRecord{},
		settings:  settings,
		staleness: 5 * time.Minute,
	}
}

// --- BatchStore ---

func (s *Store) CreateBatch(_ context.Context, b *models.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	cp := *b
	s.batches[b.ID] = &cp
	return nil
}

func (s *Store) GetBatch(_ context.Context, id string) (*models.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *Store) UpdateBatch(_ context.Context, b *models.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[b.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *b
	s.batches[b.ID] = &cp
	return nil
}

// --- ItemStore ---

func (s *Store) CreateItem(_ context.Context, it *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	cp := *it
	s.items[it.ID] = &cp
	return nil
}

func (s *Store) GetItem(_ context.Context, id string) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (s *Store) ListItemsByBatch(_ context.Context, batchID string) ([]*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Item
	for _, it := range s.items {
		if it.BatchID == batchID {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) UpdateItem(_ context.Context, it *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[it.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *it
	s.items[it.ID] = &cp
	return nil
}

// WithTx calls fn directly. memstore has no real transactions: fn is not
// serialized against other callers (each operation takes the store-wide
// mutex on its own), and writes fn made before returning an error are kept.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- BlobStore ---

func (s *Store) Upload(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[key] = cp
	return nil
}

func (s *Store) Download(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

// --- JobQueue ---

func (s *Store) Enqueue(_ context.Context, jobName, batchID, itemID string, _ store.JobQueueOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.jobs[id] = &jobRecord{job: store.QueueJob{ID: id, Name: jobName, BatchID: batchID, ItemID: itemID}}
	return nil
}

func (s *Store) Claim(_ context.Context, workerID string) (*store.QueueJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.jobs {
		if !rec.claimed {
			rec.claimed = true
			rec.workerID = workerID
			rec.claimedAt = time.Now()
			j := rec.job
			return &j, nil
		}
	}
	return nil, store.ErrQueueEmpty
}

func (s *Store) Complete(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
	return nil
}

func (s *Store) Fail(_ context.Context, jobID string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[jobID]
	if !ok {
		return store.ErrNotFound
	}
	rec.job.Attempts++
	rec.claimed = false
	return nil
}

func (s *Store) ReapStale(_ context.Context) ([]*store.QueueJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var reaped []*store.QueueJob
	now := time.Now()
	for _, rec := range s.jobs {
		if rec.claimed && now.Sub(rec.claimedAt) > s.staleness {
			rec.claimed = false
			j := rec.job
			reaped = append(reaped, &j)
		}
	}
	return reaped, nil
}

// --- SettingsStore ---

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.settings[key]
	return v, ok, nil
}

// PendingJobCount reports how many jobs are unclaimed.
func (s *Store) PendingJobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.jobs {
		if !rec.claimed {
			n++
		}
	}
	return n
}
