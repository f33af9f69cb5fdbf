package repository

import (
	"context"
	"sync"

	"github.com/clipforge/remuxd/internal/domain"
)

// InMemoryJobRepository implements JobRepository using in-memory storage.
// Suitable for single-process deployments that can afford to lose the queue
// on restart.
type InMemoryJobRepository struct {
	mu      sync.RWMutex
	jobs    map[domain.JobID]*domain.Job
	results map[domain.JobID]domain.MediaPayload
	queue   []domain.JobID // FIFO queue of pending job IDs
}

// NewInMemoryJobRepository creates a new in-memory job repository.
func NewInMemoryJobRepository() *InMemoryJobRepository {
	return &InMemoryJobRepository{
		jobs:    make(map[domain.JobID]*domain.Job),
		results: make(map[domain.JobID]domain.MediaPayload),
		queue:   make([]domain.JobID, 0),
	}
}

// cloneJob detaches a job from the repository's stored copy. Callers mutate
// jobs between Dequeue and Update, so handing out the stored pointer would
// race with concurrent readers.
func cloneJob(job *domain.Job) *domain.Job {
	clone := *job
	return &clone
}

// Enqueue adds a job to the queue.
func (r *InMemoryJobRepository) Enqueue(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[job.ID] = cloneJob(job)
	r.queue = append(r.queue, job.ID)

	return nil
}

// Dequeue retrieves the next pending job (FIFO).
func (r *InMemoryJobRepository) Dequeue(ctx context.Context) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, jobID := range r.queue {
		job, ok := r.jobs[jobID]
		if !ok {
			continue
		}

		if job.Status == domain.JobStatusQueued || job.Status == domain.JobStatusRetrying {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)
			return cloneJob(job), nil
		}
	}

	return nil, domain.ErrNoJobs
}

// Update modifies job state.
func (r *InMemoryJobRepository) Update(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; !ok {
		return domain.ErrJobNotFound
	}

	r.jobs[job.ID] = cloneJob(job)

	// A retrying job goes back on the queue.
	if job.Status == domain.JobStatusRetrying {
		r.queue = append(r.queue, job.ID)
	}

	return nil
}

// Get retrieves a job by ID.
func (r *InMemoryJobRepository) Get(ctx context.Context, id domain.JobID) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}

	return cloneJob(job), nil
}

// StoreResult persists the delivered payload for a completed job.
func (r *InMemoryJobRepository) StoreResult(ctx context.Context, id domain.JobID, payload domain.MediaPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[id]; !ok {
		return domain.ErrJobNotFound
	}

	r.results[id] = payload
	return nil
}

// GetResult retrieves the delivered payload of a completed job.
func (r *InMemoryJobRepository) GetResult(ctx context.Context, id domain.JobID) (domain.MediaPayload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payload, ok := r.results[id]
	if !ok {
		return domain.MediaPayload{}, domain.ErrJobNotFound
	}

	return payload, nil
}

// Stats returns queue statistics.
func (r *InMemoryJobRepository) Stats(ctx context.Context) (*QueueStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &QueueStats{}
	for _, job := range r.jobs {
		switch job.Status {
		case domain.JobStatusQueued:
			stats.Queued++
		case domain.JobStatusProcessing:
			stats.Processing++
		case domain.JobStatusCompleted:
			stats.Completed++
		case domain.JobStatusFailed:
			stats.Failed++
		case domain.JobStatusRetrying:
			stats.Retrying++
		}
	}

	return stats, nil
}
