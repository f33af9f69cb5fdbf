package repository

import (
	"context"

	"github.com/clipforge/remuxd/internal/domain"
)

// JobRepository stores remux jobs and their delivered payloads.
type JobRepository interface {
	// Enqueue adds a job to the queue.
	Enqueue(ctx context.Context, job *domain.Job) error

	// Dequeue claims the next pending job (FIFO). Returns domain.ErrNoJobs
	// when nothing is waiting.
	Dequeue(ctx context.Context) (*domain.Job, error)

	// Update modifies job state.
	Update(ctx context.Context, job *domain.Job) error

	// Get retrieves a job by ID.
	Get(ctx context.Context, id domain.JobID) (*domain.Job, error)

	// StoreResult persists the delivered payload for a completed job.
	StoreResult(ctx context.Context, id domain.JobID, payload domain.MediaPayload) error

	// GetResult retrieves the delivered payload of a completed job.
	GetResult(ctx context.Context, id domain.JobID) (domain.MediaPayload, error)

	// Stats returns queue statistics.
	Stats(ctx context.Context) (*QueueStats, error)
}

// QueueStats summarizes the queue by job status.
type QueueStats struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Retrying   int `json:"retrying"`
}
