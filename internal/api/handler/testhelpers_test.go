package handler

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/clipforge/remuxd/internal/domain"
	"github.com/clipforge/remuxd/internal/pipeline"
	"github.com/clipforge/remuxd/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockJobRepository is an in-memory JobRepository with injectable failures.
type mockJobRepository struct {
	mu         sync.Mutex
	jobs       map[domain.JobID]*domain.Job
	results    map[domain.JobID]domain.MediaPayload
	stats      *repository.QueueStats
	statsErr   error
	enqueueErr error
}

func newMockJobRepository() *mockJobRepository {
	return &mockJobRepository{
		jobs:    make(map[domain.JobID]*domain.Job),
		results: make(map[domain.JobID]domain.MediaPayload),
	}
}

func (m *mockJobRepository) Enqueue(ctx context.Context, job *domain.Job) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *mockJobRepository) Dequeue(ctx context.Context) (*domain.Job, error) {
	return nil, domain.ErrNoJobs
}

func (m *mockJobRepository) Update(ctx context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return domain.ErrJobNotFound
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *mockJobRepository) Get(ctx context.Context, id domain.JobID) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

func (m *mockJobRepository) StoreResult(ctx context.Context, id domain.JobID, payload domain.MediaPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[id] = payload
	return nil
}

func (m *mockJobRepository) GetResult(ctx context.Context, id domain.JobID) (domain.MediaPayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.results[id]
	if !ok {
		return domain.MediaPayload{}, domain.ErrJobNotFound
	}
	return payload, nil
}

func (m *mockJobRepository) Stats(ctx context.Context) (*repository.QueueStats, error) {
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	if m.stats != nil {
		return m.stats, nil
	}
	return &repository.QueueStats{}, nil
}

// fakeProcessor returns a canned outcome, delivering payload to the sink
// when the outcome is a success.
type fakeProcessor struct {
	outcome domain.Outcome
	payload domain.MediaPayload
}

func (f *fakeProcessor) Process(ctx context.Context, rawURL string, sink pipeline.Sink) domain.Outcome {
	if f.outcome.Delivered() {
		if err := sink.Deliver(ctx, f.payload); err != nil {
			return domain.FailedOutcome(domain.FailureDeliveryFailed, err.Error())
		}
	}
	return f.outcome
}

// fakeTool reports a fixed availability result.
type fakeTool struct {
	err error
}

func (f *fakeTool) Available() error {
	return f.err
}
