package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/clipforge/remuxd/internal/domain"
	"github.com/clipforge/remuxd/internal/pipeline"
	"github.com/clipforge/remuxd/internal/repository"
)

// ErrShutdownTimeout is returned when workers don't stop within timeout.
var ErrShutdownTimeout = errors.New("worker pool shutdown timed out")

// Processor runs the remux pipeline for one URL.
type Processor interface {
	Process(ctx context.Context, rawURL string, sink pipeline.Sink) domain.Outcome
}

// Pool manages a pool of workers draining the remux job queue.
type Pool struct {
	workers      int
	pollInterval time.Duration
	jobRepo      repository.JobRepository
	processor    Processor
	logger       *slog.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Config holds worker pool configuration.
type Config struct {
	Workers      int
	PollInterval time.Duration
}

// NewPool creates a new worker pool.
func NewPool(
	cfg Config,
	jobRepo repository.JobRepository,
	processor Processor,
	logger *slog.Logger,
) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workers:      cfg.Workers,
		pollInterval: cfg.PollInterval,
		jobRepo:      jobRepo,
		processor:    processor,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start launches all workers.
func (p *Pool) Start() {
	p.logger.Info("starting worker pool", "workers", p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop(timeout time.Duration) error {
	p.logger.Info("stopping worker pool")
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	logger := p.logger.With("worker_id", id)
	logger.Info("worker started")

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			logger.Info("worker stopping")
			return
		case <-ticker.C:
			p.processNextJob(logger)
		}
	}
}

func (p *Pool) processNextJob(logger *slog.Logger) {
	job, err := p.jobRepo.Dequeue(p.ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNoJobs) && !errors.Is(err, context.Canceled) {
			logger.Error("failed to dequeue job", "error", err)
		}
		return
	}

	logger = logger.With("job_id", job.ID, "url", job.URL)
	logger.Info("processing job")

	job.MarkProcessing()
	if err := p.jobRepo.Update(p.ctx, job); err != nil {
		logger.Error("failed to update job status", "error", err)
		return
	}

	// The sink persists the payload so the API can hand it out later.
	sink := pipeline.SinkFunc(func(ctx context.Context, payload domain.MediaPayload) error {
		return p.jobRepo.StoreResult(ctx, job.ID, payload)
	})

	outcome := p.processor.Process(p.ctx, job.URL, sink)
	if !outcome.Delivered() {
		p.handleJobFailure(logger, job, outcome.Failure)
		return
	}

	job.MarkCompleted(outcome.Media.MediaType, int64(len(outcome.Media.Data)))
	if err := p.jobRepo.Update(p.ctx, job); err != nil {
		logger.Error("failed to mark job completed", "error", err)
	}

	logger.Info("job completed", "media_type", job.MediaType, "size", job.SizeBytes)
}

func (p *Pool) handleJobFailure(logger *slog.Logger, job *domain.Job, failure *domain.Failure) {
	job.MarkFailed(failure.Kind, failure.Message)

	if job.Status == domain.JobStatusRetrying {
		logger.Warn("job failed, will retry",
			"kind", failure.Kind,
			"error", failure.Message,
			"attempt", job.Attempts,
			"max_retries", job.MaxRetries,
		)
	} else {
		logger.Error("job failed permanently",
			"kind", failure.Kind,
			"error", failure.Message,
			"attempts", job.Attempts,
		)
	}

	if updateErr := p.jobRepo.Update(p.ctx, job); updateErr != nil {
		logger.Error("failed to update job after failure", "error", updateErr)
	}
}
