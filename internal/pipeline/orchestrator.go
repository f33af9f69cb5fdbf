package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/clipforge/remuxd/internal/domain"
	"github.com/clipforge/remuxd/internal/workspace"
)

// Fetcher materializes a remote resource as a workspace file. A non-empty
// path must be returned whenever one was allocated, success or not.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Remuxer re-wraps a local file into the target container. Same path
// ownership rule as Fetcher.
type Remuxer interface {
	Available() error
	Remux(ctx context.Context, inputPath string) (string, error)
	MediaType() string
}

// Sink receives the final media payload for one request.
type Sink interface {
	Deliver(ctx context.Context, payload domain.MediaPayload) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, payload domain.MediaPayload) error

func (f SinkFunc) Deliver(ctx context.Context, payload domain.MediaPayload) error {
	return f(ctx, payload)
}

// NotifyFunc is an optional fire-and-forget hook invoked once when
// processing starts, before the outcome is known.
type NotifyFunc func(ctx context.Context)

// Orchestrator sequences fetch, remux, and delivery for one URL, and
// guarantees every workspace file allocated along the way is released
// before Process returns, whatever the outcome.
type Orchestrator struct {
	fetcher Fetcher
	remuxer Remuxer
	ws      *workspace.Manager
	notify  NotifyFunc
	logger  *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotify installs a pre-flight notification hook.
func WithNotify(fn NotifyFunc) Option {
	return func(o *Orchestrator) {
		o.notify = fn
	}
}

// NewOrchestrator creates a pipeline orchestrator.
func NewOrchestrator(f Fetcher, r Remuxer, ws *workspace.Manager, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher: f,
		remuxer: r,
		ws:      ws,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process runs the pipeline for one URL and delivers the result to sink.
// It never panics and never returns partial media: the caller gets delivered
// media or exactly one typed failure. Cleanup of intermediate files completes
// before Process returns, on every exit path.
func (o *Orchestrator) Process(ctx context.Context, rawURL string, sink Sink) (outcome domain.Outcome) {
	var paths []string

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("pipeline panic", "url", rawURL, "panic", r)
			outcome = domain.FailedOutcome(domain.FailureInternalError, fmt.Sprintf("unexpected internal error: %v", r))
		}
		for _, p := range paths {
			o.ws.Release(p)
		}
	}()

	// Tool availability is a precondition: no fetch happens without it.
	if err := o.remuxer.Available(); err != nil {
		return domain.FailedOutcome(domain.FailureToolUnavailable, err.Error())
	}

	if o.notify != nil {
		o.notify(ctx)
	}

	fetched, err := o.fetcher.Fetch(ctx, rawURL)
	if fetched != "" {
		paths = append(paths, fetched)
	}
	if err != nil {
		o.logger.Warn("fetch failed", "url", rawURL, "error", err)
		return domain.FailedOutcome(domain.FailureDownloadFailed, err.Error())
	}

	remuxed, err := o.remuxer.Remux(ctx, fetched)
	if remuxed != "" {
		paths = append(paths, remuxed)
	}
	if err != nil {
		if errors.Is(err, domain.ErrToolUnavailable) {
			return domain.FailedOutcome(domain.FailureToolUnavailable, err.Error())
		}
		o.logger.Warn("remux failed", "url", rawURL, "error", err)
		return domain.FailedOutcome(domain.FailureRemuxFailed, err.Error())
	}

	data, err := os.ReadFile(remuxed)
	if err != nil {
		return domain.FailedOutcome(domain.FailureDeliveryFailed, fmt.Sprintf("read remuxed file: %v", err))
	}

	payload := domain.MediaPayload{
		Data:      data,
		MediaType: o.remuxer.MediaType(),
	}

	if err := sink.Deliver(ctx, payload); err != nil {
		o.logger.Warn("delivery failed", "url", rawURL, "error", err)
		return domain.FailedOutcome(domain.FailureDeliveryFailed, err.Error())
	}

	o.logger.Info("media delivered", "url", rawURL, "media_type", payload.MediaType, "size", len(data))
	return domain.DeliveredOutcome(payload)
}
