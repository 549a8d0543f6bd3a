package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/courierd/courierd/pkg/delivery"
	"github.com/courierd/courierd/pkg/job"
)

// Defaults for the dispatch loop.
const (
	DefaultPollInterval  = 10 * time.Second
	DefaultErrorInterval = 30 * time.Second
	DefaultRetryBackoff  = 5 * time.Minute
	DefaultBatchSize     = 10
)

// Worker claims pending jobs and drives each through its delivery
// handler. Several workers may run against the same store; the claim
// query guarantees no job is processed twice.
type Worker struct {
	store    job.WorkerStore
	handlers *delivery.Registry
	id       uuid.UUID
	logger   *slog.Logger

	pollInterval  time.Duration
	errorInterval time.Duration
	retryBackoff  time.Duration
	batchSize     int
}

// New creates a worker with a fresh identity.
func New(store job.WorkerStore, handlers *delivery.Registry, opts ...Option) (*Worker, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if handlers == nil {
		return nil, ErrHandlersNil
	}

	w := &Worker{
		store:         store,
		handlers:      handlers,
		id:            uuid.New(),
		logger:        slog.Default(),
		pollInterval:  DefaultPollInterval,
		errorInterval: DefaultErrorInterval,
		retryBackoff:  DefaultRetryBackoff,
		batchSize:     DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// ID returns the worker's claim identity.
func (w *Worker) ID() uuid.UUID { return w.id }

// Run polls the store until ctx is cancelled. An empty batch sleeps for
// the poll interval; a claim error sleeps for the longer error interval
// so a broken store is not hammered.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "worker started",
		slog.String("worker_id", w.id.String()),
		slog.Int("batch_size", w.batchSize),
		slog.Duration("poll_interval", w.pollInterval))

	for {
		delay := w.pollInterval

		n, err := w.RunOnce(ctx)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			w.logger.InfoContext(ctx, "worker stopping",
				slog.String("worker_id", w.id.String()))
			return ctx.Err()
		case err != nil:
			w.logger.ErrorContext(ctx, "dispatch pass failed",
				slog.String("worker_id", w.id.String()),
				slog.String("error", err.Error()))
			delay = w.errorInterval
		case n > 0:
			// More work may be due; claim again without sleeping.
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// RunOnce claims and processes a single batch, returning the number of
// jobs settled. It backs the -run-once mode used by cron-style
// deployments and by tests.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	batch, err := w.store.ClaimBatch(ctx, w.id, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("claim batch: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	w.logger.DebugContext(ctx, "claimed batch",
		slog.String("worker_id", w.id.String()),
		slog.Int("jobs", len(batch)))

	for i := range batch {
		w.process(ctx, &batch[i])
	}
	return len(batch), nil
}

// process settles one claimed job. Failures here never propagate: one
// bad job must not take down the batch or the loop.
func (w *Worker) process(ctx context.Context, j *job.Job) {
	handler, err := w.handlers.Resolve(j.Channel)
	if err != nil {
		// Retrying cannot conjure up a handler, so skip the retry
		// budget entirely.
		w.failPermanently(ctx, j, err.Error())
		return
	}

	if err := w.deliver(ctx, handler, j); err != nil {
		w.recordFailure(ctx, j, err.Error())
		return
	}

	if err := w.store.MarkSent(ctx, j.ID); err != nil {
		w.logger.ErrorContext(ctx, "failed to mark job sent",
			slog.Int64("job_id", j.ID),
			slog.String("error", err.Error()))
		return
	}

	w.logger.InfoContext(ctx, "job sent",
		slog.Int64("job_id", j.ID),
		slog.String("channel", string(j.Channel)),
		slog.Int64("recipient_id", j.RecipientID))
}

// deliver invokes the handler with panic recovery, converting a panic
// into an ordinary failed attempt.
func (w *Worker) deliver(ctx context.Context, h delivery.Handler, j *job.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Send(ctx, j.RecipientID, j.MessageData, j.ID)
}

func (w *Worker) recordFailure(ctx context.Context, j *job.Job, reason string) {
	retryAt := time.Now().Add(w.retryBackoff)
	status, err := w.store.RecordFailure(ctx, j.ID, reason, retryAt)
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to record job failure",
			slog.Int64("job_id", j.ID),
			slog.String("error", err.Error()))
		return
	}

	if status == job.StatusFailed {
		w.logger.WarnContext(ctx, "job failed permanently",
			slog.Int64("job_id", j.ID),
			slog.String("channel", string(j.Channel)),
			slog.String("reason", reason))
		return
	}

	w.logger.WarnContext(ctx, "job attempt failed, rescheduled",
		slog.Int64("job_id", j.ID),
		slog.String("channel", string(j.Channel)),
		slog.Time("retry_at", retryAt),
		slog.String("reason", reason))
}

func (w *Worker) failPermanently(ctx context.Context, j *job.Job, reason string) {
	if err := w.store.FailPermanently(ctx, j.ID, reason); err != nil {
		w.logger.ErrorContext(ctx, "failed to fail job",
			slog.Int64("job_id", j.ID),
			slog.String("error", err.Error()))
		return
	}
	w.logger.WarnContext(ctx, "job failed permanently",
		slog.Int64("job_id", j.ID),
		slog.String("channel", string(j.Channel)),
		slog.String("reason", reason))
}
