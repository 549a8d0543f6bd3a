package worker

import (
	"log/slog"
	"time"
)

// Option configures a Worker.
type Option func(*Worker)

// WithPollInterval sets the idle delay between passes.
func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithErrorRetryInterval sets the delay after a pass that failed to
// claim a batch, typically on storage errors.
func WithErrorRetryInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.errorInterval = d
		}
	}
}

// WithBatchSize sets how many jobs one pass claims at most.
func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithRetryBackoff sets how far into the future a failed attempt is
// rescheduled. Zero is allowed and makes retries due immediately.
func WithRetryBackoff(d time.Duration) Option {
	return func(w *Worker) {
		if d >= 0 {
			w.retryBackoff = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}
