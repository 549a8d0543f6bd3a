package job

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EnqueuerStore defines the persistence surface used by producers.
type EnqueuerStore interface {
	// CreateJob durably inserts a new job and returns its id.
	CreateJob(ctx context.Context, j *Job) (int64, error)
}

// WorkerStore defines the persistence surface used by worker processes.
// All mutation goes through the claim -> update protocol; the store is the
// single source of truth and no in-memory job state is authoritative.
type WorkerStore interface {
	// ClaimBatch atomically claims up to limit due pending jobs for the
	// given worker, moving each to sending. Jobs already claimed by
	// another worker are skipped rather than waited on, and eligible jobs
	// are returned oldest-due-first. The sending status is persisted
	// before the batch is returned, so a crash between claim and delivery
	// leaves the rows visibly in flight.
	ClaimBatch(ctx context.Context, workerID uuid.UUID, limit int) ([]Job, error)

	// MarkSent moves a sending job to sent and stamps sent_at.
	// Returns ErrInvalidTransition if the job is not sending.
	MarkSent(ctx context.Context, jobID int64) error

	// RecordFailure increments the retry count and either reschedules the
	// job (back to pending with scheduled_at = retryAt) or terminally
	// fails it once the retry budget is exhausted. The resulting status
	// is returned so the caller can log the outcome.
	RecordFailure(ctx context.Context, jobID int64, reason string, retryAt time.Time) (Status, error)

	// FailPermanently terminally fails a sending job without consuming
	// the retry budget. Used for non-retryable conditions such as a
	// channel with no registered handler.
	FailPermanently(ctx context.Context, jobID int64, reason string) error
}

// FanoutStore defines the persistence surface used by the realtime layer.
type FanoutStore interface {
	// ListUnread returns sent-but-unread in-app jobs for a recipient,
	// oldest first.
	ListUnread(ctx context.Context, recipientID int64) ([]Job, error)

	// MarkRead flips is_read to true. Marking an already-read job is a
	// no-op; the flag never transitions backward.
	MarkRead(ctx context.Context, jobID int64) error
}
