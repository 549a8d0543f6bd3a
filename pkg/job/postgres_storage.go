package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the durable job store. The claim query relies on
// FOR UPDATE SKIP LOCKED so concurrent workers skip rows another worker
// is claiming instead of blocking on them. A partial index on
// (status, scheduled_at) keeps the poll query cheap; see schema.sql.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a job store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const jobColumns = `id, recipient_id, channel, notification_type, message_data,
	status, retries_count, max_retries, coalesce(failed_reason, ''),
	scheduled_at, sent_at, is_read, created_at, updated_at`

// CreateJob implements EnqueuerStore.
func (s *PostgresStore) CreateJob(ctx context.Context, j *Job) (int64, error) {
	if j == nil {
		return 0, ErrJobNil
	}

	status := j.Status
	if status == "" {
		status = StatusPending
	}
	scheduledAt := j.ScheduledAt
	if scheduledAt.IsZero() {
		scheduledAt = time.Now()
	}

	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO notification_jobs
			(recipient_id, channel, notification_type, message_data,
			 status, retries_count, max_retries, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		j.RecipientID, j.Channel, j.Type, j.MessageData,
		status, j.RetryCount, j.MaxRetries, scheduledAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert notification job: %w", err)
	}
	return id, nil
}

// ClaimBatch implements WorkerStore. The inner SELECT locks due pending
// rows (skipping rows locked by other workers) and the outer UPDATE
// re-checks the pending status, so a row that changed state between
// selection and update is left untouched.
func (s *PostgresStore) ClaimBatch(ctx context.Context, workerID uuid.UUID, limit int) ([]Job, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE notification_jobs
		SET status = $1, claimed_by = $2, updated_at = now()
		WHERE status = $3 AND id IN (
			SELECT id FROM notification_jobs
			WHERE status = $3 AND scheduled_at <= now()
			ORDER BY scheduled_at ASC
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+jobColumns,
		StatusSending, workerID, StatusPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claim job batch: %w", err)
	}
	defer rows.Close()

	var claimed []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claimed job: %w", err)
		}
		claimed = append(claimed, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim job batch: %w", err)
	}

	return claimed, nil
}

// MarkSent implements WorkerStore.
func (s *PostgresStore) MarkSent(ctx context.Context, jobID int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notification_jobs
		SET status = $1, sent_at = now(), updated_at = now()
		WHERE id = $2 AND status = $3`,
		StatusSent, jobID, StatusSending,
	)
	if err != nil {
		return fmt.Errorf("mark job %d sent: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// RecordFailure implements WorkerStore. The retry budget check happens
// inside the statement so the increment and the status decision cannot
// race with another writer.
func (s *PostgresStore) RecordFailure(ctx context.Context, jobID int64, reason string, retryAt time.Time) (Status, error) {
	var status Status
	err := s.pool.QueryRow(ctx, `
		UPDATE notification_jobs
		SET retries_count = retries_count + 1,
			failed_reason = left($2, $3),
			status = CASE WHEN retries_count + 1 >= max_retries THEN $4::text ELSE $5::text END,
			scheduled_at = CASE WHEN retries_count + 1 >= max_retries THEN scheduled_at ELSE $6 END,
			updated_at = now()
		WHERE id = $1 AND status = $7
		RETURNING status`,
		jobID, reason, MaxReasonLen, StatusFailed, StatusPending, retryAt, StatusSending,
	).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrInvalidTransition
	}
	if err != nil {
		return "", fmt.Errorf("record failure for job %d: %w", jobID, err)
	}
	return status, nil
}

// FailPermanently implements WorkerStore.
func (s *PostgresStore) FailPermanently(ctx context.Context, jobID int64, reason string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notification_jobs
		SET status = $1, failed_reason = left($2, $3), updated_at = now()
		WHERE id = $4 AND status = $5`,
		StatusFailed, reason, MaxReasonLen, jobID, StatusSending,
	)
	if err != nil {
		return fmt.Errorf("fail job %d: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// ListUnread implements FanoutStore.
func (s *PostgresStore) ListUnread(ctx context.Context, recipientID int64) ([]Job, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM notification_jobs
		WHERE recipient_id = $1 AND channel = $2 AND status = $3 AND is_read = false
		ORDER BY created_at ASC, id ASC`,
		recipientID, ChannelInApp, StatusSent,
	)
	if err != nil {
		return nil, fmt.Errorf("list unread jobs for recipient %d: %w", recipientID, err)
	}
	defer rows.Close()

	var unread []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unread job: %w", err)
		}
		unread = append(unread, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list unread jobs for recipient %d: %w", recipientID, err)
	}
	return unread, nil
}

// MarkRead implements FanoutStore. Re-marking an already-read job
// matches zero rows, which keeps the operation idempotent.
func (s *PostgresStore) MarkRead(ctx context.Context, jobID int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notification_jobs
		SET is_read = true, updated_at = now()
		WHERE id = $1 AND is_read = false`,
		jobID,
	)
	if err != nil {
		return fmt.Errorf("mark job %d read: %w", jobID, err)
	}
	return nil
}

// Get returns a job by id.
func (s *PostgresStore) Get(ctx context.Context, jobID int64) (*Job, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM notification_jobs
		WHERE id = $1`,
		jobID,
	)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", jobID, err)
	}
	return &j, nil
}

func scanJob(row pgx.Row) (Job, error) {
	var j Job
	err := row.Scan(
		&j.ID, &j.RecipientID, &j.Channel, &j.Type, &j.MessageData,
		&j.Status, &j.RetryCount, &j.MaxRetries, &j.FailedReason,
		&j.ScheduledAt, &j.SentAt, &j.IsRead, &j.CreatedAt, &j.UpdatedAt,
	)
	return j, err
}
