package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/courierd/courierd/pkg/job"
	"github.com/courierd/courierd/pkg/prefs"
)

// DefaultType is assigned when a producer passes an empty
// notification type.
const DefaultType = "general"

// Enqueuer accepts delivery requests from producers, applies the
// recipient's communication preferences and writes pending jobs. It is an
// explicitly constructed service: producers receive an *Enqueuer, there
// is no package-level instance.
type Enqueuer struct {
	jobs       job.EnqueuerStore
	prefs      prefs.Store
	maxRetries int
	logger     *slog.Logger
}

// Option is a functional option for configuring an Enqueuer.
type Option func(*Enqueuer)

// WithMaxRetries overrides the retry budget assigned to new jobs.
func WithMaxRetries(n int) Option {
	return func(e *Enqueuer) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Enqueuer) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEnqueuer creates an Enqueuer over the given stores.
func NewEnqueuer(jobs job.EnqueuerStore, preferences prefs.Store, opts ...Option) (*Enqueuer, error) {
	if jobs == nil {
		return nil, ErrJobStoreNil
	}
	if preferences == nil {
		return nil, ErrPrefStoreNil
	}

	e := &Enqueuer{
		jobs:       jobs,
		prefs:      preferences,
		maxRetries: job.DefaultMaxRetries,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Enqueue validates the request, consults the recipient's preferences and
// inserts a pending job. It returns the new job id, or nil when the
// recipient has opted out of the channel — a silent skip, not an error.
// Storage failures propagate to the caller; a partially written job is
// never observable.
func (e *Enqueuer) Enqueue(ctx context.Context, recipientID int64, channel job.Channel, messageData json.RawMessage, notificationType string) (*int64, error) {
	if !channel.Valid() {
		return nil, fmt.Errorf("%w: %q", job.ErrInvalidChannel, channel)
	}
	if len(messageData) == 0 {
		return nil, ErrMessageDataEmpty
	}
	if !json.Valid(messageData) {
		return nil, ErrMessageDataInvalid
	}
	if notificationType == "" {
		notificationType = DefaultType
	}

	allowed, err := e.allowed(ctx, recipientID, channel)
	if err != nil {
		return nil, err
	}
	if !allowed {
		e.logger.InfoContext(ctx, "notification skipped: recipient opted out",
			slog.Int64("recipient_id", recipientID),
			slog.String("channel", string(channel)))
		return nil, nil
	}

	id, err := e.jobs.CreateJob(ctx, &job.Job{
		RecipientID: recipientID,
		Channel:     channel,
		Type:        notificationType,
		MessageData: messageData,
		Status:      job.StatusPending,
		MaxRetries:  e.maxRetries,
		ScheduledAt: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue %s notification for recipient %d: %w", channel, recipientID, err)
	}

	e.logger.InfoContext(ctx, "notification job enqueued",
		slog.Int64("job_id", id),
		slog.Int64("recipient_id", recipientID),
		slog.String("channel", string(channel)),
		slog.String("notification_type", notificationType))

	return &id, nil
}

// allowed applies the preference gate. A missing preference record means
// the recipient accepts all channels.
func (e *Enqueuer) allowed(ctx context.Context, recipientID int64, channel job.Channel) (bool, error) {
	p, err := e.prefs.Get(ctx, recipientID)
	if err != nil {
		if errors.Is(err, prefs.ErrNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("load preferences for recipient %d: %w", recipientID, err)
	}
	return p.Allows(channel), nil
}
