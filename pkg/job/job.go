package job

import (
	"encoding/json"
	"time"
)

// Status represents the lifecycle state of a notification job.
// Transitions only move forward: pending -> sending -> {sent, pending, failed}.
type Status string

const (
	StatusPending Status = "pending"
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Channel represents the delivery mechanism for a notification.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelInApp Channel = "in_app"
)

// Valid reports whether the channel is one of the known delivery channels.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelInApp:
		return true
	}
	return false
}

// DefaultMaxRetries is the retry budget assigned to new jobs.
const DefaultMaxRetries = 3

// MaxReasonLen bounds the stored failure reason text.
const MaxReasonLen = 255

// Job is a durable record of one notification to deliver.
//
// RecipientID is an opaque reference to a user; no referential integrity
// is enforced against a user table. MessageData is an opaque JSON payload
// interpreted only by the channel's delivery handler.
type Job struct {
	ID           int64           `json:"id"`
	RecipientID  int64           `json:"recipient_id"`
	Channel      Channel         `json:"channel"`
	Type         string          `json:"notification_type"`
	MessageData  json.RawMessage `json:"message_data"`
	Status       Status          `json:"status"`
	RetryCount   int             `json:"retries_count"`
	MaxRetries   int             `json:"max_retries"`
	FailedReason string          `json:"failed_reason,omitempty"`
	ScheduledAt  time.Time       `json:"scheduled_at"`
	SentAt       *time.Time      `json:"sent_at,omitempty"`
	IsRead       bool            `json:"is_read"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsPending reports whether the job is waiting to be claimed.
func (j *Job) IsPending() bool { return j.Status == StatusPending }

// IsSent reports whether the job was delivered successfully.
func (j *Job) IsSent() bool { return j.Status == StatusSent }

// IsFailed reports whether the job exhausted its retry budget or hit a
// permanent failure.
func (j *Job) IsFailed() bool { return j.Status == StatusFailed }

// TruncateReason bounds failure text to MaxReasonLen for storage.
func TruncateReason(s string) string {
	if len(s) > MaxReasonLen {
		return s[:MaxReasonLen]
	}
	return s
}
