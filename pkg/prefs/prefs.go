// Package prefs stores per-recipient communication preferences consulted
// by the enqueue gate. A missing record means the recipient accepts every
// channel; opt-out is always explicit.
package prefs

import (
	"context"
	"errors"
	"time"

	"github.com/courierd/courierd/pkg/job"
)

// ErrNotFound is returned when a recipient has no preference record.
var ErrNotFound = errors.New("communication preference not found")

// Preference holds a recipient's channel opt-in flags and the default
// channel hint for non-critical notifications.
type Preference struct {
	UserID         int64       `json:"user_id"`
	PrefersEmail   bool        `json:"prefers_email"`
	PrefersInApp   bool        `json:"prefers_in_app"`
	DefaultChannel job.Channel `json:"default_channel"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Allows reports whether the preference permits delivery on a channel.
// Unknown channels are allowed here; channel validity is the enqueuer's
// concern.
func (p *Preference) Allows(ch job.Channel) bool {
	switch ch {
	case job.ChannelEmail:
		return p.PrefersEmail
	case job.ChannelInApp:
		return p.PrefersInApp
	}
	return true
}

// Store handles preference persistence.
type Store interface {
	// Get returns the preference record for a user, or ErrNotFound.
	Get(ctx context.Context, userID int64) (*Preference, error)

	// Upsert creates or replaces a user's preference record.
	Upsert(ctx context.Context, p Preference) error
}
