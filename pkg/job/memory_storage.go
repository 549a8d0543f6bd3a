package job

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements all job store interfaces in memory.
// Suitable for tests and single-process development setups; durable
// deployments use PostgresStore.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	jobs   map[int64]*Job
}

// NewMemoryStore creates an empty in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[int64]*Job)}
}

// CreateJob implements EnqueuerStore.
func (s *MemoryStore) CreateJob(ctx context.Context, j *Job) (int64, error) {
	if j == nil {
		return 0, ErrJobNil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := time.Now()

	stored := *j
	stored.ID = s.nextID
	stored.MessageData = slices.Clone(j.MessageData)
	if stored.Status == "" {
		stored.Status = StatusPending
	}
	if stored.ScheduledAt.IsZero() {
		stored.ScheduledAt = now
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now

	s.jobs[stored.ID] = &stored
	return stored.ID, nil
}

// ClaimBatch implements WorkerStore. The whole claim happens under one
// lock, which gives the same mutual exclusion as the row-level
// skip-locked claim in the Postgres store: a job observed as pending is
// moved to sending before any other claimer can see it.
func (s *MemoryStore) ClaimBatch(ctx context.Context, workerID uuid.UUID, limit int) ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	var due []*Job
	for _, j := range s.jobs {
		if j.Status == StatusPending && !j.ScheduledAt.After(now) {
			due = append(due, j)
		}
	}

	slices.SortFunc(due, func(a, b *Job) int {
		if c := a.ScheduledAt.Compare(b.ScheduledAt); c != 0 {
			return c
		}
		// Stable order for jobs scheduled at the same instant.
		return int(a.ID - b.ID)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]Job, 0, len(due))
	for _, j := range due {
		j.Status = StatusSending
		j.UpdatedAt = now
		claimed = append(claimed, s.clone(j))
	}

	return claimed, nil
}

// MarkSent implements WorkerStore.
func (s *MemoryStore) MarkSent(ctx context.Context, jobID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if j.Status != StatusSending {
		return ErrInvalidTransition
	}

	now := time.Now()
	j.Status = StatusSent
	j.SentAt = &now
	j.UpdatedAt = now
	return nil
}

// RecordFailure implements WorkerStore.
func (s *MemoryStore) RecordFailure(ctx context.Context, jobID int64, reason string, retryAt time.Time) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return "", ErrJobNotFound
	}
	if j.Status != StatusSending {
		return "", ErrInvalidTransition
	}

	j.RetryCount++
	j.FailedReason = TruncateReason(reason)
	j.UpdatedAt = time.Now()

	if j.RetryCount >= j.MaxRetries {
		j.Status = StatusFailed
	} else {
		j.Status = StatusPending
		j.ScheduledAt = retryAt
	}

	return j.Status, nil
}

// FailPermanently implements WorkerStore.
func (s *MemoryStore) FailPermanently(ctx context.Context, jobID int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if j.Status != StatusSending {
		return ErrInvalidTransition
	}

	j.Status = StatusFailed
	j.FailedReason = TruncateReason(reason)
	j.UpdatedAt = time.Now()
	return nil
}

// ListUnread implements FanoutStore.
func (s *MemoryStore) ListUnread(ctx context.Context, recipientID int64) ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var unread []*Job
	for _, j := range s.jobs {
		if j.RecipientID == recipientID && j.Channel == ChannelInApp && j.Status == StatusSent && !j.IsRead {
			unread = append(unread, j)
		}
	}

	slices.SortFunc(unread, func(a, b *Job) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return int(a.ID - b.ID)
	})

	out := make([]Job, 0, len(unread))
	for _, j := range unread {
		out = append(out, s.clone(j))
	}
	return out, nil
}

// MarkRead implements FanoutStore.
func (s *MemoryStore) MarkRead(ctx context.Context, jobID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if !j.IsRead {
		j.IsRead = true
		j.UpdatedAt = time.Now()
	}
	return nil
}

// Get returns a copy of a job by id. Mainly useful in tests.
func (s *MemoryStore) Get(ctx context.Context, jobID int64) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	c := s.clone(j)
	return &c, nil
}

// Count returns the total number of stored jobs.
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *MemoryStore) clone(j *Job) Job {
	c := *j
	c.MessageData = slices.Clone(j.MessageData)
	if j.SentAt != nil {
		t := *j.SentAt
		c.SentAt = &t
	}
	return c
}
