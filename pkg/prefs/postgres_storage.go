package prefs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the durable preference store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a preference store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, userID int64) (*Preference, error) {
	var p Preference
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, prefers_email, prefers_in_app, default_channel, created_at, updated_at
		FROM user_communication_preferences
		WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.PrefersEmail, &p.PrefersInApp, &p.DefaultChannel, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get preference for user %d: %w", userID, err)
	}
	return &p, nil
}

// Upsert implements Store.
func (s *PostgresStore) Upsert(ctx context.Context, p Preference) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_communication_preferences
			(user_id, prefers_email, prefers_in_app, default_channel)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			prefers_email = EXCLUDED.prefers_email,
			prefers_in_app = EXCLUDED.prefers_in_app,
			default_channel = EXCLUDED.default_channel,
			updated_at = now()`,
		p.UserID, p.PrefersEmail, p.PrefersInApp, p.DefaultChannel,
	)
	if err != nil {
		return fmt.Errorf("upsert preference for user %d: %w", p.UserID, err)
	}
	return nil
}
