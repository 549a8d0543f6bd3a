package prefs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierd/courierd/pkg/job"
	"github.com/courierd/courierd/pkg/prefs"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("missing record", func(t *testing.T) {
		t.Parallel()

		s := prefs.NewMemoryStore()
		_, err := s.Get(ctx, 42)
		assert.ErrorIs(t, err, prefs.ErrNotFound)
	})

	t.Run("upsert and get", func(t *testing.T) {
		t.Parallel()

		s := prefs.NewMemoryStore()
		require.NoError(t, s.Upsert(ctx, prefs.Preference{
			UserID:         42,
			PrefersEmail:   false,
			PrefersInApp:   true,
			DefaultChannel: job.ChannelInApp,
		}))

		p, err := s.Get(ctx, 42)
		require.NoError(t, err)
		assert.False(t, p.PrefersEmail)
		assert.True(t, p.PrefersInApp)
		assert.False(t, p.CreatedAt.IsZero())
	})

	t.Run("upsert preserves created_at", func(t *testing.T) {
		t.Parallel()

		s := prefs.NewMemoryStore()
		require.NoError(t, s.Upsert(ctx, prefs.Preference{UserID: 1, PrefersEmail: true, PrefersInApp: true}))

		first, err := s.Get(ctx, 1)
		require.NoError(t, err)

		require.NoError(t, s.Upsert(ctx, prefs.Preference{UserID: 1, PrefersEmail: false, PrefersInApp: true}))

		second, err := s.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, first.CreatedAt, second.CreatedAt)
		assert.False(t, second.PrefersEmail)
	})
}

func TestPreference_Allows(t *testing.T) {
	t.Parallel()

	p := prefs.Preference{PrefersEmail: false, PrefersInApp: true}
	assert.False(t, p.Allows(job.ChannelEmail))
	assert.True(t, p.Allows(job.ChannelInApp))
	assert.True(t, p.Allows(job.Channel("sms")))
}
