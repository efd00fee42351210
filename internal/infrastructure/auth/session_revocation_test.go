package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemorySessionRevocations(t *testing.T) {
	ctx := context.Background()

	t.Run("revoked session is reported", func(t *testing.T) {
		r := NewInMemorySessionRevocations()
		require.NoError(t, r.Revoke(ctx, "sess_1", time.Hour))

		revoked, err := r.IsRevoked(ctx, "sess_1")
		require.NoError(t, err)
		assert.True(t, revoked)

		revoked, err = r.IsRevoked(ctx, "sess_2")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("entries expire", func(t *testing.T) {
		r := NewInMemorySessionRevocations()
		now := time.Now()
		r.now = func() time.Time { return now }
		require.NoError(t, r.Revoke(ctx, "sess_1", time.Minute))

		r.now = func() time.Time { return now.Add(2 * time.Minute) }
		revoked, err := r.IsRevoked(ctx, "sess_1")
		require.NoError(t, err)
		assert.False(t, revoked)
		assert.Empty(t, r.revoked)
	})

	t.Run("empty session id is ignored", func(t *testing.T) {
		r := NewInMemorySessionRevocations()
		require.NoError(t, r.Revoke(ctx, "", time.Hour))
		assert.Empty(t, r.revoked)
	})
}
