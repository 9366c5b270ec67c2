package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_EnforcesPerOrgLimit(t *testing.T) {
	limiter := NewMemoryLimiter(3, time.Minute)

	for i := range 3 {
		allowed, err := limiter.Allow(t.Context(), "org-1")
		require.NoError(t, err)
		assert.True(t, allowed, "call %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(t.Context(), "org-1")
	require.NoError(t, err)
	assert.False(t, allowed)

	// Another organization has its own counter.
	allowed, err = limiter.Allow(t.Context(), "org-2")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemoryLimiter_WindowExpiry(t *testing.T) {
	limiter := NewMemoryLimiter(1, time.Minute)

	current := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return current }

	allowed, err := limiter.Allow(t.Context(), "org-1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(t.Context(), "org-1")
	require.NoError(t, err)
	assert.False(t, allowed)

	current = current.Add(time.Minute)

	allowed, err = limiter.Allow(t.Context(), "org-1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemoryLimiter_Reset(t *testing.T) {
	limiter := NewMemoryLimiter(1, time.Minute)

	_, err := limiter.Allow(t.Context(), "org-1")
	require.NoError(t, err)

	limiter.Reset()

	allowed, err := limiter.Allow(t.Context(), "org-1")
	require.NoError(t, err)
	assert.True(t, allowed)
}
