package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
)

func TestMemoryBreakdownCacheExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryBreakdownCache()
	c.nowFn = func() time.Time { return now }
	ctx := context.Background()

	b := domain.Breakdown{CollaborationID: "c-1", TotalAmount: 10000, CommissionAmount: 1000}
	require.NoError(t, c.Set(ctx, b, time.Hour))

	got, ok, err := c.Get(ctx, "c-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, b, got)

	now = now.Add(2 * time.Hour)
	_, ok, err = c.Get(ctx, "c-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryBreakdownCacheRequiresID(t *testing.T) {
	err := NewMemoryBreakdownCache().Set(context.Background(), domain.Breakdown{}, time.Hour)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConnectRejectsBadURL(t *testing.T) {
	_, err := Connect(context.Background(), "redis://:bad url")
	assert.Error(t, err)
}
