package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Disabled(t *testing.T) {
	l := New(0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.NoError(t, l.Consume(ctx))
	require.NoError(t, l.Consume(ctx))
}

func TestLimiter_BurstThenWait(t *testing.T) {
	// RPM=60 -> burst of 60 tokens available immediately, refill 1/sec.
	l := New(60)
	ctx := context.Background()
	for i := 0; i < 60; i++ {
		require.NoError(t, l.Consume(ctx))
	}
	// The 61st call should have to wait roughly 1 second for a token.
	start := time.Now()
	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := l.Consume(shortCtx)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestLimiter_SetLimitClampsDown(t *testing.T) {
	l := New(120)
	assert.Equal(t, 120, l.RPM())
	l.SetLimit(6)
	assert.Equal(t, 6, l.RPM())
}

func TestLimiter_SetLimitDisablesThenReenables(t *testing.T) {
	l := New(60)
	l.SetLimit(0)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	require.NoError(t, l.Consume(ctx))

	l.SetLimit(60)
	require.NoError(t, l.Consume(context.Background()))
}
