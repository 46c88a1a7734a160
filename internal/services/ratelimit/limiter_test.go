package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/jobradar/internal/common"
)

func testConfig() common.RateLimitConfig {
	return common.RateLimitConfig{
		BaseDelay:         50 * time.Millisecond,
		MaxDelay:          2 * time.Second,
		MaxConcurrent:     2,
		BackoffMultiplier: 2.0,
		RecoveryFactor:    0.9,
	}
}

func TestAcquireEnforcesDelay(t *testing.T) {
	l := New(testConfig(), common.GetLogger())
	ctx := context.Background()

	var grants []time.Time
	for i := 0; i < 3; i++ {
		lease, err := l.Acquire(ctx, "https://example.com/jobs")
		require.NoError(t, err)
		grants = append(grants, time.Now())
		lease.Release()
	}

	for i := 1; i < len(grants); i++ {
		gap := grants[i].Sub(grants[i-1])
		assert.GreaterOrEqual(t, gap, 45*time.Millisecond, "grants %d and %d too close", i-1, i)
	}
}

func TestConcurrencyBound(t *testing.T) {
	cfg := testConfig()
	cfg.BaseDelay = 0
	l := New(cfg, common.GetLogger())
	ctx := context.Background()

	var inFlight, maxSeen int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := l.Acquire(ctx, "https://example.com/")
			if err != nil {
				return
			}
			n := atomic.AddInt64(&inFlight, 1)
			for {
				seen := atomic.LoadInt64(&maxSeen)
				if n <= seen || atomic.CompareAndSwapInt64(&maxSeen, seen, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt64(&inFlight, -1)
			lease.Release()
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt64(&maxSeen), int64(cfg.MaxConcurrent))
}

func TestBackoffAndRecovery(t *testing.T) {
	l := New(testConfig(), common.GetLogger())
	u := "https://throttled.example.com/x"

	l.OnResponse(u, 429, "")
	assert.Equal(t, 100*time.Millisecond, l.CurrentDelay(u))

	l.OnResponse(u, 429, "")
	assert.Equal(t, 200*time.Millisecond, l.CurrentDelay(u))

	// recovery shrinks toward base and snaps back once within 10%
	for i := 0; i < 20; i++ {
		l.OnResponse(u, 200, "")
	}
	assert.Equal(t, 50*time.Millisecond, l.CurrentDelay(u))
}

func TestRetryAfterOverridesBackoff(t *testing.T) {
	l := New(testConfig(), common.GetLogger())
	u := "https://throttled.example.com/x"

	l.OnResponse(u, 503, "1")
	assert.Equal(t, time.Second, l.CurrentDelay(u))

	// capped at max_delay
	l.OnResponse(u, 503, "600")
	assert.Equal(t, 2*time.Second, l.CurrentDelay(u))
}

func TestAcquireCancellation(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrent = 1
	l := New(cfg, common.GetLogger())

	lease, err := l.Acquire(context.Background(), "https://example.com/")
	require.NoError(t, err)
	defer lease.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "https://example.com/")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
