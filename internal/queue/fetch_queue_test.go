package queue

import (
	"context"
	"fmt"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/solana"
)

// collector records handler invocations.
type collector struct {
	mu    sync.Mutex
	sigs  []string
	times []time.Time
	errs  map[string][]error // per-signature scripted results, consumed in order
}

func newCollector() *collector {
	return &collector{errs: make(map[string][]error)}
}

func (c *collector) script(sig string, errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[sig] = append(c.errs[sig], errs...)
}

func (c *collector) handle(ctx context.Context, sig string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sigs = append(c.sigs, sig)
	c.times = append(c.times, time.Now())
	if queue := c.errs[sig]; len(queue) > 0 {
		err := queue[0]
		c.errs[sig] = queue[1:]
		return err
	}
	return nil
}

func (c *collector) calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sigs))
	copy(out, c.sigs)
	return out
}

func (c *collector) waitForCalls(t *testing.T, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(c.calls()) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %d calls, got %d", n, len(c.calls()))
}

func quietLogger() *log.Logger {
	return log.New(&nullWriter{}, "", 0)
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestFetchQueue_RateLimit(t *testing.T) {
	c := newCollector()
	q := New(c.handle, Options{MinInterval: 100 * time.Millisecond, Logger: quietLogger()})
	defer q.Close()

	q.Start(context.Background())

	for i := 0; i < 5; i++ {
		require.True(t, q.Enqueue(fmt.Sprintf("sig%d", i)))
	}

	c.waitForCalls(t, 5, 5*time.Second)

	c.mu.Lock()
	elapsed := c.times[4].Sub(c.times[0])
	c.mu.Unlock()

	// 4 intervals at >=100ms each.
	assert.GreaterOrEqual(t, elapsed, 400*time.Millisecond)
}

func TestFetchQueue_DedupWhilePending(t *testing.T) {
	c := newCollector()
	q := New(c.handle, Options{MinInterval: 10 * time.Millisecond, Logger: quietLogger()})
	defer q.Close()

	// Enqueue duplicates before the drain loop starts.
	require.True(t, q.Enqueue("sig1"))
	assert.False(t, q.Enqueue("sig1"))
	assert.Equal(t, 1, q.Len())

	q.Start(context.Background())
	c.waitForCalls(t, 1, 2*time.Second)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"sig1"}, c.calls())
}

func TestFetchQueue_StalenessDrop(t *testing.T) {
	c := newCollector()
	q := New(c.handle, Options{
		MinInterval: 10 * time.Millisecond,
		MaxAge:      50 * time.Millisecond,
		Logger:      quietLogger(),
	})
	defer q.Close()

	require.True(t, q.enqueueAt("stale", time.Now().Add(-time.Second)))
	require.True(t, q.Enqueue("fresh"))

	q.Start(context.Background())
	c.waitForCalls(t, 1, 2*time.Second)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"fresh"}, c.calls())

	// The stale signature may be enqueued again after the drop.
	assert.True(t, q.Enqueue("stale"))
}

func TestFetchQueue_RateLimitedRetry(t *testing.T) {
	c := newCollector()
	c.script("sig1", solana.ErrRateLimited, nil)

	q := New(c.handle, Options{
		MinInterval: 10 * time.Millisecond,
		RetryDelay:  50 * time.Millisecond,
		Logger:      quietLogger(),
	})
	defer q.Close()

	q.Start(context.Background())
	require.True(t, q.Enqueue("sig1"))

	c.waitForCalls(t, 2, 2*time.Second)
	assert.Equal(t, []string{"sig1", "sig1"}, c.calls())

	c.mu.Lock()
	gap := c.times[1].Sub(c.times[0])
	c.mu.Unlock()
	assert.GreaterOrEqual(t, gap, 50*time.Millisecond)
}

func TestFetchQueue_RetryGoesToBack(t *testing.T) {
	c := newCollector()
	c.script("sig1", solana.ErrRateLimited)

	q := New(c.handle, Options{
		MinInterval: 10 * time.Millisecond,
		RetryDelay:  30 * time.Millisecond,
		Logger:      quietLogger(),
	})
	defer q.Close()

	q.Start(context.Background())
	require.True(t, q.Enqueue("sig1"))
	require.True(t, q.Enqueue("sig2"))

	c.waitForCalls(t, 3, 2*time.Second)
	assert.Equal(t, []string{"sig1", "sig2", "sig1"}, c.calls())
}

func TestFetchQueue_NonRetryableDropped(t *testing.T) {
	c := newCollector()
	c.script("sig1", fmt.Errorf("transaction not found"))

	q := New(c.handle, Options{MinInterval: 10 * time.Millisecond, Logger: quietLogger()})
	defer q.Close()

	q.Start(context.Background())
	require.True(t, q.Enqueue("sig1"))

	c.waitForCalls(t, 1, 2*time.Second)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"sig1"}, c.calls())

	// Dropped items free the pending slot.
	assert.True(t, q.Enqueue("sig1"))
}

func TestFetchQueue_SeenSuppressesEnqueue(t *testing.T) {
	c := newCollector()
	q := New(c.handle, Options{
		MinInterval: 10 * time.Millisecond,
		Seen:        func(sig string) bool { return sig == "processed" },
		Logger:      quietLogger(),
	})
	defer q.Close()

	assert.False(t, q.Enqueue("processed"))
	assert.True(t, q.Enqueue("new"))
}

func TestFetchQueue_CloseStopsDrain(t *testing.T) {
	c := newCollector()
	q := New(c.handle, Options{MinInterval: 10 * time.Millisecond, Logger: quietLogger()})

	q.Start(context.Background())
	q.Close()

	assert.False(t, q.Enqueue("sig1"))
}
