// internal/browser/tracker_test.go
package browser

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newIdleTestTracker() *networkTracker {
	return &networkTracker{
		logger:   zap.NewNop(),
		inflight: make(map[network.RequestID]bool),
	}
}

func TestWaitIdleReturnsWhenQuiet(t *testing.T) {
	tracker := newIdleTestTracker()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := tracker.WaitIdle(ctx, 20*time.Millisecond)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestWaitIdleBlocksOnInflightRequests(t *testing.T) {
	tracker := newIdleTestTracker()
	tracker.inflight[network.RequestID("req-1")] = true

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := tracker.WaitIdle(ctx, 20*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitIdleUnblocksWhenRequestsDrain(t *testing.T) {
	tracker := newIdleTestTracker()
	tracker.inflight[network.RequestID("req-1")] = true

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(50 * time.Millisecond)
		tracker.lock.Lock()
		delete(tracker.inflight, network.RequestID("req-1"))
		tracker.lock.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := tracker.WaitIdle(ctx, 20*time.Millisecond)
	wg.Wait()
	require.NoError(t, err)
}

func TestWaitIdleHonorsCancellation(t *testing.T) {
	tracker := newIdleTestTracker()
	tracker.inflight[network.RequestID("req-1")] = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tracker.WaitIdle(ctx, 20*time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
}
