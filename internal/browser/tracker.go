// internal/browser/tracker.go
package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// networkTracker listens to CDP network events and tracks in-flight requests
// so the driver can wait for the page to go quiet after a submission.
type networkTracker struct {
	logger *zap.Logger

	lock     sync.RWMutex
	inflight map[network.RequestID]bool
}

// newNetworkTracker attaches a tracker to the given tab context. The caller
// must have run network.Enable on the same context.
func newNetworkTracker(tabCtx context.Context, logger *zap.Logger) *networkTracker {
	t := &networkTracker{
		logger:   logger.Named("network"),
		inflight: make(map[network.RequestID]bool),
	}

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			t.lock.Lock()
			t.inflight[e.RequestID] = true
			t.lock.Unlock()
		case *network.EventLoadingFinished:
			t.lock.Lock()
			delete(t.inflight, e.RequestID)
			t.lock.Unlock()
		case *network.EventLoadingFailed:
			t.lock.Lock()
			delete(t.inflight, e.RequestID)
			t.lock.Unlock()
		}
	})

	return t
}

// WaitIdle polls until there are no in-flight network requests for the
// specified quiet period, or the context is done.
func (t *networkTracker) WaitIdle(ctx context.Context, quietPeriod time.Duration) error {
	ticker := time.NewTicker(quietPeriod / 2)
	defer ticker.Stop()

	lastActivity := time.Now()
	for {
		select {
		case <-ctx.Done():
			t.logger.Debug("Network idle wait aborted.", zap.Error(ctx.Err()))
			return ctx.Err()
		case <-ticker.C:
			t.lock.RLock()
			inflightCount := len(t.inflight)
			t.lock.RUnlock()

			if inflightCount > 0 {
				lastActivity = time.Now()
				t.logger.Debug("Waiting for network idle...", zap.Int("inflight_requests", inflightCount))
			} else if time.Since(lastActivity) >= quietPeriod {
				return nil
			}
		}
	}
}
