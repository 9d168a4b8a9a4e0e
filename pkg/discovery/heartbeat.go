package discovery

import (
	"context"
	"time"

	"github.com/condoplane/condoplane/pkg/registry"
)

// HeartbeatLoop periodically refreshes one service's liveness with the
// registry until stopped.
type HeartbeatLoop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartHeartbeat begins sending UP heartbeats for name every interval.
// Interval defaults to 30s. A failed beat is logged by the client and
// retried on the next tick; ticks that fall due while a beat is still
// in flight are dropped rather than queued.
func (c *Client) StartHeartbeat(name string, interval time.Duration) *HeartbeatLoop {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	loop := &HeartbeatLoop{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(loop.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Heartbeat(ctx, name, registry.StatusUp)
			}
		}
	}()

	return loop
}

// Stop halts the loop and waits for any in-flight beat to finish.
func (l *HeartbeatLoop) Stop() {
	l.cancel()
	<-l.done
}
