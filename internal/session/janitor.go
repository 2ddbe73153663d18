package session

import (
	"context"
	"time"
)

// Run sweeps idle conversations every interval until ctx is cancelled.
// If interval is <= 0, it defaults to one minute.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		if n := r.Sweep(); n > 0 {
			r.logger.Debug("evicted idle conversations", "count", n, "remaining", r.Len())
		}
	}
}
