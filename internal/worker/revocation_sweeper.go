package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper evicts revocation entries whose tokens have expired.
type Sweeper interface {
	SweepRevocations() int
}

// StartRevocationSweeper runs sweeper every interval until ctx is cancelled.
// The returned channel is closed once the loop has exited.
func StartRevocationSweeper(ctx context.Context, sweeper Sweeper, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if sweeper == nil || interval <= 0 {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := sweeper.SweepRevocations(); removed > 0 {
					logger.Debug("revocation entries evicted", zap.Int("count", removed))
				}
			}
		}
	}()
	return done
}
