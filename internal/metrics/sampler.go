package metrics

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Run samples memory usage every interval until ctx is canceled.
func (c *Collector) Run(ctx context.Context, interval time.Duration) {
	if c == nil || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Debug("Memory sampler started", zap.Duration("interval", interval))

	c.SampleMemory()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("Memory sampler stopped")
			return
		case <-ticker.C:
			c.SampleMemory()
		}
	}
}
