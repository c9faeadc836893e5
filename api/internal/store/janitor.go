package store

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Purger is the part of ConversionRepo the janitor needs.
type Purger interface {
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// RunJanitor purges rows older than retention every interval until ctx is
// done. A non-positive retention disables it.
func RunJanitor(ctx context.Context, p Purger, retention, interval time.Duration, log *zap.SugaredLogger) {
	if retention <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Hour
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		n, err := p.PurgeOlderThan(ctx, retention)
		if err != nil {
			log.Warnw("history purge failed", "err", err)
		} else if n > 0 {
			log.Infow("history purged", "rows", n, "retention", retention)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
