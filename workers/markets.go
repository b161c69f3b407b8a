package workers

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type MarketSyncer interface {
	Sync(ctx context.Context) (int, error)
}

// Worker_syncMarkets refreshes the market book right away and then every interval
func Worker_syncMarkets(ctx context.Context, book MarketSyncer, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		syncCtx, cancel := context.WithTimeout(ctx, interval)
		n, err := book.Sync(syncCtx)
		cancel()
		if err != nil {
			logger.Warn("error syncing markets", zap.Error(err))
		} else {
			logger.Debug("markets synced", zap.Int("count", n))
		}

		select {
		case <-ctx.Done():
			logger.Info("market sync worker stopped")
			return
		case <-ticker.C:
		}
	}
}
