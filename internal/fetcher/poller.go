package fetcher

import (
	"context"
	"time"

	"news_hub/internal/logger"
	"news_hub/internal/models"
	"news_hub/internal/worker"
)

const warmConcurrency = 4

// StartPolling периодически чистит просроченные записи кэша и, если warm
// включён, заново загружает все источники. Блокируется до отмены ctx.
func StartPolling(ctx context.Context, f *Fetcher, sources []models.Source, interval time.Duration, warm bool) {
	log := logger.Log.WithFields(logger.Fields{
		"service":  "poller",
		"interval": interval.String(),
		"warm":     warm,
	})

	if interval <= 0 {
		log.Info("Poller disabled")
		return
	}

	if warm {
		Warm(ctx, f, sources)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			log.Debug("Starting new polling cycle")
			if c := f.Cache(); c != nil {
				if removed := c.SweepExpired(); removed > 0 {
					log.WithField("removed", removed).Info("Expired cache entries removed")
				}
			}
			if warm {
				Warm(ctx, f, sources)
			}

		case <-ctx.Done():
			log.Info("Stopping poller by context")
			return
		}
	}
}

// Warm загружает все источники, чтобы заполнить кэш. Возвращает число
// полученных статей.
func Warm(ctx context.Context, f *Fetcher, sources []models.Source) int {
	counts := worker.Gather(ctx, warmConcurrency, len(sources), func(ctx context.Context, i int) int {
		return len(f.Fetch(ctx, sources[i], 0))
	})

	total := 0
	for _, n := range counts {
		total += n
	}
	logger.Log.WithFields(logger.Fields{
		"sources":  len(sources),
		"articles": total,
	}).Info("Cache warmed")
	return total
}
