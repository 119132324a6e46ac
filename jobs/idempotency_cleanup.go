package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-books/internal/jobs"
)

// IdempotencyCleaner removes request keys older than the retention window.
type IdempotencyCleaner interface {
	Purge(ctx context.Context, retention time.Duration) (int64, error)
}

// NewIdempotencyCleanupHandler returns the handler for TaskIdempotencyCleanup.
func NewIdempotencyCleanupHandler(cleaner IdempotencyCleaner, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	logger = logger.With(slog.String("job", TaskIdempotencyCleanup))
	return func(ctx context.Context, _ *asynq.Task) error {
		if cleaner == nil {
			return errors.New("idempotency cleanup: store not configured")
		}
		tracker := metrics.Track(TaskIdempotencyCleanup)
		purged, err := cleaner.Purge(ctx, retention)
		if err != nil {
			logger.Error("purge idempotency keys", slog.Any("error", err))
		} else {
			logger.Info("purged idempotency keys", slog.Int64("purged", purged), slog.Duration("retention", retention))
		}
		return tracker.End(err)
	}
}
