package cleanup

import (
	"context"
	"time"

	"blackmarket/internal/logger"
)

const (
	cleanupHour       = 2   // 2 AM
	maxDeletionPerRun = 500 // Maximum rows to delete per batch
	maxBatchesPerRun  = 20
)

// Purger deletes journal rows older than a cutoff, at most limit at a time.
type Purger interface {
	DeleteBefore(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// StartCleanupRoutine starts the daily journal purge. It stops when ctx is
// cancelled.
func StartCleanupRoutine(ctx context.Context, p Purger, retention time.Duration) {
	go func() {
		logger.LogInfo("Cleanup routine started - will run daily at %d:00 AM", cleanupHour)

		for {
			now := time.Now()
			next := nextRun(now)
			sleepDuration := next.Sub(now)
			logger.LogInfo("Next cleanup scheduled for %v (in %v)", next.Format("2006-01-02 15:04:05"), sleepDuration)

			timer := time.NewTimer(sleepDuration)
			select {
			case <-ctx.Done():
				timer.Stop()
				logger.LogInfo("Cleanup routine stopped")
				return
			case <-timer.C:
			}

			RunCleanup(ctx, p, retention, time.Now())
		}
	}()
}

// nextRun returns the next cleanupHour strictly after now.
func nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), cleanupHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// RunCleanup purges journal rows older than retention in batches and returns
// how many were removed.
func RunCleanup(ctx context.Context, p Purger, retention time.Duration, now time.Time) int {
	cutoffTime := now.Add(-retention)
	logger.LogInfo("Cleaning intent journal older than %v (before %v)",
		retention, cutoffTime.Format("2006-01-02 15:04:05"))

	totalCleaned := 0
	for batch := 0; batch < maxBatchesPerRun; batch++ {
		n, err := p.DeleteBefore(ctx, cutoffTime, maxDeletionPerRun)
		if err != nil {
			logger.LogError("Failed to cleanup intent journal: %v", err)
			break
		}
		totalCleaned += n
		if n < maxDeletionPerRun {
			break
		}
	}

	if totalCleaned > 0 {
		logger.LogInfo("Cleanup completed: %d journal rows removed", totalCleaned)
	} else {
		logger.LogInfo("Cleanup completed: no old journal rows found")
	}
	return totalCleaned
}
