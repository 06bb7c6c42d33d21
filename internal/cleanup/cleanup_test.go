package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakePurger struct {
	remaining int
	calls     int
	cutoff    time.Time
	err       error
}

func (f *fakePurger) DeleteBefore(_ context.Context, cutoff time.Time, limit int) (int, error) {
	f.calls++
	f.cutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	n := limit
	if f.remaining < n {
		n = f.remaining
	}
	f.remaining -= n
	return n, nil
}

func TestRunCleanupBatches(t *testing.T) {
	now := time.Date(2026, 5, 10, 2, 0, 0, 0, time.UTC)
	p := &fakePurger{remaining: maxDeletionPerRun*2 + 7}

	n := RunCleanup(context.Background(), p, 72*time.Hour, now)
	assert.Equal(t, maxDeletionPerRun*2+7, n)
	assert.Equal(t, 3, p.calls)
	assert.Equal(t, now.Add(-72*time.Hour), p.cutoff)
}

func TestRunCleanupStopsOnError(t *testing.T) {
	p := &fakePurger{err: errors.New("disk I/O error")}
	assert.Equal(t, 0, RunCleanup(context.Background(), p, time.Hour, time.Now()))
	assert.Equal(t, 1, p.calls)
}

func TestRunCleanupCapsBatches(t *testing.T) {
	p := &fakePurger{remaining: maxDeletionPerRun * (maxBatchesPerRun + 5)}
	n := RunCleanup(context.Background(), p, time.Hour, time.Now())
	assert.Equal(t, maxDeletionPerRun*maxBatchesPerRun, n)
	assert.Equal(t, maxBatchesPerRun, p.calls)
}

func TestNextRun(t *testing.T) {
	before := time.Date(2026, 5, 10, 1, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 5, 10, 2, 0, 0, 0, time.UTC), nextRun(before))

	after := time.Date(2026, 5, 10, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 5, 11, 2, 0, 0, 0, time.UTC), nextRun(after))
}
