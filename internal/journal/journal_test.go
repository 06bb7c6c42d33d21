package journal

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := s.Record(ctx, Entry{
			ID:        fmt.Sprintf("intent-%d", i),
			SessionID: "session-1",
			Action:    "addToCart",
			BodyJSON:  `{"itemName":"weapon_pistol","category":"weapons","quantity":1}`,
			Outcome:   OutcomeDelivered,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	require.NoError(t, s.Record(ctx, Entry{
		ID:        "intent-dropped",
		Action:    "closeUI",
		Outcome:   OutcomeDropped,
		Error:     "transport unavailable",
		CreatedAt: base.Add(time.Hour),
	}))

	recent, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "intent-dropped", recent[0].ID)
	assert.Equal(t, "{}", recent[0].BodyJSON)
	assert.Equal(t, "transport unavailable", recent[0].Error)
	assert.True(t, recent[0].CreatedAt.Equal(base.Add(time.Hour)))
	assert.Equal(t, "intent-2", recent[1].ID)

	counts, err := s.CountByOutcome(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{OutcomeDelivered: 3, OutcomeDropped: 1}, counts)
}

func TestRecordDuplicateID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e := Entry{ID: "same", Action: "purchase", Outcome: OutcomeDelivered}
	require.NoError(t, s.Record(ctx, e))
	assert.Error(t, s.Record(ctx, e))
}

func TestDeleteBefore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Record(ctx, Entry{
			ID:        fmt.Sprintf("old-%d", i),
			Action:    "addToCart",
			Outcome:   OutcomeDelivered,
			CreatedAt: now.Add(-100 * time.Hour),
		}))
	}
	require.NoError(t, s.Record(ctx, Entry{ID: "fresh", Action: "addToCart", Outcome: OutcomeDelivered, CreatedAt: now}))

	n, err := s.DeleteBefore(ctx, now.Add(-72*time.Hour), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.DeleteBefore(ctx, now.Add(-72*time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "fresh", left[0].ID)
}

func TestNilStoreClose(t *testing.T) {
	var s *Store
	assert.NoError(t, s.Close())
}
